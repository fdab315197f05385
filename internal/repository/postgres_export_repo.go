package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// PostgresExportRepo はPostgreSQLを使用したエクスポート記録リポジトリ。
type PostgresExportRepo struct {
	db *sql.DB
}

// NewPostgresExportRepo はPostgresExportRepoを生成する。
func NewPostgresExportRepo(db *sql.DB) *PostgresExportRepo {
	return &PostgresExportRepo{db: db}
}

const exportColumns = `id, user_id, deck_id, format, object_key, filename, size_bytes, created_at`

func scanExport(row rowScanner) (*model.ExportRecord, error) {
	var (
		rec    model.ExportRecord
		format string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.DeckID, &format, &rec.ObjectKey, &rec.Filename, &rec.SizeBytes, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Format = model.ExportFormat(format)
	return &rec, nil
}

func (r *PostgresExportRepo) queryExports(ctx context.Context, query string, args ...any) ([]*model.ExportRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	records := []*model.ExportRecord{}
	for rows.Next() {
		rec, err := scanExport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exports: %w", err)
	}
	return records, nil
}

// Create はエクスポート記録を作成する。
func (r *PostgresExportRepo) Create(ctx context.Context, record *model.ExportRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO exports (id, user_id, deck_id, format, object_key, filename, size_bytes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		record.ID, record.UserID, record.DeckID, string(record.Format),
		record.ObjectKey, record.Filename, record.SizeBytes, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}
	return nil
}

// ListByUser はユーザーのエクスポート記録を新しい順に最大limit件返す。
func (r *PostgresExportRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*model.ExportRecord, error) {
	return r.queryExports(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit,
	)
}

// FindByIDAndUser はIDと所有者で記録を取得する。見つからない場合はnilを返す。
func (r *PostgresExportRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.ExportRecord, error) {
	rec, err := scanExport(r.db.QueryRowContext(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find export: %w", err)
	}
	return rec, nil
}

// ListObjectKeysByUser はユーザーの全記録のオブジェクトキーを返す。
func (r *PostgresExportRepo) ListObjectKeysByUser(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT object_key FROM exports WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list export keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan export key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate export keys: %w", err)
	}
	return keys, nil
}

// ListCreatedBefore はcutoffより古い記録を古い順に先頭offset件を飛ばして最大limit件返す。
func (r *PostgresExportRepo) ListCreatedBefore(ctx context.Context, cutoff time.Time, offset, limit int) ([]*model.ExportRecord, error) {
	return r.queryExports(ctx,
		`SELECT `+exportColumns+` FROM exports WHERE created_at < $1 ORDER BY created_at ASC, id ASC LIMIT $2 OFFSET $3`,
		cutoff, limit, offset,
	)
}

// DeleteByID は記録を削除する。存在しない場合もエラーにしない（冪等）。
func (r *PostgresExportRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ExportRepository = (*PostgresExportRepo)(nil)
