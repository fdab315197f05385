package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// PostgresDeckRepo はPostgreSQLを使用したデッキリポジトリ。
// スライドはslides列（JSONB）にJSON配列として保存する。
type PostgresDeckRepo struct {
	db *sql.DB
}

// NewPostgresDeckRepo はPostgresDeckRepoを生成する。
func NewPostgresDeckRepo(db *sql.DB) *PostgresDeckRepo {
	return &PostgresDeckRepo{db: db}
}

const deckColumns = `id, user_id, title, description, slides, status, thumbnail, created_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDeck(row rowScanner) (*model.Deck, error) {
	var (
		deck        model.Deck
		description sql.NullString
		thumbnail   sql.NullString
		slidesJSON  []byte
		status      string
	)
	if err := row.Scan(
		&deck.ID, &deck.UserID, &deck.Title, &description, &slidesJSON,
		&status, &thumbnail, &deck.CreatedAt, &deck.UpdatedAt,
	); err != nil {
		return nil, err
	}

	deck.Status = model.DeckStatus(status)
	if description.Valid {
		deck.Description = &description.String
	}
	if thumbnail.Valid {
		deck.Thumbnail = &thumbnail.String
	}

	deck.Slides = []model.Slide{}
	if len(slidesJSON) > 0 {
		if err := json.Unmarshal(slidesJSON, &deck.Slides); err != nil {
			return nil, fmt.Errorf("failed to decode slides of deck %s: %w", deck.ID, err)
		}
	}

	return &deck, nil
}

func encodeSlides(slides []model.Slide) ([]byte, error) {
	if slides == nil {
		slides = []model.Slide{}
	}
	b, err := json.Marshal(slides)
	if err != nil {
		return nil, fmt.Errorf("failed to encode slides: %w", err)
	}
	return b, nil
}

// ListByUser はユーザーのデッキをupdated_at降順で返す。
func (r *PostgresDeckRepo) ListByUser(ctx context.Context, userID string) ([]*model.Deck, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE user_id = $1 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	defer rows.Close()

	decks := []*model.Deck{}
	for rows.Next() {
		deck, err := scanDeck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deck: %w", err)
		}
		decks = append(decks, deck)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decks: %w", err)
	}

	return decks, nil
}

// FindByIDAndUser はIDと所有者でデッキを取得する。見つからない場合はnilを返す。
func (r *PostgresDeckRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Deck, error) {
	deck, err := scanDeck(r.db.QueryRowContext(ctx,
		`SELECT `+deckColumns+` FROM decks WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find deck: %w", err)
	}
	return deck, nil
}

// Create はデッキを作成する。
func (r *PostgresDeckRepo) Create(ctx context.Context, deck *model.Deck) error {
	slides, err := encodeSlides(deck.Slides)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO decks (id, user_id, title, description, slides, status, thumbnail, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		deck.ID, deck.UserID, deck.Title, deck.Description, slides,
		string(deck.Status), deck.Thumbnail, deck.CreatedAt, deck.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deck: %w", err)
	}
	return nil
}

// Update はデッキ全体を上書きする。所有者が一致しない場合はErrNotFoundを返す。
func (r *PostgresDeckRepo) Update(ctx context.Context, deck *model.Deck) error {
	slides, err := encodeSlides(deck.Slides)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE decks
		 SET title = $1, description = $2, slides = $3, status = $4, thumbnail = $5, updated_at = $6
		 WHERE id = $7 AND user_id = $8`,
		deck.Title, deck.Description, slides, string(deck.Status), deck.Thumbnail, deck.UpdatedAt,
		deck.ID, deck.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deck: %w", err)
	}
	return expectAffected(result)
}

// DeleteByIDAndUser はデッキを削除する。所有者が一致しない場合はErrNotFoundを返す。
func (r *PostgresDeckRepo) DeleteByIDAndUser(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM decks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}
	return expectAffected(result)
}

// compile-time interface check
var _ DeckRepository = (*PostgresDeckRepo)(nil)
