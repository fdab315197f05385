// Package cleanup はアーカイブ済みエクスポートの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過したエクスポート記録と、
// オブジェクトストレージ上のファイルを定期的に削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/repository"
)

const (
	defaultRetentionDays  = 30
	defaultBatchSize      = 100
	defaultMaxConcurrency = 4
)

// ExportRecords は削除対象のエクスポート記録を扱う。
// repository.ExportRepositoryがそのまま満たす。
// ListCreatedBeforeは(created_at, id)の昇順で安定した順序を返すこと。
type ExportRecords interface {
	ListCreatedBefore(ctx context.Context, cutoff time.Time, offset, limit int) ([]*model.ExportRecord, error)
	DeleteByID(ctx context.Context, id string) error
}

// ObjectDeleter はアーカイブ先のオブジェクトを削除する。
// 存在しないオブジェクトの削除は成功として扱うこと。
type ObjectDeleter interface {
	Delete(ctx context.Context, key string) error
}

// PurgeRecorder は削除件数を受け取る。
type PurgeRecorder interface {
	RecordExportsPurged(count int)
}

// CleanupJob は保持期間を超過したエクスポートの自動削除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	records  ExportRecords
	store    ObjectDeleter
	recorder PurgeRecorder
	logger   *slog.Logger
	now      func() time.Time

	RetentionDays  int // エクスポートの保持日数（デフォルト: 30）
	BatchSize      int // 1回の問い合わせで取得する件数
	MaxConcurrency int // オブジェクト削除の最大並列数
}

// NewCleanupJob は新しいCleanupJobを生成する。
// storeがnilの場合はオブジェクトを削除せず記録のみ削除する。
func NewCleanupJob(records ExportRecords, store ObjectDeleter, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		records:        records,
		store:          store,
		logger:         logger,
		now:            time.Now,
		RetentionDays:  defaultRetentionDays,
		BatchSize:      defaultBatchSize,
		MaxConcurrency: defaultMaxConcurrency,
	}
}

// WithRecorder は削除件数の記録先を設定する。
func (j *CleanupJob) WithRecorder(recorder PurgeRecorder) *CleanupJob {
	j.recorder = recorder
	return j
}

// Start は起動直後に1回、その後interval間隔でRunを実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("export cleanup started",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	j.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			j.logger.Info("export cleanup stopped")
			return
		case <-ticker.C:
			j.runLogged(ctx)
		}
	}
}

func (j *CleanupJob) runLogged(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil && ctx.Err() == nil {
		j.logger.Error("export cleanup failed", slog.String("error", err.Error()))
	}
}

// Run は作成からRetentionDays日を超えたエクスポートを削除し、削除件数を返す。
// オブジェクトの削除に失敗した記録は残し、次回の実行で再試行する。
// 残した記録はoffsetで読み飛ばし、その後ろの期限切れ記録の処理を続ける。
func (j *CleanupJob) Run(ctx context.Context) (int, error) {
	start := j.now()
	cutoff := start.AddDate(0, 0, -j.RetentionDays)

	total := 0
	failed := 0
	for {
		records, err := j.records.ListCreatedBefore(ctx, cutoff, failed, j.BatchSize)
		if err != nil {
			j.logger.Error("failed to list expired exports",
				slog.String("error", err.Error()),
				slog.Int("retention_days", j.RetentionDays),
			)
			j.record(total)
			return total, fmt.Errorf("failed to list expired exports: %w", err)
		}
		if len(records) == 0 {
			break
		}

		purged, skipped, err := j.purgeBatch(ctx, records)
		total += purged
		failed += skipped
		if err != nil {
			j.record(total)
			return total, err
		}
		if len(records) < j.BatchSize {
			break
		}
	}

	j.record(total)
	j.logger.Info("export cleanup finished",
		slog.Int("deleted_count", total),
		slog.Int("failed_count", failed),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return total, nil
}

// purgeBatch はオブジェクトを並列に削除し、成功したものの記録を削除する。
func (j *CleanupJob) purgeBatch(ctx context.Context, records []*model.ExportRecord) (int, int, error) {
	var purged, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(j.MaxConcurrency, 1))

	for _, rec := range records {
		g.Go(func() error {
			if j.store != nil && rec.ObjectKey != "" {
				if err := j.store.Delete(gctx, rec.ObjectKey); err != nil {
					j.logger.Warn("failed to delete archived export",
						slog.String("export_id", rec.ID),
						slog.String("object_key", rec.ObjectKey),
						slog.String("error", err.Error()),
					)
					skipped.Add(1)
					return nil
				}
			}

			// 並行する取り消しで既に消えている記録は削除済みとして数える
			if err := j.records.DeleteByID(gctx, rec.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("failed to delete export record %s: %w", rec.ID, err)
			}
			purged.Add(1)
			return nil
		})
	}

	err := g.Wait()
	return int(purged.Load()), int(skipped.Load()), err
}

func (j *CleanupJob) record(count int) {
	if j.recorder != nil && count > 0 {
		j.recorder.RecordExportsPurged(count)
	}
}
