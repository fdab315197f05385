package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/repository"
	storage "github.com/hitoshi/pitchdeck/internal/storage/minio"
)

const (
	defaultRenderTimeout = 30 * time.Second
	historyLimit         = 50
)

// DeckFinder は所有者を限定してデッキを取得する。
type DeckFinder interface {
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Deck, error)
}

// ObjectStore はエクスポートファイルのアーカイブ先。
type ObjectStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

// Recorder はエクスポートの結果を受け取る。
type Recorder interface {
	ObserveExport(format, outcome string, sizeBytes int)
}

// Result はエクスポートしたファイル。
type Result struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Archive はアーカイブ済みファイルの読み出し結果。呼び出し元はBodyを閉じること。
type Archive struct {
	Record      *model.ExportRecord
	ContentType string
	Body        io.ReadCloser
}

// Service はデッキのエクスポートとアーカイブを扱う。
type Service struct {
	decks     DeckFinder
	renderers map[model.ExportFormat]Renderer
	themes    Themes
	store     ObjectStore
	records   repository.ExportRepository
	recorder  Recorder
	timeout   time.Duration
	now       func() time.Time
}

// NewService はServiceを生成する。storeとrecordsがnilの場合はアーカイブしない。
func NewService(
	decks DeckFinder,
	themes Themes,
	store ObjectStore,
	records repository.ExportRepository,
	recorder Recorder,
	timeout time.Duration,
	renderers ...Renderer,
) *Service {
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	byFormat := make(map[model.ExportFormat]Renderer, len(renderers))
	for _, r := range renderers {
		byFormat[r.Format()] = r
	}
	return &Service{
		decks:     decks,
		renderers: byFormat,
		themes:    themes,
		store:     store,
		records:   records,
		recorder:  recorder,
		timeout:   timeout,
		now:       time.Now,
	}
}

// Export はユーザーの所有するデッキを指定形式で出力する。
// レンダリングがタイムアウトした場合はEXPORT_TIMEOUTを返す。
func (s *Service) Export(ctx context.Context, userID, deckID string, format model.ExportFormat, opts Options) (*Result, error) {
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, model.NewValidationError(fmt.Sprintf("Unsupported export format: %s", format))
	}

	deck, err := s.decks.FindByIDAndUser(ctx, deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find deck: %w", err)
	}
	if deck == nil {
		return nil, model.NewDeckNotFoundError()
	}

	doc := NewDocument(deck, opts)
	theme := s.themes.Lookup(opts.template())

	data, err := s.render(ctx, renderer, doc, theme)
	if err != nil {
		s.observe(format, outcomeOf(err), 0)
		slog.Error("export failed",
			slog.String("user_id", userID),
			slog.String("deck_id", deckID),
			slog.String("format", string(format)),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewExportTimeoutError(string(format))
		}
		return nil, model.NewExportFailedError(string(format))
	}
	s.observe(format, "success", len(data))

	result := &Result{
		Filename:    Filename(deck.Title, format, s.now()),
		ContentType: renderer.ContentType(),
		Data:        data,
	}
	s.archive(ctx, userID, deckID, format, result)
	return result, nil
}

type renderOutcome struct {
	data []byte
	err  error
}

// render はレンダラーをゴルーチンで実行し、タイムアウトと競合させる。
func (s *Service) render(ctx context.Context, renderer Renderer, doc *Document, theme Theme) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan renderOutcome, 1)
	go func() {
		data, err := renderer.Render(ctx, doc, theme)
		done <- renderOutcome{data: data, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		if len(out.data) == 0 {
			return nil, errors.New("renderer produced empty output")
		}
		return out.data, nil
	}
}

// archive はストレージが設定されていればファイルを保存し記録する。
// 失敗はログに残すだけでダウンロードには影響させない。
func (s *Service) archive(ctx context.Context, userID, deckID string, format model.ExportFormat, result *Result) {
	if s.store == nil || s.records == nil {
		return
	}

	key := fmt.Sprintf("exports/%s/%s/%s", userID, deckID, result.Filename)
	if err := s.store.Upload(ctx, key, bytes.NewReader(result.Data), int64(len(result.Data)), result.ContentType); err != nil {
		slog.Warn("export archive upload failed",
			slog.String("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}

	record := &model.ExportRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		DeckID:    deckID,
		Format:    format,
		ObjectKey: key,
		Filename:  result.Filename,
		SizeBytes: int64(len(result.Data)),
		CreatedAt: s.now(),
	}
	if err := s.records.Create(ctx, record); err != nil {
		slog.Warn("export archive record failed",
			slog.String("user_id", userID),
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

// History はユーザーのアーカイブ済みエクスポートを新しい順に返す。
func (s *Service) History(ctx context.Context, userID string) ([]*model.ExportRecord, error) {
	if s.records == nil {
		return []*model.ExportRecord{}, nil
	}
	records, err := s.records.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	return records, nil
}

// Download はアーカイブ済みのファイルを開く。他のユーザーのファイルは見つからない扱いとする。
func (s *Service) Download(ctx context.Context, userID, exportID string) (*Archive, error) {
	if s.records == nil || s.store == nil {
		return nil, model.NewExportNotFoundError()
	}

	record, err := s.records.FindByIDAndUser(ctx, exportID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find export: %w", err)
	}
	if record == nil {
		return nil, model.NewExportNotFoundError()
	}

	body, err := s.store.Download(ctx, record.ObjectKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, model.NewExportNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to download export: %w", err)
	}

	contentType := contentTypePDF
	if r, ok := s.renderers[record.Format]; ok {
		contentType = r.ContentType()
	}
	return &Archive{Record: record, ContentType: contentType, Body: body}, nil
}

func (s *Service) observe(format model.ExportFormat, outcome string, size int) {
	if s.recorder != nil {
		s.recorder.ObserveExport(string(format), outcome, size)
	}
}

func outcomeOf(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}
