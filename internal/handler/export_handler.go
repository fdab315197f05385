package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/pitchdeck/internal/export"
	"github.com/hitoshi/pitchdeck/internal/model"
)

// ExportServiceInterface はエクスポートハンドラーが必要とするサービスインターフェース。
// export.Serviceがそのまま満たす。
type ExportServiceInterface interface {
	Export(ctx context.Context, userID, deckID string, format model.ExportFormat, opts export.Options) (*export.Result, error)
	History(ctx context.Context, userID string) ([]*model.ExportRecord, error)
	Download(ctx context.Context, userID, exportID string) (*export.Archive, error)
}

// ExportHandler はエクスポートのHTTPハンドラー。
type ExportHandler struct {
	service ExportServiceInterface
}

// NewExportHandler はExportHandlerを生成する。
func NewExportHandler(service ExportServiceInterface) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export は指定形式でデッキを出力するハンドラーを返す。ボディのオプションは省略できる。
// POST /export/pdf/{id}, POST /export/pptx/{id}
func (h *ExportHandler) Export(format model.ExportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUserID(w, r)
		if !ok {
			return
		}

		var opts export.Options
		if !decodeJSON(w, r, &opts, true) {
			return
		}

		result, err := h.service.Export(r.Context(), userID, urlParam(r, "id"), format, opts)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeAttachmentHeaders(w, result.ContentType, result.Filename, int64(len(result.Data)))
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(result.Data); err != nil {
			slog.Warn("failed to write export body",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// History はアーカイブ済みエクスポートの一覧を返す。
// GET /export/history
func (h *ExportHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	records, err := h.service.History(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if records == nil {
		records = []*model.ExportRecord{}
	}
	writeSuccess(w, http.StatusOK, "", records)
}

// Archive はアーカイブ済みのファイルを返す。
// GET /export/archive/{exportId}
func (h *ExportHandler) Archive(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	archive, err := h.service.Download(r.Context(), userID, urlParam(r, "exportId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	defer archive.Body.Close()

	writeAttachmentHeaders(w, archive.ContentType, archive.Record.Filename, archive.Record.SizeBytes)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, archive.Body); err != nil {
		slog.Warn("failed to stream archived export",
			slog.String("user_id", userID),
			slog.String("export_id", archive.Record.ID),
			slog.String("error", err.Error()),
		)
	}
}

// writeAttachmentHeaders はダウンロード用のヘッダーを設定する。
func writeAttachmentHeaders(w http.ResponseWriter, contentType, filename string, size int64) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	w.Header().Set("Cache-Control", "no-store")
}
