package export

import (
	"context"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// Renderer はDocumentを特定の形式のバイト列に変換する。
type Renderer interface {
	Format() model.ExportFormat
	ContentType() string
	Render(ctx context.Context, doc *Document, theme Theme) ([]byte, error)
}

const (
	contentTypePDF  = "application/pdf"
	contentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)
