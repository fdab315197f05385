package model

import "time"

// ExportFormat はエクスポートのファイル形式を表す。
type ExportFormat string

const (
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatPPTX ExportFormat = "pptx"
)

// ExportRecord はオブジェクトストレージにアーカイブしたエクスポートファイルの記録。
type ExportRecord struct {
	ID        string       `json:"id"`
	UserID    string       `json:"userId"`
	DeckID    string       `json:"deckId"`
	Format    ExportFormat `json:"format"`
	ObjectKey string       `json:"-"`
	Filename  string       `json:"filename"`
	SizeBytes int64        `json:"sizeBytes"`
	CreatedAt time.Time    `json:"createdAt"`
}
