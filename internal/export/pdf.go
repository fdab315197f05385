package export

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// A4横置き（mm）
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	pageMargin   = 20.0
	titleBarH    = 28.0
	bottomMargin = 20.0
)

const pdfFontFamily = "deck"

//go:embed fonts/*.ttf
var fontFS embed.FS

// PDFRenderer はfpdfでA4横置きのPDFを生成する。
// 本文はUTF-8のTrueTypeフォントで描画する。スタイルは "", "B", "I"。
type PDFRenderer struct {
	faces map[string][]byte
}

// NewPDFRenderer は埋め込みのDejaVu Sans Condensedを使うPDFRendererを生成する。
func NewPDFRenderer() *PDFRenderer {
	faces := make(map[string][]byte, 3)
	for style, name := range map[string]string{
		"":  "fonts/DejaVuSansCondensed.ttf",
		"B": "fonts/DejaVuSansCondensed-Bold.ttf",
		"I": "fonts/DejaVuSansCondensed-Oblique.ttf",
	} {
		data, err := fontFS.ReadFile(name)
		if err != nil {
			panic(fmt.Sprintf("embedded font %s: %v", name, err))
		}
		faces[style] = data
	}
	return &PDFRenderer{faces: faces}
}

// NewPDFRendererWithFont は指定のTTFを全スタイルに使うPDFRendererを生成する。
// 埋め込みフォントにないCJKなどの文字を出力する場合に使う。
// fpdfはOpenType(CFF)とTTCを読めないため、TrueTypeのみ受け付ける。
func NewPDFRendererWithFont(ttf []byte) (*PDFRenderer, error) {
	if !isTrueType(ttf) {
		return nil, errors.New("pdf font must be a TrueType (.ttf) file")
	}
	return &PDFRenderer{faces: map[string][]byte{"": ttf, "B": ttf, "I": ttf}}, nil
}

func isTrueType(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	return bytes.Equal(data[:4], []byte{0x00, 0x01, 0x00, 0x00}) || string(data[:4]) == "true"
}

func (r *PDFRenderer) Format() model.ExportFormat { return model.ExportFormatPDF }
func (r *PDFRenderer) ContentType() string        { return contentTypePDF }

// Render は表紙と1スライド1ページのPDFを生成する。
func (r *PDFRenderer) Render(ctx context.Context, doc *Document, theme Theme) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	for _, style := range []string{"", "B", "I"} {
		pdf.AddUTF8FontFromBytes(pdfFontFamily, style, r.faces[style])
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to load pdf font: %w", err)
	}

	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.CompanyName, true)
	pdf.SetCreator("pitchdeck", false)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, bottomMargin)
	pdf.AliasNbPages("")

	pdf.SetFooterFunc(func() {
		if doc.Watermark != "" {
			drawWatermark(pdf, doc.Watermark, theme)
		}
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetY(-12)
		pdf.SetFont(pdfFontFamily, "", 9)
		setTextColor(pdf, theme.Muted)
		pdf.CellFormat(0, 6, doc.CompanyName, "", 0, "L", false, 0, "")
		pdf.SetX(pageMargin)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	drawCover(pdf, doc, theme)

	for i, slide := range doc.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		drawSlide(pdf, slide, i+1, theme)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawCover(pdf *fpdf.Fpdf, doc *Document, theme Theme) {
	pdf.AddPage()
	fillPage(pdf, theme.Background)

	setFillColor(pdf, theme.Primary)
	pdf.Rect(0, 60, pageWidth, 70, "F")

	pdf.SetXY(pageMargin, 75)
	pdf.SetFont(pdfFontFamily, "B", 32)
	setTextColor(pdf, theme.TitleText)
	pdf.MultiCell(pageWidth-2*pageMargin, 14, doc.Title, "", "C", false)

	pdf.SetXY(pageMargin, 140)
	pdf.SetFont(pdfFontFamily, "", 16)
	setTextColor(pdf, theme.Text)
	pdf.CellFormat(pageWidth-2*pageMargin, 10, doc.CompanyName, "", 1, "C", false, 0, "")

	if doc.Description != "" {
		pdf.SetX(pageMargin)
		pdf.SetFont(pdfFontFamily, "I", 12)
		setTextColor(pdf, theme.Muted)
		pdf.MultiCell(pageWidth-2*pageMargin, 7, doc.Description, "", "C", false)
	}

	if !doc.CreatedAt.IsZero() {
		pdf.SetXY(pageMargin, pageHeight-30)
		pdf.SetFont(pdfFontFamily, "", 10)
		setTextColor(pdf, theme.Muted)
		pdf.CellFormat(pageWidth-2*pageMargin, 6, doc.CreatedAt.Format("January 2, 2006"), "", 1, "C", false, 0, "")
	}
}

func drawSlide(pdf *fpdf.Fpdf, slide DocumentSlide, number int, theme Theme) {
	pdf.AddPage()
	fillPage(pdf, theme.Background)

	setFillColor(pdf, theme.Primary)
	pdf.Rect(0, 0, pageWidth, titleBarH, "F")
	setFillColor(pdf, theme.Accent)
	pdf.Rect(0, titleBarH, pageWidth, 1.5, "F")

	pdf.SetXY(pageMargin, 8)
	pdf.SetFont(pdfFontFamily, "B", 22)
	setTextColor(pdf, theme.TitleText)
	pdf.CellFormat(pageWidth-2*pageMargin-15, 12, slide.Title, "", 0, "L", false, 0, "")
	pdf.SetFont(pdfFontFamily, "", 11)
	pdf.CellFormat(15, 12, fmt.Sprintf("%d", number), "", 0, "R", false, 0, "")

	pdf.SetXY(pageMargin, titleBarH+12)
	setTextColor(pdf, theme.Text)
	bodyWidth := pageWidth - 2*pageMargin
	for _, line := range splitBody(slide.Content) {
		switch {
		case line.Text == "":
			pdf.Ln(4)
		case line.Bullet:
			indent := 6.0 + float64(line.Level)*8
			pdf.SetFont(pdfFontFamily, "", 14)
			pdf.SetX(pageMargin + indent - 6)
			pdf.CellFormat(6, 8, "•", "", 0, "L", false, 0, "")
			pdf.MultiCell(bodyWidth-indent, 8, line.Text, "", "L", false)
		default:
			pdf.SetFont(pdfFontFamily, "", 14)
			pdf.SetX(pageMargin)
			pdf.MultiCell(bodyWidth, 8, line.Text, "", "L", false)
		}
	}

	if slide.Notes == "" {
		return
	}
	pdf.Ln(6)
	setDrawColor(pdf, theme.Muted)
	y := pdf.GetY()
	pdf.Line(pageMargin, y, pageWidth-pageMargin, y)
	pdf.Ln(3)
	pdf.SetX(pageMargin)
	pdf.SetFont(pdfFontFamily, "B", 10)
	setTextColor(pdf, theme.Muted)
	pdf.CellFormat(bodyWidth, 6, "Speaker Notes", "", 1, "L", false, 0, "")
	pdf.SetX(pageMargin)
	pdf.SetFont(pdfFontFamily, "I", 10)
	pdf.MultiCell(bodyWidth, 5, slide.Notes, "", "L", false)
}

func drawWatermark(pdf *fpdf.Fpdf, text string, theme Theme) {
	pdf.TransformBegin()
	pdf.TransformRotate(30, pageWidth/2, pageHeight/2)
	pdf.SetAlpha(0.12, "Normal")
	pdf.SetFont(pdfFontFamily, "B", 64)
	setTextColor(pdf, theme.Muted)
	pdf.SetXY(0, pageHeight/2-15)
	pdf.CellFormat(pageWidth, 30, text, "", 0, "C", false, 0, "")
	pdf.SetAlpha(1, "Normal")
	pdf.TransformEnd()
}

func fillPage(pdf *fpdf.Fpdf, c Color) {
	setFillColor(pdf, c)
	pdf.Rect(0, 0, pageWidth, pageHeight, "F")
}

func setFillColor(pdf *fpdf.Fpdf, c Color) {
	r, g, b := c.RGB()
	pdf.SetFillColor(r, g, b)
}

func setTextColor(pdf *fpdf.Fpdf, c Color) {
	r, g, b := c.RGB()
	pdf.SetTextColor(r, g, b)
}

func setDrawColor(pdf *fpdf.Fpdf, c Color) {
	r, g, b := c.RGB()
	pdf.SetDrawColor(r, g, b)
}

// compile-time interface check
var _ Renderer = (*PDFRenderer)(nil)
