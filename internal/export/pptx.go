package export

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/hitoshi/pitchdeck/internal/model"
)

var pptxTemplates = template.Must(template.New("pptx").Funcs(template.FuncMap{
	"xml": xmlEscape,
	"add": func(a, b int) int { return a + b },
}).Parse(pptxTemplateText))

// 文字サイズ（1/100pt）と箇条書きのインデント（EMU）
const (
	titleFontSize   = 3200
	bodyFontSize    = 2000
	bulletMarginEMU = 342900
	levelMarginEMU  = 457200
)

type pptxRun struct {
	Text  string
	Size  int
	Bold  bool
	Color string
	Font  string
}

type pptxParagraph struct {
	Run        pptxRun
	Bullet     bool
	Empty      bool
	MarginLeft int
}

type pptxSlide struct {
	Index      int
	TitleRun   pptxRun
	Paragraphs []pptxParagraph
	Notes      []string
}

type pptxData struct {
	Doc      *Document
	Theme    Theme
	Slides   []pptxSlide
	HasNotes bool
	Created  string
}

type pptxSlideData struct {
	Theme     Theme
	Slide     pptxSlide
	Watermark string
}

// PPTXRenderer はOOXML（PresentationML）をzipに書き出してPowerPointファイルを生成する。
type PPTXRenderer struct {
	now func() time.Time
}

// NewPPTXRenderer はPPTXRendererを生成する。
func NewPPTXRenderer() *PPTXRenderer { return &PPTXRenderer{now: time.Now} }

func (r *PPTXRenderer) Format() model.ExportFormat { return model.ExportFormatPPTX }
func (r *PPTXRenderer) ContentType() string        { return contentTypePPTX }

// Render はデッキの各スライドを1枚ずつ持つプレゼンテーションを生成する。
// ノートのあるスライドにはノートページを付ける。
func (r *PPTXRenderer) Render(ctx context.Context, doc *Document, theme Theme) ([]byte, error) {
	created := doc.CreatedAt
	if created.IsZero() {
		created = r.now()
	}
	data := pptxData{
		Doc:      doc,
		Theme:    theme,
		HasNotes: doc.HasNotes(),
		Created:  created.UTC().Format(time.RFC3339),
	}
	for i, s := range doc.Slides {
		data.Slides = append(data.Slides, buildPPTXSlide(i+1, s, theme))
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"docProps/core.xml",
		"docProps/app.xml",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/presProps.xml",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideMasters/_rels/slideMaster1.xml.rels",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/slideLayouts/_rels/slideLayout1.xml.rels",
	}
	for _, name := range parts {
		if err := writePart(zw, name, name, data); err != nil {
			return nil, err
		}
	}
	if err := writePart(zw, "ppt/theme/theme1.xml", "theme", data); err != nil {
		return nil, err
	}

	if data.HasNotes {
		for _, name := range []string{"ppt/notesMasters/notesMaster1.xml", "ppt/notesMasters/_rels/notesMaster1.xml.rels"} {
			if err := writePart(zw, name, name, data); err != nil {
				return nil, err
			}
		}
		if err := writePart(zw, "ppt/theme/theme2.xml", "theme", data); err != nil {
			return nil, err
		}
	}

	for _, slide := range data.Slides {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sd := pptxSlideData{Theme: theme, Slide: slide, Watermark: doc.Watermark}
		if err := writePart(zw, fmt.Sprintf("ppt/slides/slide%d.xml", slide.Index), "slide", sd); err != nil {
			return nil, err
		}
		if err := writePart(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slide.Index), "slideRels", sd); err != nil {
			return nil, err
		}
		if len(slide.Notes) == 0 {
			continue
		}
		if err := writePart(zw, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", slide.Index), "notesSlide", sd); err != nil {
			return nil, err
		}
		if err := writePart(zw, fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", slide.Index), "notesSlideRels", sd); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize pptx: %w", err)
	}
	return buf.Bytes(), nil
}

func buildPPTXSlide(index int, s DocumentSlide, theme Theme) pptxSlide {
	slide := pptxSlide{
		Index: index,
		TitleRun: pptxRun{
			Text:  s.Title,
			Size:  titleFontSize,
			Bold:  true,
			Color: theme.TitleText.Hex(),
			Font:  theme.PPTXFont,
		},
	}

	for _, line := range splitBody(s.Content) {
		if line.Text == "" {
			slide.Paragraphs = append(slide.Paragraphs, pptxParagraph{Empty: true})
			continue
		}
		p := pptxParagraph{
			Run: pptxRun{
				Text:  line.Text,
				Size:  bodyFontSize,
				Color: theme.Text.Hex(),
				Font:  theme.PPTXFont,
			},
			Bullet: line.Bullet,
		}
		if line.Bullet {
			p.MarginLeft = bulletMarginEMU + line.Level*levelMarginEMU
		}
		slide.Paragraphs = append(slide.Paragraphs, p)
	}

	if s.Notes != "" {
		slide.Notes = strings.Split(strings.ReplaceAll(s.Notes, "\r\n", "\n"), "\n")
	}
	return slide
}

func writePart(zw *zip.Writer, name, tmpl string, data any) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	if err := pptxTemplates.ExecuteTemplate(w, tmpl, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// compile-time interface check
var _ Renderer = (*PPTXRenderer)(nil)
