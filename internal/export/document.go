// Package export はデッキをPDFおよびPowerPoint形式に変換する。
package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/hitoshi/pitchdeck/internal/model"
)

const (
	defaultTitle      = "Untitled Presentation"
	defaultSlideTitle = "Untitled Slide"
	defaultCompany    = "Company"
	defaultFilename   = "pitch_deck"
	defaultTemplate   = "professional"
)

// Options はエクスポートのオプション。
type Options struct {
	// IncludeNotes がnilの場合はtrueとして扱う。
	IncludeNotes *bool  `json:"includeNotes"`
	Template     string `json:"template"`
	Watermark    string `json:"watermark"`
}

// notesIncluded はスピーカーノートを含めるかどうかを返す。
func (o Options) notesIncluded() bool {
	return o.IncludeNotes == nil || *o.IncludeNotes
}

func (o Options) template() string {
	if t := strings.TrimSpace(o.Template); t != "" {
		return strings.ToLower(t)
	}
	return defaultTemplate
}

// Document はレンダラーに渡す出力用のデッキ表現。
type Document struct {
	Title       string
	Description string
	CompanyName string
	CreatedAt   time.Time
	Slides      []DocumentSlide
	Watermark   string
}

// DocumentSlide は出力用のスライド。Notesは出力対象の場合のみ設定される。
type DocumentSlide struct {
	Title   string
	Content string
	Type    model.SlideType
	Notes   string
}

// HasNotes はいずれかのスライドにノートがあるかを返す。
func (d *Document) HasNotes() bool {
	for _, s := range d.Slides {
		if s.Notes != "" {
			return true
		}
	}
	return false
}

// NewDocument はデッキから出力用のDocumentを組み立てる。
// スライドはorder順に並べ、空のタイトルには既定値を入れる。
func NewDocument(deck *model.Deck, opts Options) *Document {
	title := strings.TrimSpace(deck.Title)
	if title == "" {
		title = defaultTitle
	}

	doc := &Document{
		Title:       title,
		CompanyName: companyName(deck.Title),
		CreatedAt:   deck.CreatedAt,
		Watermark:   strings.TrimSpace(opts.Watermark),
	}
	if deck.Description != nil {
		doc.Description = *deck.Description
	}

	includeNotes := opts.notesIncluded()
	for _, s := range deck.SortedSlides() {
		ds := DocumentSlide{
			Title:   s.Title,
			Content: s.Content,
			Type:    s.Type,
		}
		if strings.TrimSpace(ds.Title) == "" {
			ds.Title = defaultSlideTitle
		}
		if ds.Type == "" {
			ds.Type = model.SlideTypeContent
		}
		if includeNotes && strings.TrimSpace(s.SpeakerNotes) != "" {
			ds.Notes = s.SpeakerNotes
		}
		doc.Slides = append(doc.Slides, ds)
	}
	return doc
}

var companySuffix = regexp.MustCompile(`(?i)\s*(pitch\s*deck|presentation|deck)$`)

// companyName はタイトル末尾の「Pitch Deck」等を取り除いて会社名とする。
// 取り除く語がない場合は既定値を返す。
func companyName(title string) string {
	if title == "" {
		return defaultCompany
	}
	cleaned := strings.TrimSpace(companySuffix.ReplaceAllString(title, ""))
	if cleaned == "" || cleaned == title {
		return defaultCompany
	}
	return cleaned
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// maxFilenameBase はタイムスタンプと拡張子を付けてもexports.filenameの列長に収まる長さ。
const maxFilenameBase = 200

// Filename はダウンロード用のファイル名を返す。
// 英数字以外は「_」に置き換え、末尾にミリ秒のタイムスタンプを付ける。
func Filename(title string, format model.ExportFormat, now time.Time) string {
	base := unsafeFilenameChars.ReplaceAllString(title, "_")
	if len(base) > maxFilenameBase {
		base = base[:maxFilenameBase]
	}
	if base == "" {
		base = defaultFilename
	}
	return fmt.Sprintf("%s_%d.%s", base, now.UnixMilli(), format)
}

// bodyLine は本文の1行を箇条書きかどうかで分類したもの。
type bodyLine struct {
	Text   string
	Bullet bool
	Level  int
}

// splitBody は本文を行に分け、先頭の「•」「-」「*」を箇条書きとして認識する。
// 先頭に空白がある箇条書きは1段深いレベルとする。
func splitBody(content string) []bodyLine {
	var lines []bodyLine
	for _, raw := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			lines = append(lines, bodyLine{})
			continue
		}
		level := 0
		if raw != strings.TrimLeft(raw, " \t") {
			level = 1
		}
		if text, ok := stripBulletMarker(trimmed); ok {
			lines = append(lines, bodyLine{Text: text, Bullet: true, Level: level})
			continue
		}
		lines = append(lines, bodyLine{Text: trimmed})
	}
	return trimBlankLines(lines)
}

func stripBulletMarker(line string) (string, bool) {
	for _, marker := range []string{"•", "-", "*"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker)), true
		}
	}
	return "", false
}

func trimBlankLines(lines []bodyLine) []bodyLine {
	for len(lines) > 0 && lines[0].Text == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1].Text == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
