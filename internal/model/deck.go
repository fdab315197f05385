package model

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"
)

// DeckStatus はデッキの公開状態を表す。
type DeckStatus string

const (
	DeckStatusDraft     DeckStatus = "draft"
	DeckStatusPublished DeckStatus = "published"
	DeckStatusArchived  DeckStatus = "archived"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s DeckStatus) Valid() bool {
	switch s {
	case DeckStatusDraft, DeckStatusPublished, DeckStatusArchived:
		return true
	default:
		return false
	}
}

// SlideType はスライドの種別を表す。
type SlideType string

const (
	SlideTypeTitle   SlideType = "title"
	SlideTypeContent SlideType = "content"
	SlideTypeImage   SlideType = "image"
	SlideTypeChart   SlideType = "chart"
)

// Valid はスライド種別が定義済みの値かどうかを返す。空文字は未指定として許可する。
func (t SlideType) Valid() bool {
	switch t {
	case "", SlideTypeTitle, SlideTypeContent, SlideTypeImage, SlideTypeChart:
		return true
	default:
		return false
	}
}

// MaxDeckTitleLength はデッキタイトルの最大文字数（decks.titleの列長）。
const MaxDeckTitleLength = 255

// TruncateRunes はsを先頭からmax文字までに切り詰める。
func TruncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}

// DefaultThumbnail は一覧表示でサムネイル未設定のデッキに使うCSSグラデーション。
const DefaultThumbnail = "bg-gradient-to-br from-blue-500 to-purple-600"

// ImageSuggestion はスライドに添える画像の提案を表す。
type ImageSuggestion struct {
	Type        string   `json:"type"` // stock, icon, chart, diagram, illustration
	Description string   `json:"description"`
	SearchTerms []string `json:"searchTerms"`
	AltText     string   `json:"altText"`
	Style       string   `json:"style,omitempty"`
}

// Slide はデッキ内の1ページを表す値オブジェクト。
// decks.slides のJSONB列にそのまま保存される。
type Slide struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	Type             SlideType         `json:"type,omitempty"`
	Order            int               `json:"order"`
	ImagePrompts     []string          `json:"imagePrompts,omitempty"`
	ImageSuggestions []ImageSuggestion `json:"imageSuggestions,omitempty"`
	SpeakerNotes     string            `json:"speakerNotes,omitempty"`
}

// Deck は永続化されたプレゼンテーションを表す。
type Deck struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Slides      []Slide    `json:"slides"`
	Status      DeckStatus `json:"status"`
	Thumbnail   *string    `json:"thumbnail,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// SortedSlides はorder昇順に並べたスライドのコピーを返す。
// 同一orderの場合は元の並びを維持する。
func (d *Deck) SortedSlides() []Slide {
	out := slices.Clone(d.Slides)
	slices.SortStableFunc(out, func(a, b Slide) int {
		return a.Order - b.Order
	})
	return out
}

// FindSlide は指定IDのスライドの位置を返す。見つからない場合は-1を返す。
func (d *Deck) FindSlide(slideID string) int {
	return slices.IndexFunc(d.Slides, func(s Slide) bool {
		return s.ID == slideID
	})
}

// DeckInputs はAIによるデッキ生成の入力項目を表す。
type DeckInputs struct {
	Company    string `json:"company"`
	Industry   string `json:"industry"`
	Problem    string `json:"problem"`
	Solution   string `json:"solution"`
	Model      string `json:"model"`
	Financials string `json:"financials"`
}

// Validate は生成に必須の項目（company, problem, solution）を検証する。
func (in DeckInputs) Validate() error {
	var missing []string
	if strings.TrimSpace(in.Company) == "" {
		missing = append(missing, "company")
	}
	if strings.TrimSpace(in.Problem) == "" {
		missing = append(missing, "problem")
	}
	if strings.TrimSpace(in.Solution) == "" {
		missing = append(missing, "solution")
	}
	if len(missing) > 0 {
		return NewValidationError("Missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// GeneratedOutline はAIが生成したデッキ案を表す。
type GeneratedOutline struct {
	Outline string     `json:"outline"`
	Slides  []Slide    `json:"slides"`
	Inputs  DeckInputs `json:"inputs"`
}
