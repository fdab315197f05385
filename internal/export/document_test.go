package export

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/hitoshi/pitchdeck/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }

func sampleDeck() *model.Deck {
	return &model.Deck{
		ID:          "deck-1",
		UserID:      "user-1",
		Title:       "Acme Pitch Deck",
		Description: strPtr("Seed round"),
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Slides: []model.Slide{
			{ID: "s2", Title: "Problem", Content: "• Slow\n• Costly", Type: model.SlideTypeContent, Order: 2, SpeakerNotes: "Pause here"},
			{ID: "s1", Title: "", Content: "Acme", Type: model.SlideTypeTitle, Order: 1, SpeakerNotes: "   "},
			{ID: "s3", Title: "Ask", Content: "$2M", Order: 3},
		},
	}
}

func TestNewDocument(t *testing.T) {
	doc := NewDocument(sampleDeck(), Options{Watermark: " DRAFT "})

	want := &Document{
		Title:       "Acme Pitch Deck",
		Description: "Seed round",
		CompanyName: "Acme",
		CreatedAt:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Watermark:   "DRAFT",
		Slides: []DocumentSlide{
			{Title: "Untitled Slide", Content: "Acme", Type: model.SlideTypeTitle},
			{Title: "Problem", Content: "• Slow\n• Costly", Type: model.SlideTypeContent, Notes: "Pause here"},
			{Title: "Ask", Content: "$2M", Type: model.SlideTypeContent},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("NewDocument() mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, doc.HasNotes())
}

func TestNewDocument_ExcludeNotes(t *testing.T) {
	doc := NewDocument(sampleDeck(), Options{IncludeNotes: boolPtr(false)})
	assert.False(t, doc.HasNotes())
}

func TestNewDocument_Defaults(t *testing.T) {
	doc := NewDocument(&model.Deck{}, Options{})
	assert.Equal(t, "Untitled Presentation", doc.Title)
	assert.Equal(t, "Company", doc.CompanyName)
	assert.Empty(t, doc.Slides)
}

func TestCompanyName(t *testing.T) {
	tests := map[string]string{
		"Acme Pitch Deck":       "Acme",
		"acme pitchdeck":        "acme",
		"Globex Presentation":   "Globex",
		"Initech DECK":          "Initech",
		"Acme":                  "Company",
		"Pitch Deck":            "Company",
		"":                      "Company",
		"Deck Builders Company": "Company",
	}
	for title, want := range tests {
		assert.Equal(t, want, companyName(title), title)
	}
}

func TestFilename(t *testing.T) {
	now := time.UnixMilli(1767225600000)
	assert.Equal(t, "Acme_Pitch_Deck_1767225600000.pdf", Filename("Acme Pitch Deck", model.ExportFormatPDF, now))
	assert.Equal(t, "Q3__Plan__1767225600000.pptx", Filename("Q3: Plan!", model.ExportFormatPPTX, now))
	assert.Equal(t, "pitch_deck_1767225600000.pdf", Filename("", model.ExportFormatPDF, now))

	long := Filename(strings.Repeat("株", model.MaxDeckTitleLength), model.ExportFormatPPTX, now)
	assert.LessOrEqual(t, len(long), 255)
	assert.True(t, strings.HasSuffix(long, "_1767225600000.pptx"))
}

func TestSplitBody(t *testing.T) {
	got := splitBody("\nIntro line\n\n• First\n  - Nested\n*Third\n\n")
	want := []bodyLine{
		{Text: "Intro line"},
		{},
		{Text: "First", Bullet: true},
		{Text: "Nested", Bullet: true, Level: 1},
		{Text: "Third", Bullet: true},
	}
	assert.Equal(t, want, got)
}

func TestOptionsTemplate(t *testing.T) {
	assert.Equal(t, "professional", Options{}.template())
	assert.Equal(t, "modern", Options{Template: " Modern "}.template())
}
