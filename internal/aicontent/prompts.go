package aicontent

import (
	"fmt"
	"math"
	"strings"

	"github.com/hitoshi/pitchdeck/internal/model"
)

const (
	deckSystemPrompt = "You are a top-tier pitch deck consultant with 15+ years of experience. " +
		"Create unique, compelling content that tells a specific story for each company. " +
		"Never use generic templates. Include realistic numbers, percentages, and concrete examples. " +
		"Vary your approach for each generation."

	regenerationSystemPrompt = "You are a pitch deck consultant who respects formatting preferences. " +
		"Always maintain the original content structure and format while providing fresh perspectives."

	suggestionSystemPrompt = "You are a visual design expert. " +
		"Suggest relevant, professional images for business presentations."
)

func buildDeckPrompt(in model.DeckInputs, session string) string {
	return fmt.Sprintf(`
Create a detailed 9-slide pitch deck for %[1]s.

COMPANY DETAILS:
- Industry: %[2]s
- Problem: %[3]s
- Solution: %[4]s
- Business Model: %[5]s
- Current Status: %[6]s

Generate unique, specific content for each slide. Session: %[7]s

CRITICAL INSTRUCTIONS:
- DO NOT copy the input text word-for-word
- EXPAND with specific numbers, percentages, examples
- Make the Traction slide highly specific with growth metrics
- Each slide should be investor-ready with concrete details
- Vary your language and avoid repetitive phrases

Create these 9 slides:
1. Cover - Company introduction with tagline
2. Problem - Market pain points with specific data
3. Solution - Detailed approach with benefits
4. Market - TAM/SAM with growth rates
5. Product - Key features and capabilities
6. Business Model - Revenue streams with pricing
7. Traction - Specific growth metrics (be creative but realistic)
8. Competition - Competitive analysis
9. Funding - Investment ask and use of funds

For each slide, provide:
- A clear title
- 3-5 detailed bullet points with specific numbers
- Avoid generic phrases like "key metrics" or "main points"

Make it compelling for %[2]s investors.
`, in.Company, in.Industry, in.Problem, in.Solution, in.Model, in.Financials, session)
}

// contentStructure は再生成時に維持すべき本文の形式。
type contentStructure struct {
	HasBulletPoints bool
	IsNarrative     bool
	Length          int
}

// analyzeContentStructure は本文が箇条書きか文章かを判定する。
func analyzeContentStructure(content string) contentStructure {
	trimmed := strings.TrimSpace(content)
	bullets := strings.ContainsAny(trimmed, "•-*")
	return contentStructure{
		HasBulletPoints: bullets,
		IsNarrative:     len(trimmed) > 200 && !bullets,
		Length:          len(trimmed),
	}
}

var alternativeApproaches = map[model.SlideType][]string{
	model.SlideTypeTitle:   {"storytelling approach", "problem-first narrative", "solution-centric positioning"},
	model.SlideTypeContent: {"data-driven framework", "customer-story approach", "competitive advantage focus"},
	model.SlideTypeChart:   {"visual-first presentation", "metrics-driven narrative", "growth-story framework"},
	model.SlideTypeImage:   {"visual storytelling", "emotion-driven narrative", "brand-focused approach"},
}

// alternativeApproach はスライド種別に応じた書き直しの切り口をランダムに選ぶ。
func (s *Service) alternativeApproach(slideType model.SlideType) string {
	options, ok := alternativeApproaches[slideType]
	if !ok {
		options = alternativeApproaches[model.SlideTypeContent]
	}
	return options[int(math.Floor(s.random()*float64(len(options))))]
}

func buildRegenerationPrompt(in RegenerateInput, slideType model.SlideType, approach string, unixMilli int64, cs contentStructure) string {
	context := in.Context
	if context == "" {
		context = "Business pitch deck slide"
	}
	var bulletRule, narrativeRule string
	if cs.HasBulletPoints {
		bulletRule = "- MAINTAIN bullet point format"
	}
	if cs.IsNarrative {
		narrativeRule = "- MAINTAIN narrative paragraph format"
	}

	return fmt.Sprintf(`
REGENERATE this slide with a fresh perspective while maintaining the SAME FORMAT:

ORIGINAL TITLE: %s
ORIGINAL CONTENT: %s
SLIDE TYPE: %s
CONTEXT: %s

FORMAT REQUIREMENTS:
%s
%s
- Keep the same level of detail and structure

NEW APPROACH: %s
SESSION: regen-%d

Return ONLY valid JSON with title, content, type, imageSuggestions, and notes.
Focus on clarity and investor impact while preserving the original format.
`, in.Title, strings.TrimSpace(in.Content), slideType, context, bulletRule, narrativeRule, approach, unixMilli)
}

func buildImageSuggestionPrompt(in SuggestInput, slideType model.SlideType) string {
	return fmt.Sprintf(`
Analyze this slide and suggest 2-3 relevant visuals:

TITLE: %s
CONTENT: %s
TYPE: %s

Return JSON array of image suggestions with type, description, searchTerms, altText, and style.
Focus on visuals that support the message and engage investors.
`, in.Title, in.Content, slideType)
}
