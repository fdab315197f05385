package aicontent

import "github.com/hitoshi/pitchdeck/internal/model"

// topicImageSuggestions はデッキ案の各トピックに添える画像提案を返す。
// 定義のないトピックはcontent用の既定提案になる。
func topicImageSuggestions(topic string) []model.ImageSuggestion {
	switch topic {
	case "startup":
		return []model.ImageSuggestion{{
			Type:        "stock",
			Description: "Modern startup team collaboration in tech office",
			SearchTerms: []string{"startup", "team", "innovation", "technology"},
			AltText:     "Diverse startup team working together",
			Style:       "modern",
		}}
	case "problem":
		return []model.ImageSuggestion{{
			Type:        "chart",
			Description: "Industry problem statistics and impact visualization",
			SearchTerms: []string{"problem", "statistics", "industry", "challenge"},
			AltText:     "Chart showing industry challenges and their impact",
			Style:       "professional",
		}}
	case "solution":
		return []model.ImageSuggestion{{
			Type:        "diagram",
			Description: "Solution architecture and technology stack",
			SearchTerms: []string{"solution", "technology", "platform", "architecture"},
			AltText:     "Technology platform architecture diagram",
			Style:       "modern",
		}}
	default:
		return FallbackImageSuggestions(model.SlideTypeContent)
	}
}

// FallbackImageSuggestions はLLMが使えない場合のスライド種別ごとの画像提案を返す。
func FallbackImageSuggestions(slideType model.SlideType) []model.ImageSuggestion {
	switch slideType {
	case model.SlideTypeTitle:
		return []model.ImageSuggestion{{
			Type:        "stock",
			Description: "Professional business imagery",
			SearchTerms: []string{"business", "professional", "corporate"},
			AltText:     "Business professional image",
			Style:       "corporate",
		}}
	case model.SlideTypeChart:
		return []model.ImageSuggestion{{
			Type:        "chart",
			Description: "Data visualization chart",
			SearchTerms: []string{"chart", "graph", "data", "metrics"},
			AltText:     "Data chart visualization",
			Style:       "professional",
		}}
	case model.SlideTypeImage:
		return []model.ImageSuggestion{{
			Type:        "stock",
			Description: "Professional stock photo",
			SearchTerms: []string{"professional", "business", "modern"},
			AltText:     "Professional business image",
			Style:       "modern",
		}}
	default:
		return []model.ImageSuggestion{{
			Type:        "icon",
			Description: "Relevant business icon",
			SearchTerms: []string{"business", "concept", "professional"},
			AltText:     "Business concept icon",
			Style:       "minimalist",
		}}
	}
}
