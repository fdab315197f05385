package deck

import (
	"github.com/hitoshi/pitchdeck/internal/model"
)

// fallbackSlides はAIがスライドを返さなかった場合の定型9枚を返す。
func fallbackSlides(in model.DeckInputs) []model.Slide {
	slides := []model.Slide{
		{
			Title:   "Cover",
			Content: in.Company + "\n\n" + in.Industry + " Innovation\n\nSeed Stage - Series A Ready",
			Type:    model.SlideTypeTitle,
		},
		{
			Title:        "Problem",
			Content:      in.Problem + "\n\n• Market pain points\n• Current solutions are inadequate\n• Large addressable market",
			Type:         model.SlideTypeContent,
			ImagePrompts: []string{"Problem illustration", "Challenge visualization"},
			ImageSuggestions: []model.ImageSuggestion{{
				Type:        "icon",
				Description: "Icon representing challenges or problems",
				SearchTerms: []string{"problem", "challenge", "pain point", "frustration"},
				AltText:     "Icon representing the problem being solved",
			}},
		},
		{
			Title:        "Solution",
			Content:      in.Solution + "\n\n• Unique value proposition\n• Key differentiators\n• Technology/approach overview",
			Type:         model.SlideTypeContent,
			ImagePrompts: []string{"Solution concept", "Innovation visualization"},
			ImageSuggestions: []model.ImageSuggestion{{
				Type:        "diagram",
				Description: "Flow diagram showing the solution process",
				SearchTerms: []string{"solution", "innovation", "process", "workflow"},
				AltText:     "Diagram illustrating the solution approach",
			}},
		},
		{
			Title:        "Market Opportunity",
			Content:      "Market Size: $X billion TAM\n\nTarget Market:\n• Primary segment\n• Secondary opportunities\n• Growth projections",
			Type:         model.SlideTypeContent,
			ImagePrompts: []string{"Market growth chart", "Industry statistics"},
		},
		{
			Title:   "Business Model",
			Content: in.Model + "\n\n• Revenue streams\n• Pricing strategy\n• Unit economics",
			Type:    model.SlideTypeContent,
		},
		{
			Title:   "Traction & Financials",
			Content: in.Financials + "\n\n• Key metrics\n• Growth trajectory\n• Revenue projections",
			Type:    model.SlideTypeChart,
		},
		{
			Title:   "Competition",
			Content: "Competitive landscape analysis\n\n• Direct competitors\n• Indirect competitors\n• Our competitive advantage",
			Type:    model.SlideTypeContent,
		},
		{
			Title:   "Team",
			Content: "Meet the founding team\n\n• CEO/Founder background\n• Key team members\n• Advisory board",
			Type:    model.SlideTypeContent,
		},
		{
			Title:   "Funding Ask",
			Content: "Investment details\n\n• Amount seeking: $X\n• Use of funds\n• Milestones to achieve",
			Type:    model.SlideTypeContent,
		},
	}

	for i := range slides {
		slides[i].ID = newSlideID()
	}
	return renumber(slides)
}
