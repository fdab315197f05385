package aicontent

import (
	"fmt"
	"math"
	"strings"

	"github.com/hitoshi/pitchdeck/internal/model"
)

// metric はmin以上max未満の値に±10のゆらぎを加えた数値を返す。
func (s *Service) metric(lo, hi int) int {
	base := int(math.Floor(s.random()*float64(hi-lo) + float64(lo)))
	variance := int(math.Floor(s.random()*20)) - 10
	return base + variance
}

func (s *Service) growthPercent() int { return int(math.Floor(s.random()*150 + 180)) }
func (s *Service) revenueK() int      { return int(math.Floor(s.random()*200 + 50)) }
func (s *Service) activeUsers() int   { return int(math.Floor(s.random()*4000 + 1000)) }

// extractHighlight はLLMの応答から見出しや装飾を含まない行を1つ選ぶ。
// 候補は先頭3行までで、候補がなければfallbackを返す。
func (s *Service) extractHighlight(text, fallback string) string {
	var candidates []string
	for _, line := range strings.Split(text, "\n") {
		if len(line) <= 20 {
			continue
		}
		if strings.Contains(line, "Slide") || strings.Contains(line, "###") || strings.Contains(line, "**") {
			continue
		}
		candidates = append(candidates, line)
	}
	if len(candidates) == 0 {
		return fallback
	}
	n := min(3, len(candidates))
	return strings.TrimSpace(candidates[int(math.Floor(s.random()*float64(n)))])
}

// buildOutlineSlides は9枚の固定構成にLLMのハイライトと指標を埋め込む。
func (s *Service) buildOutlineSlides(text string, in model.DeckInputs) []model.Slide {
	industryLower := strings.ToLower(in.Industry)

	slides := []model.Slide{
		{
			Title: "Company Overview",
			Content: fmt.Sprintf("%s - Pioneering %s Innovation\n\n"+
				"• Disrupting traditional %s with cutting-edge technology\n"+
				"• Founded in 2024 with %d months of R&D\n"+
				"• Targeting $%dB global market opportunity\n"+
				"• Pre-revenue startup with %d month runway\n"+
				"• Team of %d engineers and domain experts",
				in.Company, in.Industry, industryLower,
				s.metric(18, 36), s.metric(50, 500), s.metric(8, 24), s.metric(5, 15)),
			Type:             model.SlideTypeTitle,
			ImageSuggestions: topicImageSuggestions("startup"),
		},
		{
			Title: "Market Challenge",
			Content: fmt.Sprintf("Critical Industry Pain Points:\n\n%s\n\n"+
				"• Market inefficiencies cost industry $%dB annually\n"+
				"• %d%% of companies struggle with current solutions\n"+
				"• Legacy systems fail %d%% of critical operations\n"+
				"• Average company loses %d%% efficiency due to these issues",
				s.extractHighlight(text, in.Problem),
				s.metric(10, 100), s.metric(65, 85), s.metric(40, 70), s.metric(15, 40)),
			Type:             model.SlideTypeContent,
			ImageSuggestions: topicImageSuggestions("problem"),
		},
		{
			Title: "Our Solution",
			Content: fmt.Sprintf("%s Revolutionary Platform:\n\n%s\n\n"+
				"• Delivers %dx faster processing than competitors\n"+
				"• Reduces operational costs by %d%%\n"+
				"• Proprietary algorithms with %d%% accuracy\n"+
				"• Cloud-native architecture supporting %dK+ concurrent users\n"+
				"• Real-time analytics with sub-second response times",
				in.Company, s.extractHighlight(text, in.Solution),
				s.metric(3, 8), s.metric(35, 70), s.metric(92, 99), s.metric(10, 100)),
			Type:             model.SlideTypeContent,
			ImageSuggestions: topicImageSuggestions("solution"),
		},
		{
			Title: "Market Opportunity",
			Content: fmt.Sprintf("Massive %s Market Potential:\n\n"+
				"• Total Addressable Market (TAM): $%dB globally\n"+
				"• Serviceable Addressable Market (SAM): $%dB\n"+
				"• Serviceable Obtainable Market (SOM): $%dB\n"+
				"• Market growing at %d%% CAGR through 2028\n"+
				"• Early adopter segment worth $%dM\n"+
				"• Expansion opportunities in %d international markets",
				in.Industry,
				s.metric(25, 150), s.metric(5, 40), s.metric(1, 8),
				s.metric(18, 35), s.metric(500, 5000), s.metric(12, 45)),
			Type:             model.SlideTypeChart,
			ImageSuggestions: topicImageSuggestions("market"),
		},
		{
			Title: "Product Platform",
			Content: fmt.Sprintf("%s Core Capabilities:\n\n"+
				"• Advanced %s analytics engine with ML/AI\n"+
				"• Intuitive dashboard with %d%% user satisfaction\n"+
				"• Mobile-first design supporting iOS and Android\n"+
				"• API ecosystem with %d+ third-party integrations\n"+
				"• Enterprise security with SOC 2 Type II compliance\n"+
				"• Multi-tenant architecture supporting unlimited scaling",
				in.Company, industryLower, s.metric(90, 99), s.metric(25, 100)),
			Type:             model.SlideTypeImage,
			ImageSuggestions: topicImageSuggestions("product"),
		},
		{
			Title: "Business Model",
			Content: fmt.Sprintf("Diversified Revenue Strategy:\n\n%s\n\n"+
				"• Subscription tiers: Starter ($%d/month), Pro ($%d/month), Enterprise (custom)\n"+
				"• Professional services: $%d/hour implementation\n"+
				"• Data analytics premium: %d%% revenue share\n"+
				"• Gross margins: %d%% across all products\n"+
				"• Average customer LTV: $%dK",
				s.extractHighlight(text, in.Model),
				s.metric(49, 199), s.metric(299, 699), s.metric(150, 400),
				s.metric(15, 30), s.metric(72, 88), s.metric(50, 200)),
			Type:             model.SlideTypeContent,
			ImageSuggestions: topicImageSuggestions("business model"),
		},
		{
			Title: "Traction & Performance",
			Content: fmt.Sprintf("Exceptional Early Results:\n\n%s\n\n"+
				"• %d%% month-over-month user growth\n"+
				"• %d+ active users across %d companies\n"+
				"• $%dK annual recurring revenue with %d%% retention\n"+
				"• %d enterprise partnerships signed in last quarter\n"+
				"• Featured in %d major industry publications\n"+
				"• %d%% customer satisfaction score (NPS: %d)",
				s.extractHighlight(text, in.Financials),
				s.growthPercent(), s.activeUsers(), s.metric(15, 40),
				s.revenueK(), s.metric(88, 97), s.metric(4, 12),
				s.metric(6, 18), s.metric(92, 99), s.metric(65, 85)),
			Type:             model.SlideTypeChart,
			ImageSuggestions: topicImageSuggestions("traction"),
		},
		{
			Title: "Competitive Landscape",
			Content: fmt.Sprintf("Strong Competitive Position:\n\n"+
				"• %d direct competitors with legacy approaches\n"+
				"• %s delivers %dx superior performance metrics\n"+
				"• Proprietary IP portfolio with %d patents pending\n"+
				"• First-mover advantage in AI-powered %s\n"+
				"• Superior technology stack built by ex-{Google/Microsoft/Amazon} engineers\n"+
				"• %d month technical lead over closest competitor",
				s.metric(4, 12), in.Company, s.metric(2, 6), s.metric(3, 9),
				industryLower, s.metric(12, 30)),
			Type:             model.SlideTypeContent,
			ImageSuggestions: topicImageSuggestions("competition"),
		},
		{
			Title: "Investment Opportunity",
			Content: fmt.Sprintf("Series A Funding Initiative:\n\n"+
				"• Raising: $%dM Series A investment round\n"+
				"• Pre-money valuation: $%dM based on comparable exits\n"+
				"• Use of funds breakdown:\n"+
				"  - %d%% Product development and engineering talent\n"+
				"  - %d%% Sales, marketing, and customer acquisition\n"+
				"  - %d%% Strategic partnerships and business development\n"+
				"• Projected %d month runway to profitability\n"+
				"• Clear path to $%dM ARR by Series B",
				s.metric(3, 15), s.metric(18, 75), s.metric(45, 65),
				s.metric(20, 35), s.metric(10, 25), s.metric(18, 30), s.metric(15, 75)),
			Type:             model.SlideTypeContent,
			ImageSuggestions: topicImageSuggestions("funding"),
		},
	}

	for i := range slides {
		slides[i].Order = i + 1
	}
	return slides
}
