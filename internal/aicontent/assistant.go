package aicontent

import (
	"fmt"
	"regexp"
	"strings"
)

// Intent は編集アシスタントへの依頼の種類。
type Intent string

const (
	IntentRefine       Intent = "refine"
	IntentSpeakerNotes Intent = "speaker-notes"
	IntentGeneral      Intent = "general"
)

var (
	speakerNotesKeywords = []string{"speaker notes", "presentation script", "what should i say", "how do i present", "talking points"}
	refineKeywords       = []string{"improve", "refine", "make better", "rewrite", "enhance", "fix", "update", "revise"}
)

// DetectIntent は依頼の意図を判定する。auto以外の明示指定があればそれを優先する。
func DetectIntent(message, explicit string) Intent {
	switch Intent(explicit) {
	case IntentRefine, IntentSpeakerNotes, IntentGeneral:
		return Intent(explicit)
	}

	lower := strings.ToLower(message)
	if containsAny(lower, speakerNotesKeywords) {
		return IntentSpeakerNotes
	}
	if containsAny(lower, refineKeywords) {
		return IntentRefine
	}
	return IntentGeneral
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// buildAssistantPrompts は意図ごとのシステムプロンプト、ユーザープロンプト、最大トークン数を返す。
func buildAssistantPrompts(intent Intent, in AssistInput) (string, string, int) {
	switch intent {
	case IntentRefine:
		return "You are a pitch deck consultant. Provide improved slide content using clean, plain text formatting.",
			buildRefinePrompt(in), 800
	case IntentSpeakerNotes:
		return "You are a presentation coach. Create natural speaker notes using plain text only.",
			buildSpeakerNotesPrompt(in), 1200
	default:
		return "You are a pitch deck consultant. Provide advice using plain text only.",
			buildGeneralPrompt(in), 1000
	}
}

func optionalLine(cond bool, format string, args ...any) string {
	if !cond {
		return ""
	}
	return fmt.Sprintf(format, args...)
}

func buildRefinePrompt(in AssistInput) string {
	hasContent := strings.TrimSpace(in.SlideContent) != ""
	hasTitle := strings.TrimSpace(in.SlideTitle) != ""
	titleLine := optionalLine(hasTitle, "SLIDE TITLE: \"%s\"", in.SlideTitle)
	contextLine := optionalLine(in.Context != "", "CONTEXT: %s", in.Context)

	if !hasContent {
		return fmt.Sprintf(`
SLIDE CONTENT SUGGESTIONS:

USER REQUEST: %s
%s
%s

Suggest what should be included on this slide for investors.
`, in.Message, titleLine, contextLine)
	}

	return fmt.Sprintf(`
IMPROVE THIS SLIDE CONTENT:

USER REQUEST: %s
%s

CURRENT CONTENT:
%s

%s

Requirements:
- Make it more specific and investor-focused
- Add concrete numbers, percentages, or examples where appropriate
- Use professional language that resonates with investors
- Keep the core message but make it more impactful
- Maintain the same format (bullet points vs paragraphs)

Provide the improved content, then explain what you changed.
`, in.Message, titleLine, in.SlideContent, contextLine)
}

func buildSpeakerNotesPrompt(in AssistInput) string {
	hasContent := strings.TrimSpace(in.SlideContent) != ""
	hasTitle := strings.TrimSpace(in.SlideTitle) != ""

	contentBlock := "No slide content provided"
	guidance := "Create general guidance for presenting this type of slide effectively."
	if hasContent {
		contentBlock = "SLIDE CONTENT:\n" + in.SlideContent
		guidance = "Base the talking points directly on the slide content provided."
	}

	return fmt.Sprintf(`
CREATE SPEAKER NOTES:

USER REQUEST: %s
%s
%s

Create conversational speaker notes with:
- Opening transition
- Main talking points with supporting details
- Smooth transition to next slide
- Potential investor questions with response suggestions

%s
`, in.Message, optionalLine(hasTitle, "SLIDE TITLE: \"%s\"", in.SlideTitle), contentBlock, guidance)
}

func buildGeneralPrompt(in AssistInput) string {
	return fmt.Sprintf(`
PITCH DECK ADVICE:

USER QUESTION: %s
%s
%s

Provide specific, actionable advice for improving this pitch deck content.
Focus on making the pitch more compelling for investors.
`, in.Message,
		optionalLine(in.SlideTitle != "", "SLIDE: \"%s\"", in.SlideTitle),
		optionalLine(in.SlideContent != "", "CURRENT CONTENT:\n%s", in.SlideContent))
}

var (
	boldPattern     = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern   = regexp.MustCompile(`\*(.*?)\*`)
	headerPattern   = regexp.MustCompile(`#{1,6}\s`)
	codePattern     = regexp.MustCompile("`(.*?)`")
	emojiPattern    = regexp.MustCompile(`[\x{1F600}-\x{1F64F}\x{1F300}-\x{1F5FF}\x{1F680}-\x{1F6FF}\x{1F1E0}-\x{1F1FF}\x{2600}-\x{26FF}\x{2700}-\x{27BF}]`)
	bulletPattern   = regexp.MustCompile(`(?m)^[•\-*]\s*`)
	newlinesPattern = regexp.MustCompile(`\n{3,}`)
	linkPattern     = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
)

// CleanResponseFormatting はLLMの応答からマークダウン記法と絵文字を取り除き、
// 箇条書きの記号を「• 」にそろえる。
func CleanResponseFormatting(text string) string {
	cleaned := strings.TrimSpace(text)

	cleaned = boldPattern.ReplaceAllString(cleaned, "$1")
	cleaned = italicPattern.ReplaceAllString(cleaned, "$1")
	cleaned = headerPattern.ReplaceAllString(cleaned, "")
	cleaned = codePattern.ReplaceAllString(cleaned, "$1")
	cleaned = emojiPattern.ReplaceAllString(cleaned, "")
	cleaned = bulletPattern.ReplaceAllString(cleaned, "• ")
	cleaned = newlinesPattern.ReplaceAllString(cleaned, "\n\n")
	cleaned = linkPattern.ReplaceAllString(cleaned, "$1")

	return strings.TrimSpace(cleaned)
}
