// Package aicontent はLLMを使ったピッチデッキ向けコンテンツ生成を提供する。
// デッキ案の生成、スライドの再生成、画像提案、編集アシスタントを扱う。
package aicontent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitchdeck/internal/llm"
	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/security"
)

// 生成するデッキの最低スライド数
const minOutlineSlides = 8

// ModelSet は操作ごとに使うモデル名。空の場合はクライアントの既定モデルを使う。
type ModelSet struct {
	Outline string
	Chat    string
	Suggest string
	Health  string
}

// SuggestionCache は画像提案の結果をスライド種別と本文ごとに保持する。
type SuggestionCache interface {
	Get(ctx context.Context, slideType, content string) ([]model.ImageSuggestion, bool)
	Set(ctx context.Context, slideType, content string, suggestions []model.ImageSuggestion)
}

// RegenerateInput はスライド再生成の入力。
type RegenerateInput struct {
	Title   string
	Content string
	Type    model.SlideType
	Context string
}

// RegeneratedSlide は再生成されたスライド。
type RegeneratedSlide struct {
	Title            string                  `json:"title"`
	Content          string                  `json:"content"`
	Type             model.SlideType         `json:"type"`
	ImageSuggestions []model.ImageSuggestion `json:"imageSuggestions"`
	Notes            string                  `json:"notes"`
}

// SuggestInput は画像提案の入力。
type SuggestInput struct {
	Title   string
	Content string
	Type    model.SlideType
}

// Service はAIコンテンツ生成のサービス層。
type Service struct {
	client    llm.Client
	models    ModelSet
	cache     SuggestionCache
	sanitizer security.TextSanitizer
	timeout   time.Duration

	random func() float64
	now    func() time.Time
}

// NewService はServiceを生成する。cacheはnilでもよい。
// timeoutが0以下の場合はLLM呼び出しに独自のタイムアウトを設けない。
func NewService(
	client llm.Client,
	models ModelSet,
	cache SuggestionCache,
	sanitizer security.TextSanitizer,
	timeout time.Duration,
) *Service {
	return &Service{
		client:    client,
		models:    models,
		cache:     cache,
		sanitizer: sanitizer,
		timeout:   timeout,
		random:    rand.Float64,
		now:       time.Now,
	}
}

// complete はタイムアウト付きでLLMを呼び出す。
func (s *Service) complete(ctx context.Context, req llm.Request) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.client.Complete(ctx, req)
}

// GenerateDeckOutline は入力された会社情報から9枚構成のデッキ案を生成する。
// LLMの応答からハイライト行を抜き出し、固定のスライド構成に組み込む。
func (s *Service) GenerateDeckOutline(ctx context.Context, in model.DeckInputs) (*model.GeneratedOutline, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	session := fmt.Sprintf("%s-%d", uuid.New().String(), s.now().UnixMilli())
	text, err := s.complete(ctx, llm.Request{
		Operation:        "generate_deck",
		Model:            s.models.Outline,
		System:           deckSystemPrompt,
		User:             buildDeckPrompt(in, session),
		MaxTokens:        3000,
		Temperature:      0.9,
		PresencePenalty:  0.7,
		FrequencyPenalty: 0.8,
	})
	if err != nil {
		slog.Error("deck outline generation failed",
			slog.String("company", in.Company),
			slog.String("error", err.Error()),
		)
		return nil, model.NewAIUnavailableError("generate deck")
	}

	slides := s.buildOutlineSlides(text, in)
	if len(slides) < minOutlineSlides {
		return nil, model.NewAIInvalidResponseError("insufficient slides generated")
	}

	return &model.GeneratedOutline{
		Outline: fmt.Sprintf("AI-generated pitch deck for %s - %s...", in.Company, truncateRunes(text, 200)),
		Slides:  slides,
		Inputs:  in,
	}, nil
}

// regeneratedPayload はスライド再生成でモデルが返すJSON。
// contentは文字列または文字列配列のどちらでも受け付ける。
type regeneratedPayload struct {
	Title            string                  `json:"title"`
	Content          json.RawMessage         `json:"content"`
	ImageSuggestions []model.ImageSuggestion `json:"imageSuggestions"`
	Notes            string                  `json:"notes"`
}

// RegenerateSlide は既存スライドの形式を保ったまま別の切り口で書き直す。
func (s *Service) RegenerateSlide(ctx context.Context, in RegenerateInput) (*RegeneratedSlide, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, model.NewValidationError("Slide title is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, model.NewValidationError("Slide content is required")
	}

	slideType := in.Type
	if slideType == "" {
		slideType = model.SlideTypeContent
	}
	approach := s.alternativeApproach(slideType)
	analysis := analyzeContentStructure(in.Content)

	text, err := s.complete(ctx, llm.Request{
		Operation:        "regenerate_slide",
		Model:            s.models.Chat,
		System:           regenerationSystemPrompt,
		User:             buildRegenerationPrompt(in, slideType, approach, s.now().UnixMilli(), analysis),
		MaxTokens:        1000,
		Temperature:      0.8,
		PresencePenalty:  0.6,
		FrequencyPenalty: 0.7,
		JSON:             true,
	})
	if err != nil {
		slog.Error("slide regeneration failed", slog.String("error", err.Error()))
		return nil, model.NewAIUnavailableError("regenerate slide")
	}

	var payload regeneratedPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, model.NewAIInvalidResponseError("response is not valid JSON")
	}
	content := flattenContent(payload.Content)
	if strings.TrimSpace(payload.Title) == "" || strings.TrimSpace(content) == "" {
		return nil, model.NewAIInvalidResponseError("title and content are required")
	}

	out := &RegeneratedSlide{
		Title:            s.sanitizer.Sanitize(payload.Title),
		Content:          s.sanitizer.Sanitize(content),
		Type:             slideType,
		ImageSuggestions: payload.ImageSuggestions,
		Notes:            s.sanitizer.Sanitize(payload.Notes),
	}
	if len(out.ImageSuggestions) == 0 {
		out.ImageSuggestions = FallbackImageSuggestions(slideType)
	}
	if out.Notes == "" {
		out.Notes = "Speaker notes for " + out.Title
	}
	return out, nil
}

// flattenContent はcontentのJSON値を文字列にする。配列は改行で連結する。
func flattenContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err == nil {
		return strings.Join(lines, "\n")
	}
	return ""
}

// suggestionsPayload はモデルが {"suggestions": [...]} 形式で返した場合の受け皿。
type suggestionsPayload struct {
	Suggestions []model.ImageSuggestion `json:"suggestions"`
}

// SuggestImages はスライドに合う画像の提案を返す。
// LLMの呼び出しや応答の解釈に失敗した場合はスライド種別ごとの既定の提案を返す。
func (s *Service) SuggestImages(ctx context.Context, in SuggestInput) []model.ImageSuggestion {
	slideType := in.Type
	if slideType == "" {
		slideType = model.SlideTypeContent
	}
	cacheKeyContent := in.Title + "\n" + in.Content

	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, string(slideType), cacheKeyContent); ok {
			return cached
		}
	}

	text, err := s.complete(ctx, llm.Request{
		Operation:   "suggest_images",
		Model:       s.models.Suggest,
		System:      suggestionSystemPrompt,
		User:        buildImageSuggestionPrompt(in, slideType),
		MaxTokens:   600,
		Temperature: 0.6,
		JSON:        true,
	})
	if err != nil {
		slog.Warn("image suggestion failed, using fallback",
			slog.String("slide_type", string(slideType)),
			slog.String("error", err.Error()),
		)
		return FallbackImageSuggestions(slideType)
	}

	suggestions, err := parseSuggestions(text)
	if err != nil {
		slog.Warn("image suggestion response could not be parsed, using fallback",
			slog.String("slide_type", string(slideType)),
			slog.String("error", err.Error()),
		)
		return FallbackImageSuggestions(slideType)
	}

	if s.cache != nil && len(suggestions) > 0 {
		s.cache.Set(ctx, string(slideType), cacheKeyContent, suggestions)
	}
	return suggestions
}

// parseSuggestions は配列形式と {"suggestions": [...]} 形式の両方を受け付ける。
func parseSuggestions(text string) ([]model.ImageSuggestion, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") {
		var list []model.ImageSuggestion
		if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
			return nil, err
		}
		return list, nil
	}

	var payload suggestionsPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil, err
	}
	if payload.Suggestions == nil {
		return []model.ImageSuggestion{}, nil
	}
	return payload.Suggestions, nil
}

// AssistInput は編集アシスタントへの依頼。
type AssistInput struct {
	Message      string
	SlideTitle   string
	SlideContent string
	Context      string
	AssistType   string
}

// Assist はユーザーの依頼の意図を判定し、改善案・スピーカーノート・助言のいずれかを返す。
// 応答からはマークダウンと絵文字、HTMLを取り除く。
func (s *Service) Assist(ctx context.Context, in AssistInput) (string, error) {
	if strings.TrimSpace(in.Message) == "" {
		return "", model.NewValidationError("Message is required")
	}

	intent := DetectIntent(in.Message, in.AssistType)
	system, user, maxTokens := buildAssistantPrompts(intent, in)

	text, err := s.complete(ctx, llm.Request{
		Operation:        "assist",
		Model:            s.models.Chat,
		System:           system,
		User:             user,
		MaxTokens:        maxTokens,
		Temperature:      0.6,
		PresencePenalty:  0.1,
		FrequencyPenalty: 0.1,
	})
	if err != nil {
		slog.Error("ai assistant failed",
			slog.String("intent", string(intent)),
			slog.String("error", err.Error()),
		)
		return "", model.NewAIUnavailableError("assistant")
	}

	return s.sanitizer.Sanitize(CleanResponseFormatting(text)), nil
}

// HealthCheck は最小の補完呼び出しでLLMへの疎通を確認する。
func (s *Service) HealthCheck(ctx context.Context) bool {
	text, err := s.complete(ctx, llm.Request{
		Operation: "health",
		Model:     s.models.Health,
		User:      "Test",
		MaxTokens: 5,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			slog.Warn("llm health check failed",
				slog.String("provider", s.client.Provider()),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	return text != ""
}

// truncateRunes は先頭n文字を返す。
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
