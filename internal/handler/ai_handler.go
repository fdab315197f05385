package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/pitchdeck/internal/aicontent"
	"github.com/hitoshi/pitchdeck/internal/model"
)

// isoTimestamp はレスポンスのtimestampの書式（ミリ秒精度のUTC）。
const isoTimestamp = "2006-01-02T15:04:05.000Z07:00"

// AIServiceInterface はAIハンドラーが必要とするサービスインターフェース。
// aicontent.Serviceがそのまま満たす。
type AIServiceInterface interface {
	GenerateDeckOutline(ctx context.Context, inputs model.DeckInputs) (*model.GeneratedOutline, error)
	RegenerateSlide(ctx context.Context, in aicontent.RegenerateInput) (*aicontent.RegeneratedSlide, error)
	SuggestImages(ctx context.Context, in aicontent.SuggestInput) []model.ImageSuggestion
	Assist(ctx context.Context, in aicontent.AssistInput) (string, error)
	HealthCheck(ctx context.Context) bool
}

// AIHandler はAIコンテンツ生成のHTTPハンドラー。
type AIHandler struct {
	service AIServiceInterface
	now     func() time.Time
}

// NewAIHandler はAIHandlerを生成する。
func NewAIHandler(service AIServiceInterface) *AIHandler {
	return &AIHandler{service: service, now: time.Now}
}

// slidePayload は再生成対象のスライド。
type slidePayload struct {
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Type    model.SlideType `json:"type"`
}

// regenerateSlideRequest は{slide:{...}, context}とフラットな{title, content, type, context}の両方を受け付ける。
type regenerateSlideRequest struct {
	slidePayload
	Slide   *slidePayload `json:"slide"`
	Context string        `json:"context"`
}

// suggestImagesRequest はslideContent/slideTypeとtitle/content/typeの両方の名前を受け付ける。
type suggestImagesRequest struct {
	Title        string          `json:"title"`
	Content      string          `json:"content"`
	Type         model.SlideType `json:"type"`
	SlideContent string          `json:"slideContent"`
	SlideType    model.SlideType `json:"slideType"`
}

// assistantRequest は編集アシスタントへの依頼。contextとslideContextは同じ意味。
type assistantRequest struct {
	Message      string `json:"message"`
	SlideTitle   string `json:"slideTitle"`
	SlideContent string `json:"slideContent"`
	Context      string `json:"context"`
	SlideContext string `json:"slideContext"`
	AssistType   string `json:"assistType"`
}

type suggestionsResponse struct {
	Suggestions []model.ImageSuggestion `json:"suggestions"`
}

type assistantResponse struct {
	Response  string `json:"response"`
	Intent    string `json:"intent"`
	Timestamp string `json:"timestamp"`
}

type aiHealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// GenerateDeck は入力項目からデッキ案を生成する。
// POST /ai/generate-deck
func (h *AIHandler) GenerateDeck(w http.ResponseWriter, r *http.Request) {
	var in model.DeckInputs
	if !decodeJSON(w, r, &in, false) {
		return
	}

	outline, err := h.service.GenerateDeckOutline(r.Context(), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", outline)
}

// RegenerateSlide はスライドを別の切り口で書き直す。
// POST /ai/regenerate-slide
func (h *AIHandler) RegenerateSlide(w http.ResponseWriter, r *http.Request) {
	var req regenerateSlideRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	slide := req.slidePayload
	if req.Slide != nil {
		slide = *req.Slide
	}

	result, err := h.service.RegenerateSlide(r.Context(), aicontent.RegenerateInput{
		Title:   slide.Title,
		Content: slide.Content,
		Type:    slide.Type,
		Context: req.Context,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", result)
}

// SuggestImages はスライドに添える画像を提案する。LLMが使えない場合も既定の提案を返す。
// POST /ai/suggest-images
func (h *AIHandler) SuggestImages(w http.ResponseWriter, r *http.Request) {
	var req suggestImagesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	content := firstNonEmpty(req.SlideContent, req.Content)
	slideType := model.SlideType(firstNonEmpty(string(req.SlideType), string(req.Type)))

	suggestions := h.service.SuggestImages(r.Context(), aicontent.SuggestInput{
		Title:   req.Title,
		Content: content,
		Type:    slideType,
	})
	writeSuccess(w, http.StatusOK, "", suggestionsResponse{Suggestions: suggestions})
}

// Assistant は改善案・スピーカーノート・助言のいずれかを返す。
// POST /ai/ai-assistant
func (h *AIHandler) Assistant(w http.ResponseWriter, r *http.Request) {
	var req assistantRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	response, err := h.service.Assist(r.Context(), aicontent.AssistInput{
		Message:      req.Message,
		SlideTitle:   req.SlideTitle,
		SlideContent: req.SlideContent,
		Context:      firstNonEmpty(req.SlideContext, req.Context),
		AssistType:   req.AssistType,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	intent := req.AssistType
	if intent == "" {
		intent = "auto-detected"
	}
	writeSuccess(w, http.StatusOK, "", assistantResponse{
		Response:  response,
		Intent:    intent,
		Timestamp: h.timestamp(),
	})
}

// Health はLLMプロバイダへの疎通を確認する。
// POST /ai/health
func (h *AIHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := "unhealthy"
	if h.service.HealthCheck(r.Context()) {
		status = "healthy"
	}
	writeSuccess(w, http.StatusOK, "", aiHealthResponse{Status: status, Timestamp: h.timestamp()})
}

func (h *AIHandler) timestamp() string {
	return h.now().UTC().Format(isoTimestamp)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
