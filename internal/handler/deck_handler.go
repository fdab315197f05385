package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/pitchdeck/internal/deck"
	"github.com/hitoshi/pitchdeck/internal/model"
)

// DeckServiceInterface はデッキハンドラーが必要とするサービスインターフェース。
// deck.Serviceがそのまま満たす。
type DeckServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.Deck, error)
	Get(ctx context.Context, userID, deckID string) (*model.Deck, error)
	Create(ctx context.Context, userID string, in deck.CreateInput) (*model.Deck, error)
	Update(ctx context.Context, userID, deckID string, in deck.UpdateInput) (*model.Deck, error)
	Delete(ctx context.Context, userID, deckID string) error
	Generate(ctx context.Context, userID string, inputs model.DeckInputs) (*model.Deck, error)
	AddSlide(ctx context.Context, userID, deckID string, in deck.SlideInput) (*model.Deck, error)
	UpdateSlide(ctx context.Context, userID, deckID, slideID string, in deck.SlideInput) (*model.Deck, error)
	RemoveSlide(ctx context.Context, userID, deckID, slideID string) (*model.Deck, error)
	ReorderSlides(ctx context.Context, userID, deckID string, slideIDs []string) (*model.Deck, error)
}

// DeckHandler はデッキ管理のHTTPハンドラー。
type DeckHandler struct {
	service DeckServiceInterface
}

// NewDeckHandler はDeckHandlerを生成する。
func NewDeckHandler(service DeckServiceInterface) *DeckHandler {
	return &DeckHandler{service: service}
}

// deckSummaryResponse はデッキ一覧の1件。
type deckSummaryResponse struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	Status      model.DeckStatus `json:"status"`
	SlideCount  int              `json:"slideCount"`
	Thumbnail   string           `json:"thumbnail"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	Slides      []model.Slide    `json:"slides"`
}

// reorderSlidesRequest はスライド並び替えリクエストのボディ。
type reorderSlidesRequest struct {
	SlideIDs []string `json:"slideIds"`
}

// List はユーザーのデッキ一覧を返す。
// GET /decks
func (h *DeckHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	decks, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	items := make([]deckSummaryResponse, len(decks))
	for i, d := range decks {
		items[i] = toDeckSummary(d)
	}
	writeSuccess(w, http.StatusOK, "", items)
}

// Get はデッキを1件返す。
// GET /decks/{id}
func (h *DeckHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	d, err := h.service.Get(r.Context(), userID, urlParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", d)
}

// Create はデッキを作成する。
// POST /decks
func (h *DeckHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in deck.CreateInput
	if !decodeJSON(w, r, &in, false) {
		return
	}

	d, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Deck created successfully", d)
}

// Generate はAIで生成したデッキ案からデッキを作成する。
// POST /decks/generate
func (h *DeckHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in model.DeckInputs
	if !decodeJSON(w, r, &in, false) {
		return
	}

	d, err := h.service.Generate(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Deck generated successfully", d)
}

// Update はデッキを部分更新する。
// PUT /decks/{id}
func (h *DeckHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in deck.UpdateInput
	if !decodeJSON(w, r, &in, false) {
		return
	}

	d, err := h.service.Update(r.Context(), userID, urlParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Deck updated successfully", d)
}

// Delete はデッキを削除する。
// DELETE /decks/{id}
func (h *DeckHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, urlParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddSlide はスライドを追加する。
// POST /decks/{id}/slides
func (h *DeckHandler) AddSlide(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in deck.SlideInput
	if !decodeJSON(w, r, &in, true) {
		return
	}

	d, err := h.service.AddSlide(r.Context(), userID, urlParam(r, "id"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Slide added successfully", d)
}

// UpdateSlide はスライドを部分更新する。
// PUT /decks/{id}/slides/{slideId}
func (h *DeckHandler) UpdateSlide(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in deck.SlideInput
	if !decodeJSON(w, r, &in, false) {
		return
	}

	d, err := h.service.UpdateSlide(r.Context(), userID, urlParam(r, "id"), urlParam(r, "slideId"), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Slide updated successfully", d)
}

// RemoveSlide はスライドを削除する。
// DELETE /decks/{id}/slides/{slideId}
func (h *DeckHandler) RemoveSlide(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	d, err := h.service.RemoveSlide(r.Context(), userID, urlParam(r, "id"), urlParam(r, "slideId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Slide deleted successfully", d)
}

// ReorderSlides はスライドを並び替える。
// PUT /decks/{id}/reorder-slides
func (h *DeckHandler) ReorderSlides(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req reorderSlidesRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.SlideIDs == nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("slideIds is required"))
		return
	}

	d, err := h.service.ReorderSlides(r.Context(), userID, urlParam(r, "id"), req.SlideIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Slides reordered successfully", d)
}

// toDeckSummary は一覧表示用のレスポンスに変換する。サムネイル未設定は既定のグラデーションにする。
func toDeckSummary(d *model.Deck) deckSummaryResponse {
	thumbnail := model.DefaultThumbnail
	if d.Thumbnail != nil && *d.Thumbnail != "" {
		thumbnail = *d.Thumbnail
	}
	slides := d.Slides
	if slides == nil {
		slides = []model.Slide{}
	}
	return deckSummaryResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Status:      d.Status,
		SlideCount:  len(slides),
		Thumbnail:   thumbnail,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Slides:      slides,
	}
}
