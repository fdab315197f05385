// Package deck はデッキとスライドの編集に関するドメインロジックを提供する。
package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/pitchdeck/internal/model"
	"github.com/hitoshi/pitchdeck/internal/repository"
	"github.com/hitoshi/pitchdeck/internal/security"
)

// OutlineGenerator はAIによるデッキ案生成のインターフェース。
type OutlineGenerator interface {
	GenerateDeckOutline(ctx context.Context, inputs model.DeckInputs) (*model.GeneratedOutline, error)
}

// CreateInput はデッキ作成の入力。
type CreateInput struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Slides      []model.Slide `json:"slides"`
}

// UpdateInput はデッキの部分更新の入力。nilのフィールドは変更しない。
type UpdateInput struct {
	Title       *string        `json:"title"`
	Description *string        `json:"description"`
	Slides      *[]model.Slide `json:"slides"`
	Status      *string        `json:"status"`
}

// SlideInput はスライド追加・部分更新の入力。nilのフィールドは変更しない。
type SlideInput struct {
	Title            *string                  `json:"title"`
	Content          *string                  `json:"content"`
	Type             *model.SlideType         `json:"type"`
	Order            *int                     `json:"order"`
	ImageSuggestions *[]model.ImageSuggestion `json:"imageSuggestions"`
	SpeakerNotes     *string                  `json:"speakerNotes"`
}

// Service はデッキ操作のサービス層。
// すべての操作は呼び出しユーザーの所有デッキに限定される。
type Service struct {
	repo      repository.DeckRepository
	sanitizer security.TextSanitizer
	generator OutlineGenerator
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	repo repository.DeckRepository,
	sanitizer security.TextSanitizer,
	generator OutlineGenerator,
) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		generator: generator,
		now:       time.Now,
	}
}

// List はユーザーのデッキを更新日時の新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Deck, error) {
	decks, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list decks: %w", err)
	}
	return decks, nil
}

// Get はユーザーのデッキを取得する。他ユーザーのデッキは未検出として扱う。
func (s *Service) Get(ctx context.Context, userID, deckID string) (*model.Deck, error) {
	deck, err := s.repo.FindByIDAndUser(ctx, deckID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find deck: %w", err)
	}
	if deck == nil {
		return nil, model.NewDeckNotFoundError()
	}
	return deck, nil
}

// Create はdraft状態の新規デッキを作成する。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Deck, error) {
	title := s.sanitizer.Sanitize(strings.TrimSpace(in.Title))
	if title == "" {
		return nil, model.NewValidationError("Title is required")
	}
	if err := validateTitleLength(title); err != nil {
		return nil, err
	}

	slides, err := s.normalizeSlides(in.Slides)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deck := &model.Deck{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizeOptional(in.Description),
		Slides:      slides,
		Status:      model.DeckStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, deck); err != nil {
		return nil, fmt.Errorf("failed to create deck: %w", err)
	}

	slog.Info("deck created",
		slog.String("user_id", userID),
		slog.String("deck_id", deck.ID),
		slog.Int("slide_count", len(deck.Slides)),
	)
	return deck, nil
}

// Update はデッキを部分更新する。
func (s *Service) Update(ctx context.Context, userID, deckID string, in UpdateInput) (*model.Deck, error) {
	deck, err := s.Get(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := s.sanitizer.Sanitize(strings.TrimSpace(*in.Title))
		if title == "" {
			return nil, model.NewValidationError("Title cannot be empty")
		}
		if err := validateTitleLength(title); err != nil {
			return nil, err
		}
		deck.Title = title
	}
	if in.Description != nil {
		deck.Description = s.sanitizeOptional(in.Description)
	}
	if in.Status != nil {
		status := model.DeckStatus(*in.Status)
		if !status.Valid() {
			return nil, model.NewInvalidStatusError(*in.Status)
		}
		deck.Status = status
	}
	if in.Slides != nil {
		slides, err := s.normalizeSlides(*in.Slides)
		if err != nil {
			return nil, err
		}
		deck.Slides = slides
	}

	return s.save(ctx, deck)
}

// Delete はデッキを削除する。
func (s *Service) Delete(ctx context.Context, userID, deckID string) error {
	err := s.repo.DeleteByIDAndUser(ctx, deckID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewDeckNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("failed to delete deck: %w", err)
	}

	slog.Info("deck deleted",
		slog.String("user_id", userID),
		slog.String("deck_id", deckID),
	)
	return nil
}

// Generate は入力項目からAIでデッキを生成し保存する。
// AIが1枚もスライドを返さなかった場合は定型スライドを使用する。
func (s *Service) Generate(ctx context.Context, userID string, inputs model.DeckInputs) (*model.Deck, error) {
	if err := inputs.Validate(); err != nil {
		return nil, err
	}

	outline, err := s.generator.GenerateDeckOutline(ctx, inputs)
	if err != nil {
		return nil, err
	}

	var slides []model.Slide
	if len(outline.Slides) > 0 {
		slides = make([]model.Slide, 0, len(outline.Slides))
		for i, src := range outline.Slides {
			slide := src
			slide.ID = newSlideID()
			slide.Order = i + 1
			if slide.Type == "" {
				slide.Type = model.SlideTypeContent
			}
			slide.ImagePrompts = make([]string, 0, len(src.ImageSuggestions))
			for _, sug := range src.ImageSuggestions {
				slide.ImagePrompts = append(slide.ImagePrompts, sug.Description)
			}
			slides = append(slides, s.sanitizeSlide(slide))
		}
	} else {
		slog.Warn("ai outline returned no slides, using fallback",
			slog.String("user_id", userID),
		)
		slides = fallbackSlides(inputs)
	}

	now := s.now()
	description := fmt.Sprintf("AI-generated pitch deck for %s", inputs.Company)
	deck := &model.Deck{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       generatedTitle(s.sanitizer.Sanitize(strings.TrimSpace(inputs.Company))),
		Description: s.sanitizeOptional(&description),
		Slides:      slides,
		Status:      model.DeckStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, deck); err != nil {
		return nil, fmt.Errorf("failed to create generated deck: %w", err)
	}

	slog.Info("deck generated",
		slog.String("user_id", userID),
		slog.String("deck_id", deck.ID),
		slog.Int("slide_count", len(deck.Slides)),
	)
	return deck, nil
}

func validateTitleLength(title string) error {
	if utf8.RuneCountInString(title) > model.MaxDeckTitleLength {
		return model.NewValidationError(fmt.Sprintf("Title must be %d characters or less", model.MaxDeckTitleLength))
	}
	return nil
}

// generatedTitle は「<会社名> Pitch Deck」を列長に収まるよう会社名側で切り詰める。
func generatedTitle(company string) string {
	const suffix = " Pitch Deck"
	return model.TruncateRunes(company, model.MaxDeckTitleLength-len(suffix)) + suffix
}

// AddSlide はスライドを追加する。orderを指定した場合はその位置に挿入し、
// 省略時は末尾に追加する。
func (s *Service) AddSlide(ctx context.Context, userID, deckID string, in SlideInput) (*model.Deck, error) {
	deck, err := s.Get(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	slide := model.Slide{ID: newSlideID(), Type: model.SlideTypeContent}
	if err := applySlideInput(&slide, in); err != nil {
		return nil, err
	}
	slide = s.sanitizeSlide(slide)

	slides := deck.SortedSlides()
	pos := len(slides)
	if in.Order != nil {
		pos = clamp(*in.Order, 1, len(slides)+1) - 1
	}
	deck.Slides = renumber(slices.Insert(slides, pos, slide))

	return s.save(ctx, deck)
}

// UpdateSlide はスライドを部分更新する。orderの変更はスライドの移動として扱う。
func (s *Service) UpdateSlide(ctx context.Context, userID, deckID, slideID string, in SlideInput) (*model.Deck, error) {
	deck, err := s.Get(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	deck.Slides = deck.SortedSlides()
	idx := deck.FindSlide(slideID)
	if idx == -1 {
		return nil, model.NewSlideNotFoundError("")
	}

	slides := deck.Slides
	slide := slides[idx]
	if err := applySlideInput(&slide, in); err != nil {
		return nil, err
	}
	slides[idx] = s.sanitizeSlide(slide)

	if in.Order != nil {
		target := clamp(*in.Order, 1, len(slides)) - 1
		moved := slides[idx]
		slides = slices.Delete(slides, idx, idx+1)
		slides = slices.Insert(slides, target, moved)
	}
	deck.Slides = renumber(slides)

	return s.save(ctx, deck)
}

// RemoveSlide はスライドを削除し、残りのorderを詰める。
func (s *Service) RemoveSlide(ctx context.Context, userID, deckID, slideID string) (*model.Deck, error) {
	deck, err := s.Get(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	deck.Slides = deck.SortedSlides()
	idx := deck.FindSlide(slideID)
	if idx == -1 {
		return nil, model.NewSlideNotFoundError("")
	}
	deck.Slides = renumber(slices.Delete(deck.Slides, idx, idx+1))

	return s.save(ctx, deck)
}

// ReorderSlides はslideIDsの順にスライドを並べ替える。
// slideIDsは現在のスライドIDの順列でなければならない。
func (s *Service) ReorderSlides(ctx context.Context, userID, deckID string, slideIDs []string) (*model.Deck, error) {
	deck, err := s.Get(ctx, userID, deckID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]model.Slide, len(deck.Slides))
	for _, sl := range deck.Slides {
		byID[sl.ID] = sl
	}

	seen := make(map[string]struct{}, len(slideIDs))
	reordered := make([]model.Slide, 0, len(slideIDs))
	for _, id := range slideIDs {
		sl, ok := byID[id]
		if !ok {
			return nil, model.NewSlideNotFoundError(id)
		}
		if _, dup := seen[id]; dup {
			return nil, model.NewInvalidReorderError(fmt.Sprintf("slide %s listed more than once", id))
		}
		seen[id] = struct{}{}
		reordered = append(reordered, sl)
	}
	if len(reordered) != len(deck.Slides) {
		return nil, model.NewInvalidReorderError(
			fmt.Sprintf("expected %d slide ids, got %d", len(deck.Slides), len(reordered)))
	}

	deck.Slides = renumber(reordered)
	return s.save(ctx, deck)
}

func (s *Service) save(ctx context.Context, deck *model.Deck) (*model.Deck, error) {
	deck.UpdatedAt = s.now()
	err := s.repo.Update(ctx, deck)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, model.NewDeckNotFoundError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update deck: %w", err)
	}
	return deck, nil
}

// normalizeSlides はクライアントから受け取ったスライド列を保存可能な形に整える。
// IDの補完と重複検査、種別の検証、orderの1..n振り直しを行う。
func (s *Service) normalizeSlides(in []model.Slide) ([]model.Slide, error) {
	out := make([]model.Slide, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, sl := range in {
		if sl.ID == "" {
			sl.ID = newSlideID()
		}
		if _, dup := seen[sl.ID]; dup {
			return nil, model.NewDuplicateSlideIDError(sl.ID)
		}
		seen[sl.ID] = struct{}{}
		if !sl.Type.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("Invalid slide type: %s", sl.Type))
		}
		out = append(out, s.sanitizeSlide(sl))
	}

	slices.SortStableFunc(out, func(a, b model.Slide) int { return a.Order - b.Order })
	return renumber(out), nil
}

func (s *Service) sanitizeSlide(sl model.Slide) model.Slide {
	sl.Title = s.sanitizer.Sanitize(sl.Title)
	sl.Content = s.sanitizer.Sanitize(sl.Content)
	sl.SpeakerNotes = s.sanitizer.Sanitize(sl.SpeakerNotes)
	for i, p := range sl.ImagePrompts {
		sl.ImagePrompts[i] = s.sanitizer.Sanitize(p)
	}
	for i := range sl.ImageSuggestions {
		sl.ImageSuggestions[i].Description = s.sanitizer.Sanitize(sl.ImageSuggestions[i].Description)
		sl.ImageSuggestions[i].AltText = s.sanitizer.Sanitize(sl.ImageSuggestions[i].AltText)
	}
	return sl
}

func (s *Service) sanitizeOptional(v *string) *string {
	if v == nil {
		return nil
	}
	out := s.sanitizer.Sanitize(*v)
	return &out
}

func applySlideInput(sl *model.Slide, in SlideInput) error {
	if in.Title != nil {
		sl.Title = *in.Title
	}
	if in.Content != nil {
		sl.Content = *in.Content
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return model.NewValidationError(fmt.Sprintf("Invalid slide type: %s", *in.Type))
		}
		sl.Type = *in.Type
	}
	if in.ImageSuggestions != nil {
		sl.ImageSuggestions = slices.Clone(*in.ImageSuggestions)
	}
	if in.SpeakerNotes != nil {
		sl.SpeakerNotes = *in.SpeakerNotes
	}
	return nil
}

// renumber はスライドのorderを並び順どおり1..nに振り直す。
func renumber(slides []model.Slide) []model.Slide {
	for i := range slides {
		slides[i].Order = i + 1
	}
	return slides
}

func newSlideID() string {
	return "slide-" + uuid.New().String()
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
