package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/pitchdeck/internal/middleware"
	"github.com/hitoshi/pitchdeck/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	TokenVerifier     middleware.TokenVerifier
	UserResolver      middleware.UserResolver
	RateLimiter       *middleware.RateLimiter
	HTTPRecorder      middleware.HTTPRecorder

	// 公開エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// ユーザー
	UserSyncer  UserSyncer
	UserService UserServiceInterface

	// デッキ
	DeckService DeckServiceInterface

	// AI
	AIService AIServiceInterface

	// エクスポート
	ExportService ExportServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → BearerAuth → UserResolver → RateLimit(General) [→ RateLimit(AI)]
//
// /users と /export のレスポンスにはCache-Control: no-storeを付ける。
//
// /health と /metrics は認証の外に配置する。POST /users/sync と GET /users/profile は
// 未同期のユーザーでも呼べるようにUserResolverを通さない。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPRecorder))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "Route not found",
			Category: "system",
			Action:   "Check the request path.",
		})
	})

	userHandler := NewUserHandler(deps.UserSyncer, deps.UserService)
	deckHandler := NewDeckHandler(deps.DeckService)
	aiHandler := NewAIHandler(deps.AIService)
	exportHandler := NewExportHandler(deps.ExportService)

	// --- 認証不要のルート ---
	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker))
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenVerifier))

		// ミドルウェアスタック: UserResolver → RateLimit(General)
		resolved := chi.Chain(
			middleware.NewUserResolverMiddleware(deps.UserResolver),
			deps.RateLimiter.GeneralMiddleware(),
		)

		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.NewNoStoreMiddleware())

			// トークンのみで呼べるルート
			r.Post("/sync", userHandler.Sync)
			r.Get("/profile", userHandler.Profile)

			r.With(resolved...).Put("/profile", userHandler.UpdateProfile)
			r.With(resolved...).Delete("/account", userHandler.Withdraw)
		})

		r.Group(func(r chi.Router) {
			r.Use(resolved...)

			r.Route("/decks", func(r chi.Router) {
				r.Get("/", deckHandler.List)
				r.Post("/", deckHandler.Create)
				// POST /decks/generate - LLMを呼ぶためAI用のレート制限を追加
				r.With(deps.RateLimiter.AIMiddleware()).Post("/generate", deckHandler.Generate)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(requireUUIDParam("id", model.NewDeckNotFoundError))

					r.Get("/", deckHandler.Get)
					r.Put("/", deckHandler.Update)
					r.Delete("/", deckHandler.Delete)
					r.Put("/reorder-slides", deckHandler.ReorderSlides)

					r.Post("/slides", deckHandler.AddSlide)
					r.Put("/slides/{slideId}", deckHandler.UpdateSlide)
					r.Delete("/slides/{slideId}", deckHandler.RemoveSlide)
				})
			})

			r.Route("/ai", func(r chi.Router) {
				r.Use(deps.RateLimiter.AIMiddleware())

				r.Post("/generate-deck", aiHandler.GenerateDeck)
				r.Post("/regenerate-slide", aiHandler.RegenerateSlide)
				r.Post("/suggest-images", aiHandler.SuggestImages)
				r.Post("/ai-assistant", aiHandler.Assistant)
				r.Post("/health", aiHandler.Health)
			})

			r.Route("/export", func(r chi.Router) {
				r.Use(middleware.NewNoStoreMiddleware())

				deckID := requireUUIDParam("id", model.NewDeckNotFoundError)
				r.With(deckID).Post("/pdf/{id}", exportHandler.Export(model.ExportFormatPDF))
				r.With(deckID).Post("/pptx/{id}", exportHandler.Export(model.ExportFormatPPTX))
				r.Get("/history", exportHandler.History)
				r.With(requireUUIDParam("exportId", model.NewExportNotFoundError)).Get("/archive/{exportId}", exportHandler.Archive)
			})
		})
	})

	return r
}
