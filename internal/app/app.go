package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/hitoshi/pitchdeck/internal/aicontent"
	"github.com/hitoshi/pitchdeck/internal/auth"
	"github.com/hitoshi/pitchdeck/internal/cache"
	"github.com/hitoshi/pitchdeck/internal/config"
	"github.com/hitoshi/pitchdeck/internal/database"
	"github.com/hitoshi/pitchdeck/internal/deck"
	"github.com/hitoshi/pitchdeck/internal/export"
	"github.com/hitoshi/pitchdeck/internal/handler"
	"github.com/hitoshi/pitchdeck/internal/llm"
	"github.com/hitoshi/pitchdeck/internal/logger"
	"github.com/hitoshi/pitchdeck/internal/metrics"
	"github.com/hitoshi/pitchdeck/internal/middleware"
	"github.com/hitoshi/pitchdeck/internal/repository"
	"github.com/hitoshi/pitchdeck/internal/security"
	storageminio "github.com/hitoshi/pitchdeck/internal/storage/minio"
	"github.com/hitoshi/pitchdeck/internal/user"
	"github.com/hitoshi/pitchdeck/internal/worker/cleanup"
)

const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。ctxがキャンセルされるとサーバーとワーカーを停止する。
func Run(ctx context.Context, w io.Writer, args []string) error {
	root := NewRootCommand(w)
	root.SetArgs(args)
	root.SetOut(w)
	return root.ExecuteContext(ctx)
}

func runWithConfig(cmd *cobra.Command, w io.Writer, command Command) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(command)),
		slog.String("port", cfg.ServerPort),
		slog.String("llm_provider", cfg.LLMProvider),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch command {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	deckRepo := repository.NewPostgresDeckRepo(db)
	exportRepo := repository.NewPostgresExportRepo(db)

	// 3. メトリクス
	registry := newRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 外部サービスの初期化
	llmClient, err := newLLMClient(ctx, cfg)
	if err != nil {
		return err
	}
	llmClient = llm.WithRecorder(llmClient, collector)

	suggestionCache, redisClient := openSuggestionCache(ctx, cfg, collector)
	if redisClient != nil {
		defer redisClient.Close()
	}

	archive := openArchiveStore(ctx, cfg)

	// 5. ドメインサービスの初期化
	sanitizer := security.NewContentSanitizer()

	aiService := aicontent.NewService(llmClient, modelSet(cfg), suggestionCache, sanitizer, cfg.LLMTimeout)
	deckService := deck.NewService(deckRepo, sanitizer, aiService)

	themes, err := export.LoadThemes()
	if err != nil {
		return fmt.Errorf("failed to load export themes: %w", err)
	}

	var (
		exportStore   export.ObjectStore
		exportRecords repository.ExportRepository
		exportKeys    user.ExportKeyLister
		objectRemover user.ObjectRemover
	)
	if archive != nil {
		exportStore, exportRecords = archive, exportRepo
		exportKeys, objectRemover = exportRepo, archive
	}
	pdfRenderer, err := newPDFRenderer(cfg.PDFFontPath)
	if err != nil {
		return err
	}
	exportService := export.NewService(
		deckRepo, themes, exportStore, exportRecords, collector, cfg.ExportTimeout,
		pdfRenderer, export.NewPPTXRenderer(),
	)

	authService := auth.NewService(userRepo, identRepo)
	userService := user.NewService(userRepo, exportKeys, objectRemover)

	verifier, err := newTokenVerifier(cfg)
	if err != nil {
		return err
	}

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAI),
	).WithRecorder(collector)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TokenVerifier:     verifier,
		UserResolver:      authService,
		RateLimiter:       rateLimiter,
		HTTPRecorder:      collector,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		UserSyncer:  authService,
		UserService: userService,

		DeckService:   deckService,
		AIService:     aiService,
		ExportService: exportService,
	}

	// 7. HTTPサーバーの起動
	// LLM呼び出しとエクスポートの待ち時間より長く書き込みを待つ
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: max(cfg.LLMTimeout, cfg.ExportTimeout) + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("API server starting", slog.String("addr", server.Addr))
	return serveUntilDone(ctx, server)
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、エクスポートのクリーンアップジョブを起動する。
// Dockerのヘルスチェック用に/healthと/metricsも公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := database.OpenWithPool(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established (worker)")

	registry := newRegistry()
	collector := metrics.NewCollector(registry)

	// 2. クリーンアップジョブの初期化
	var objects cleanup.ObjectDeleter
	if archive := openArchiveStore(ctx, cfg); archive != nil {
		objects = archive
	}
	job := cleanup.NewCleanupJob(repository.NewPostgresExportRepo(db), objects, slog.Default()).
		WithRecorder(collector)
	job.RetentionDays = cfg.ExportRetentionDays

	// 3. ヘルスチェックとメトリクス
	r := chi.NewRouter()
	r.Get("/health", handler.NewHealthHandler(db))
	r.Handle("/metrics", metrics.Handler(registry))
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		job.Start(ctx, cfg.CleanupInterval)
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("retention_days", cfg.ExportRetentionDays),
		slog.Bool("archive_enabled", objects != nil),
	)

	err = serveUntilDone(ctx, server)
	cancel()
	<-done

	slog.Info("worker stopped gracefully")
	return err
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(ctx context.Context, port string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://localhost:%s/health", port), nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// serveUntilDone はctxがキャンセルされるまでサーバーを動かし、グレースフルシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...", slog.String("addr", server.Addr))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully", slog.String("addr", server.Addr))
	return nil
}

// newRegistry はGoランタイムとプロセスのメトリクスを含むレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// newLLMClient は設定されたプロバイダーのクライアントを生成する。
func newLLMClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	switch cfg.LLMProvider {
	case llm.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		return client, nil
	default:
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.ChatModel,
		}, &http.Client{Timeout: cfg.LLMTimeout + 5*time.Second}, slog.Default()), nil
	}
}

// modelSet は操作ごとのモデル名を返す。Geminiは生成時のモデルを使うため空にする。
func modelSet(cfg *config.Config) aicontent.ModelSet {
	if cfg.LLMProvider != llm.ProviderOpenAI {
		return aicontent.ModelSet{}
	}
	return aicontent.ModelSet{
		Outline: cfg.OpenAI.OutlineModel,
		Chat:    cfg.OpenAI.ChatModel,
		Suggest: cfg.OpenAI.SuggestModel,
	}
}

// openSuggestionCache はRedisが設定されていればキャッシュを返す。
// 接続できない場合はキャッシュなしで続行する。
func openSuggestionCache(ctx context.Context, cfg *config.Config, recorder cache.LookupRecorder) (aicontent.SuggestionCache, *redis.Client) {
	if !cfg.RedisEnabled() {
		return nil, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		slog.Warn("suggestion cache disabled", slog.String("error", err.Error()))
		return nil, nil
	}
	slog.Info("suggestion cache enabled", slog.String("addr", cfg.Redis.Addr))
	return cache.NewRedisSuggestionCache(client, cfg.SuggestionCacheTTL, recorder), client
}

// openArchiveStore はオブジェクトストレージが設定されていればクライアントを返す。
// 接続できない場合はアーカイブなしで続行する。
func openArchiveStore(ctx context.Context, cfg *config.Config) *storageminio.Client {
	if !cfg.StorageEnabled() {
		return nil
	}
	client, err := storageminio.Connect(ctx, storageminio.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	})
	if err != nil {
		slog.Warn("export archive disabled", slog.String("error", err.Error()))
		return nil
	}
	slog.Info("export archive enabled", slog.String("bucket", cfg.Storage.Bucket))
	return client
}

// newTokenVerifier は設定されたIdPのトークンを受け付ける検証器を返す。
func newTokenVerifier(cfg *config.Config) (*auth.MultiVerifier, error) {
	var verifiers []auth.IssuerVerifier
	if cfg.Firebase.ProjectID != "" {
		verifiers = append(verifiers, auth.NewFirebaseVerifier(auth.FirebaseConfig{
			ProjectID: cfg.Firebase.ProjectID,
			CertsURL:  cfg.Firebase.CertsURL,
		}, nil))
	}
	if cfg.GoogleClientID != "" {
		verifiers = append(verifiers, auth.NewGoogleVerifier(cfg.GoogleClientID))
	}
	if len(verifiers) == 0 {
		return nil, errors.New("no identity provider configured")
	}
	return auth.NewMultiVerifier(verifiers...), nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}

// newPDFRenderer はPDF_FONT_PATHが指定されていればそのTTFでPDFRendererを生成する。
func newPDFRenderer(fontPath string) (*export.PDFRenderer, error) {
	if fontPath == "" {
		return export.NewPDFRenderer(), nil
	}
	ttf, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf font: %w", err)
	}
	r, err := export.NewPDFRendererWithFont(ttf)
	if err != nil {
		return nil, fmt.Errorf("invalid pdf font %s: %w", fontPath, err)
	}
	slog.Info("pdf font loaded", slog.String("path", fontPath))
	return r, nil
}
