package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Server
	ServerPort        string `env:"SERVER_PORT" envDefault:"8080"`
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Auth
	Firebase FirebaseConfig `envPrefix:"FIREBASE_"`
	// GoogleClientID が設定されている場合、Google IDトークンも受け付ける。
	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`

	// LLM
	LLMProvider string        `env:"LLM_PROVIDER" envDefault:"openai"`
	LLMTimeout  time.Duration `env:"LLM_TIMEOUT" envDefault:"60s"`
	OpenAI      OpenAIConfig  `envPrefix:"OPENAI_"`
	Gemini      GeminiConfig  `envPrefix:"GEMINI_"`

	// Rate Limit（req/min）
	RateLimitGeneral int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`
	RateLimitAI      int `env:"RATE_LIMIT_AI" envDefault:"20"`

	// Export
	ExportTimeout       time.Duration `env:"EXPORT_TIMEOUT" envDefault:"30s"`
	ExportRetentionDays int           `env:"EXPORT_RETENTION_DAYS" envDefault:"30"`
	CleanupInterval     time.Duration `env:"CLEANUP_INTERVAL" envDefault:"24h"`
	// PDFFontPath はPDF出力に使うTTF。未設定なら埋め込みのDejaVu Sansを使う。
	PDFFontPath string `env:"PDF_FONT_PATH"`

	// Cache
	Redis RedisConfig `envPrefix:"REDIS_"`
	// SuggestionCacheTTL は画像提案キャッシュの有効期間。
	SuggestionCacheTTL time.Duration `env:"SUGGESTION_CACHE_TTL" envDefault:"24h"`

	// Object Storage
	Storage StorageConfig `envPrefix:"MINIO_"`
}

// FirebaseConfig はFirebase IDトークン検証の設定。
type FirebaseConfig struct {
	ProjectID string `env:"PROJECT_ID"`
	CertsURL  string `env:"CERTS_URL" envDefault:"https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"`
}

// OpenAIConfig はOpenAI互換APIの設定。
type OpenAIConfig struct {
	APIKey       string `env:"API_KEY"`
	BaseURL      string `env:"BASE_URL" envDefault:"https://api.openai.com/v1"`
	OutlineModel string `env:"OUTLINE_MODEL" envDefault:"gpt-4-turbo-preview"`
	ChatModel    string `env:"CHAT_MODEL" envDefault:"gpt-4-turbo-preview"`
	SuggestModel string `env:"SUGGEST_MODEL" envDefault:"gpt-4"`
}

// GeminiConfig はGemini APIの設定。
type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gemini-2.0-flash"`
}

// RedisConfig は画像提案キャッシュ用Redisの設定。Addrが空の場合はキャッシュ無効。
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

// StorageConfig はエクスポートアーカイブ用オブジェクトストレージの設定。
// Endpointが空の場合はアーカイブ無効。
type StorageConfig struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"pitchdeck-exports"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// RedisEnabled はRedisキャッシュが設定されているかを返す。
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// StorageEnabled はオブジェクトストレージが設定されているかを返す。
func (c *Config) StorageEnabled() bool {
	return c.Storage.Endpoint != ""
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合は不足している変数名をまとめたエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate は必須項目と相互依存する項目を検証する。
func (c *Config) validate() error {
	var missing []string

	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if c.Firebase.ProjectID == "" && c.GoogleClientID == "" {
		missing = append(missing, "FIREBASE_PROJECT_ID or GOOGLE_CLIENT_ID")
	}

	switch c.LLMProvider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			missing = append(missing, "GEMINI_API_KEY")
		}
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER: %q (want openai or gemini)", c.LLMProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if c.RateLimitGeneral <= 0 || c.RateLimitAI <= 0 {
		return fmt.Errorf("rate limits must be positive: general=%d ai=%d", c.RateLimitGeneral, c.RateLimitAI)
	}

	if c.CleanupInterval <= 0 || c.ExportRetentionDays <= 0 {
		return fmt.Errorf("cleanup settings must be positive: interval=%s retention_days=%d", c.CleanupInterval, c.ExportRetentionDays)
	}

	return nil
}
