package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hitoshi/pitchdeck/internal/config"
	"github.com/hitoshi/pitchdeck/internal/llm"
)

func TestInit_WithValidConfig_Succeeds(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg == nil {
		t.Fatal("expected non-nil config")
	}

	if cfg.DatabaseURL != testDatabaseURL {
		t.Errorf("DatabaseURL = %q, want %q", cfg.DatabaseURL, testDatabaseURL)
	}

	// Verify that slog global logger is configured for JSON output
	slog.Default().Info("init test")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON log output, got error: %v\nraw: %s", err, buf.String())
	}
	if entry["msg"] != "init test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "init test")
	}
}

func TestInit_AppliesLogLevel(t *testing.T) {
	setTestEnv(t)
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { _ = setLogLevelForTest("info") })

	var buf bytes.Buffer
	if _, err := Init(&buf); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	slog.Default().Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info log should be suppressed at warn level, got %s", buf.String())
	}
}

func TestInit_WithMissingConfig_ReturnsError(t *testing.T) {
	clearRequiredEnv(t)

	var buf bytes.Buffer
	cfg, err := Init(&buf)
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
	if cfg != nil {
		t.Error("expected nil config on error")
	}
}

func TestNewTokenVerifier(t *testing.T) {
	if _, err := newTokenVerifier(&config.Config{}); err == nil {
		t.Error("expected error when no identity provider is configured")
	}

	cfg := &config.Config{GoogleClientID: "client-id"}
	cfg.Firebase.ProjectID = "pitchdeck-test"
	v, err := newTokenVerifier(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if v == nil {
		t.Fatal("expected verifier")
	}
}

func TestModelSet(t *testing.T) {
	cfg := &config.Config{LLMProvider: llm.ProviderOpenAI}
	cfg.OpenAI.OutlineModel = "outline-model"
	cfg.OpenAI.ChatModel = "chat-model"
	cfg.OpenAI.SuggestModel = "suggest-model"

	got := modelSet(cfg)
	if got.Outline != "outline-model" || got.Chat != "chat-model" || got.Suggest != "suggest-model" {
		t.Errorf("modelSet(openai) = %+v", got)
	}

	cfg.LLMProvider = llm.ProviderGemini
	if got := modelSet(cfg); got.Outline != "" || got.Chat != "" {
		t.Errorf("modelSet(gemini) = %+v, want empty", got)
	}
}

func TestNewLLMClient_SelectsProvider(t *testing.T) {
	cfg := &config.Config{LLMProvider: llm.ProviderOpenAI}
	cfg.OpenAI.APIKey = "sk-test"

	client, err := newLLMClient(t.Context(), cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if client.Provider() != llm.ProviderOpenAI {
		t.Errorf("Provider() = %q, want %q", client.Provider(), llm.ProviderOpenAI)
	}

	cfg.LLMProvider = llm.ProviderGemini
	if _, err := newLLMClient(t.Context(), cfg); err == nil {
		t.Error("expected error for gemini without api key")
	}
}

func TestOptionalStoresDisabledWithoutConfig(t *testing.T) {
	cfg := &config.Config{}

	if store := openArchiveStore(t.Context(), cfg); store != nil {
		t.Error("archive store should be nil when MINIO_ENDPOINT is unset")
	}
	c, client := openSuggestionCache(t.Context(), cfg, nil)
	if c != nil || client != nil {
		t.Error("suggestion cache should be nil when REDIS_ADDR is unset")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://user:secret@db:5432/pitchdeck?sslmode=disable", "postgres://user:xxxxx@db:5432/pitchdeck?sslmode=disable"},
		{"not a url", "***"},
	}

	for _, tt := range tests {
		if got := maskDatabaseURL(tt.in); got != tt.want {
			t.Errorf("maskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewPDFRenderer(t *testing.T) {
	if _, err := newPDFRenderer(""); err != nil {
		t.Errorf("embedded font should load, got %v", err)
	}

	if _, err := newPDFRenderer(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Error("expected error for missing font file")
	}

	otf := filepath.Join(t.TempDir(), "font.otf")
	if err := os.WriteFile(otf, []byte("OTTO\x00\x01"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := newPDFRenderer(otf); err == nil {
		t.Error("expected error for non-TrueType font")
	}
}
