package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4-turbo-preview"

	// maxRetryAfter はRetry-Afterヘッダーを尊重する上限。これを超える指定は上限で待つ。
	maxRetryAfter   = 5 * time.Second
	defaultBackoff  = time.Second
	maxResponseSize = 4 << 20
)

// OpenAIConfig はOpenAIClientの設定。
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // テスト用にオーバーライド可能
	Model   string
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model            string                `json:"model"`
	Messages         []openAIMessage       `json:"messages"`
	MaxTokens        int                   `json:"max_tokens,omitempty"`
	Temperature      float64               `json:"temperature"`
	PresencePenalty  float64               `json:"presence_penalty,omitempty"`
	FrequencyPenalty float64               `json:"frequency_penalty,omitempty"`
	ResponseFormat   *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIClient はOpenAI互換のchat completions APIのクライアント。
// 429と5xxは1回だけ再試行する。
type OpenAIClient struct {
	config     OpenAIConfig
	httpClient *http.Client
	logger     *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error // テスト用に差し替え可能
}

// NewOpenAIClient はOpenAIClientを生成する。
func NewOpenAIClient(config OpenAIConfig, httpClient *http.Client, logger *slog.Logger) *OpenAIClient {
	if config.BaseURL == "" {
		config.BaseURL = defaultOpenAIBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	return &OpenAIClient{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		sleep:      sleepContext,
	}
}

// Provider はプロバイダー名を返す。
func (c *OpenAIClient) Provider() string { return ProviderOpenAI }

// Complete はchat completionsを呼び出し、最初の選択肢の本文を返す。
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	body := openAIRequest{
		Model:            model,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, openAIMessage{Role: "user", Content: req.User})
	if req.JSON {
		body.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		content, retryAfter, err := c.do(ctx, payload)
		if err == nil {
			return content, nil
		}
		if retryAfter < 0 || attempt >= 1 {
			return "", err
		}

		c.logger.Warn("LLM呼び出しを再試行します",
			slog.String("provider", ProviderOpenAI),
			slog.String("operation", req.Operation),
			slog.Duration("retry_after", retryAfter),
			slog.String("error", err.Error()),
		)
		if err := c.sleep(ctx, retryAfter); err != nil {
			return "", err
		}
	}
}

// do は1回のHTTP呼び出しを行う。再試行可能な失敗の場合は待機時間を、
// それ以外の失敗の場合は負の値を返す。
func (c *OpenAIClient) do(ctx context.Context, payload []byte) (string, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", -1, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", -1, ctx.Err()
		}
		return "", defaultBackoff, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", defaultBackoff, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", retryAfterDuration(resp.Header.Get("Retry-After")),
			fmt.Errorf("llm api returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("LLM APIがエラーステータスを返しました",
			slog.String("provider", ProviderOpenAI),
			slog.Int("http_status", resp.StatusCode),
		)
		return "", -1, fmt.Errorf("llm api returned status %d", resp.StatusCode)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", -1, fmt.Errorf("failed to parse response: %w", err)
	}
	if parsed.Error != nil {
		return "", -1, fmt.Errorf("llm api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", -1, ErrEmptyResponse
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", -1, ErrEmptyResponse
	}
	return content, -1, nil
}

// retryAfterDuration はRetry-After（秒）を解釈し、maxRetryAfterで頭打ちにする。
func retryAfterDuration(header string) time.Duration {
	sec, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || sec <= 0 {
		return defaultBackoff
	}
	return min(time.Duration(sec)*time.Second, maxRetryAfter)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// compile-time interface check
var _ Client = (*OpenAIClient)(nil)
