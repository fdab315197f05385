package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// contentGenerator はgenai.Modelsのうち使用するメソッドの部分集合。
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiClient はGemini APIのクライアント。
type GeminiClient struct {
	models contentGenerator
	model  string
}

// NewGeminiClient はAPIキーでgenaiクライアントを初期化しGeminiClientを生成する。
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiClientWithModels(client.Models, model), nil
}

func newGeminiClientWithModels(models contentGenerator, model string) *GeminiClient {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{models: models, model: model}
}

// Provider はプロバイダー名を返す。
func (c *GeminiClient) Provider() string { return ProviderGemini }

// Complete はGenerateContentを呼び出し、応答テキストを返す。
// Request.Modelは無視し、生成時に設定したモデルを使う。
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      float32Ptr(req.Temperature),
		PresencePenalty:  float32Ptr(req.PresencePenalty),
		FrequencyPenalty: float32Ptr(req.FrequencyPenalty),
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(req.User, genai.RoleUser)},
		config,
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate content failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func float32Ptr(v float64) *float32 {
	f := float32(v)
	return &f
}

// compile-time interface check
var _ Client = (*GeminiClient)(nil)
