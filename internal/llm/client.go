// Package llm は大規模言語モデルAPIへの問い合わせを抽象化する。
// OpenAI互換のchat completions APIとGemini APIの2つの実装を持つ。
package llm

import (
	"context"
	"errors"
	"time"
)

// プロバイダー名
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// ErrEmptyResponse はモデルが空の応答を返したことを示す。
var ErrEmptyResponse = errors.New("llm returned empty response")

// Request は1回の補完リクエストを表す。
type Request struct {
	// Operation はメトリクスとログ用の操作名（generate_deck等）。
	Operation string
	// Model が空の場合はクライアントの既定モデルを使う。
	Model string

	System string
	User   string

	MaxTokens        int
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64

	// JSON がtrueの場合はJSONオブジェクトでの応答を要求する。
	JSON bool
}

// Client はLLMに補完を問い合わせるインターフェース。
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Provider() string
}

// Recorder はLLM呼び出しの計測結果を受け取るインターフェース。
type Recorder interface {
	ObserveLLMRequest(provider, operation, outcome string, elapsed time.Duration)
}

// instrumentedClient は呼び出し結果をRecorderへ記録するClient。
type instrumentedClient struct {
	next     Client
	recorder Recorder
	now      func() time.Time
}

// WithRecorder はclientの呼び出しごとに結果と所要時間を記録するClientを返す。
func WithRecorder(client Client, recorder Recorder) Client {
	if recorder == nil {
		return client
	}
	return &instrumentedClient{next: client, recorder: recorder, now: time.Now}
}

func (c *instrumentedClient) Complete(ctx context.Context, req Request) (string, error) {
	start := c.now()
	out, err := c.next.Complete(ctx, req)

	outcome := "success"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	c.recorder.ObserveLLMRequest(c.next.Provider(), req.Operation, outcome, c.now().Sub(start))

	return out, err
}

func (c *instrumentedClient) Provider() string {
	return c.next.Provider()
}
