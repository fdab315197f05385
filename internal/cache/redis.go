// Package cache は画像提案の結果をRedisに保持するキャッシュを提供する。
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/pitchdeck/internal/model"
)

const keyPrefix = "pitchdeck:suggestions:"

// redisCmdable はredis.Clientのうち使用するコマンドの部分集合。
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LookupRecorder はキャッシュ参照の結果（hit, miss, error）を受け取る。
type LookupRecorder interface {
	ObserveCacheLookup(result string)
}

// RedisSuggestionCache はスライド種別と本文のSHA-256をキーに画像提案を保存する。
// Redisの障害はキャッシュミスとして扱い、呼び出し元には返さない。
type RedisSuggestionCache struct {
	client   redisCmdable
	ttl      time.Duration
	recorder LookupRecorder
}

// NewRedisClient はRedisへ接続し、疎通を確認したクライアントを返す。
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisSuggestionCache はRedisSuggestionCacheを生成する。recorderはnilでもよい。
func NewRedisSuggestionCache(client redisCmdable, ttl time.Duration, recorder LookupRecorder) *RedisSuggestionCache {
	return &RedisSuggestionCache{client: client, ttl: ttl, recorder: recorder}
}

// Key はキャッシュキーを返す。
func Key(slideType, content string) string {
	sum := sha256.Sum256([]byte(slideType + "\x00" + content))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Get は保存済みの提案を返す。
func (c *RedisSuggestionCache) Get(ctx context.Context, slideType, content string) ([]model.ImageSuggestion, bool) {
	data, err := c.client.Get(ctx, Key(slideType, content)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.observe("miss")
		return nil, false
	}
	if err != nil {
		slog.Warn("suggestion cache read failed", slog.String("error", err.Error()))
		c.observe("error")
		return nil, false
	}

	var suggestions []model.ImageSuggestion
	if err := json.Unmarshal(data, &suggestions); err != nil {
		slog.Warn("suggestion cache entry is corrupt", slog.String("error", err.Error()))
		c.observe("error")
		return nil, false
	}
	c.observe("hit")
	return suggestions, true
}

// Set は提案をTTL付きで保存する。
func (c *RedisSuggestionCache) Set(ctx context.Context, slideType, content string, suggestions []model.ImageSuggestion) {
	data, err := json.Marshal(suggestions)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, Key(slideType, content), data, c.ttl).Err(); err != nil {
		slog.Warn("suggestion cache write failed", slog.String("error", err.Error()))
	}
}

func (c *RedisSuggestionCache) observe(result string) {
	if c.recorder != nil {
		c.recorder.ObserveCacheLookup(result)
	}
}
