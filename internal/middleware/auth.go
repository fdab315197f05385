// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/pitchdeck/internal/auth"
	"github.com/hitoshi/pitchdeck/internal/model"
)

const bearerPrefix = "Bearer "

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// principalContextKey は検証済みトークンの利用者情報を格納するキー。
	principalContextKey = contextKey("principal")
	// userIDContextKey は解決済みのユーザーIDを格納するキー。
	userIDContextKey = contextKey("user_id")
)

// TokenVerifier はIDトークンの検証に必要なインターフェース。
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*auth.Principal, error)
}

// UserResolver はPrincipalからユーザーIDを解決するインターフェース。
// auth.Serviceの部分集合として定義する。
type UserResolver interface {
	ResolveUserID(ctx context.Context, p *auth.Principal) (string, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// Principalをリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダーがない場合はUNAUTHORIZED、検証に失敗した場合はINVALID_TOKENで401を返す。
func NewBearerAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, bearerPrefix) {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}
			rawToken := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
			if rawToken == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			principal, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				slog.Warn("token verification failed",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidTokenError())
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// NewUserResolverMiddleware はPrincipalに紐づくユーザーIDを解決し、
// リクエストコンテキストに注入するミドルウェアを返す。
// BearerAuthMiddlewareの後に配置する。
func NewUserResolverMiddleware(resolver UserResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
				return
			}

			userID, err := resolver.ResolveUserID(r.Context(), principal)
			if err != nil {
				var apiErr *model.APIError
				if errors.As(err, &apiErr) {
					WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
					return
				}
				slog.Error("failed to resolve user",
					slog.String("provider", principal.Provider),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}

			setLoggedUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから検証済みのPrincipalを取得する。
func PrincipalFromContext(ctx context.Context) (*auth.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(*auth.Principal)
	if !ok || p == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return p, nil
}

// ContextWithPrincipal はコンテキストにPrincipalを注入する。
func ContextWithPrincipal(ctx context.Context, p *auth.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// UserResolverMiddlewareを通過したリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
