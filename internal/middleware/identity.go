// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nrityalens/nrityalens/internal/token"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// clerkIDContextKey はリクエストコンテキストにclerkIdを格納するためのキー。
var clerkIDContextKey = contextKey("clerk_id")

// TokenParser は登録時に発行したトークンの検証に必要なインターフェース。
type TokenParser interface {
	Parse(raw string) (token.Claims, error)
}

// NewIdentityMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 有効な場合はclerkIdをリクエストコンテキストに注入するミドルウェアを返す。
// トークンがない、または無効なリクエストもそのまま通す。
// clerkIdはログとレート制限のキーにのみ使用し、アクセス制御には使用しない。
func NewIdentityMiddleware(parser TokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok || parser == nil {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parser.Parse(raw)
			if err != nil {
				slog.Debug("ignoring invalid bearer token",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithClerkID(r.Context(), claims.ClerkID)))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(h[7:])
	return raw, raw != ""
}

// ClerkIDFromContext はリクエストコンテキストからclerkIdを取得する。
// 有効なトークン付きのリクエストでのみ値を持つ。
func ClerkIDFromContext(ctx context.Context) (string, error) {
	clerkID, ok := ctx.Value(clerkIDContextKey).(string)
	if !ok || clerkID == "" {
		return "", fmt.Errorf("clerk ID not found in context")
	}
	return clerkID, nil
}

// ContextWithClerkID はコンテキストにclerkIdを注入する。
func ContextWithClerkID(ctx context.Context, clerkID string) context.Context {
	return context.WithValue(ctx, clerkIDContextKey, clerkID)
}
