package middleware

import (
	"net/http"
	"strings"
)

// mudraCatalogPath はキャッシュ可能なムドラカタログのパス接頭辞。
const mudraCatalogPath = "/api/mudras"

// NewSecurityHeadersMiddleware はJSON APIとしてのセキュリティヘッダーを付与するミドルウェアを返す。
// レスポンスはスクリプトとして解釈させず、フレーム埋め込みも禁止する。
// カメラはフロントエンドのムドラ撮影で使うため、自オリジンのみ許可する。
// ユーザー・グループのデータはキャッシュさせず、静的なムドラカタログのみ短時間のキャッシュを許す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(self), microphone=(), geolocation=()")
			if r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, mudraCatalogPath) {
				h.Set("Cache-Control", "public, max-age=300")
			} else {
				h.Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r)
		})
	}
}
