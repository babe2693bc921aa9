package middleware

import (
	"net/http"
	"time"

	"github.com/nrityalens/nrityalens/internal/metrics"
)

// unmatchedRoute はルートに一致しなかったリクエストのラベル。
// パスをそのままラベルにするとカーディナリティが際限なく増えるため。
const unmatchedRoute = "unmatched"

// NewMetricsMiddleware はHTTPリクエスト数と処理時間を記録するミドルウェアを返す。
// ルートラベルにはchiのルートパターン（例: /api/groups/{id}/chat）を使用する。
func NewMetricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			collector.RecordHTTPRequest(r.Method, routePattern(r), rec.statusCode, time.Since(start))
		})
	}
}
