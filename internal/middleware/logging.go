package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードと書き込みバイト数を記録する。
// ミドルウェアが重ねて使っても同一インスタンスを共有する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	bytes      int
	written    bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	if sr, ok := w.(*statusRecorder); ok {
		return sr
	}
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	sr.written = true
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// Unwrap はhttp.ResponseControllerのために元のResponseWriterを返す。
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// NewLoggingMiddleware はリクエストごとに1行のJSON構造化ログを出力するミドルウェアを返す。
// 5xxはERROR、4xxはWARN、それ以外はINFOで出力する。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("route", routePattern(r)),
				slog.Int("status", rec.statusCode),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if clerkID := requestClerkID(r); clerkID != "" {
				attrs = append(attrs, slog.String("clerk_id", clerkID))
			}
			if groupID := requestGroupID(r); groupID != "" {
				attrs = append(attrs, slog.String("group_id", groupID))
			}

			level := slog.LevelInfo
			switch {
			case rec.statusCode >= 500:
				level = slog.LevelError
			case rec.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "http_request", attrs...)
		})
	}
}

// routePattern はchiが一致させたルートパターンを返す。一致しない場合はunmatchedRoute。
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

// requestClerkID はリクエストに関係するclerkIdを返す。
// トークン、ルートパラメータ、クエリパラメータの順に参照する。
func requestClerkID(r *http.Request) string {
	if clerkID, err := ClerkIDFromContext(r.Context()); err == nil {
		return clerkID
	}
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if clerkID := rctx.URLParam("clerkId"); clerkID != "" {
			return clerkID
		}
	}
	return r.URL.Query().Get("clerkId")
}

// requestGroupID はグループ配下のルートの場合にグループIDを返す。
func requestGroupID(r *http.Request) string {
	if !strings.HasPrefix(routePattern(r), "/api/groups/{id}") {
		return ""
	}
	return chi.URLParamFromCtx(r.Context(), "id")
}
