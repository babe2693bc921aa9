package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// serveAndCaptureLog はロギングミドルウェアを通したchiルーターでリクエストを処理し、出力されたログ1行を返す。
func serveAndCaptureLog(t *testing.T, register func(r chi.Router), req *http.Request) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(logger))
	register(r)
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry
}

func TestLoggingMiddleware_RequestFields(t *testing.T) {
	entry := serveAndCaptureLog(t, func(r chi.Router) {
		r.Get("/api/mudras/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"pataka"}`))
		})
	}, httptest.NewRequest(http.MethodGet, "/api/mudras/pataka", nil))

	if entry["msg"] != "http_request" {
		t.Errorf("msg = %v, want http_request", entry["msg"])
	}
	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/api/mudras/pataka" {
		t.Errorf("path = %v", entry["path"])
	}
	if entry["route"] != "/api/mudras/{id}" {
		t.Errorf("route = %v, want /api/mudras/{id}", entry["route"])
	}
	// Writeのみの場合は暗黙の200
	if entry["status"] != float64(200) {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if entry["bytes"] != float64(len(`{"id":"pataka"}`)) {
		t.Errorf("bytes = %v", entry["bytes"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v", entry["duration_ms"])
	}
	if _, ok := entry["clerk_id"]; ok {
		t.Error("clerkIdのないリクエストでclerk_idを出力してはいけない")
	}
	if _, ok := entry["group_id"]; ok {
		t.Error("グループ外のルートでgroup_idを出力してはいけない")
	}
}

func TestLoggingMiddleware_UnmatchedRoute(t *testing.T) {
	entry := serveAndCaptureLog(t, func(r chi.Router) {
		r.Get("/api/mudras", func(w http.ResponseWriter, r *http.Request) {})
	}, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))

	if entry["route"] != unmatchedRoute {
		t.Errorf("route = %v, want %s", entry["route"], unmatchedRoute)
	}
	if entry["status"] != float64(404) {
		t.Errorf("status = %v, want 404", entry["status"])
	}
}

func TestLoggingMiddleware_ClerkID(t *testing.T) {
	register := func(r chi.Router) {
		r.Get("/api/groups/{id}/progress/{clerkId}", func(w http.ResponseWriter, r *http.Request) {})
		r.Get("/api/groups", func(w http.ResponseWriter, r *http.Request) {})
	}

	tests := []struct {
		name    string
		target  string
		tokenID string
		want    string
	}{
		{"トークン優先", "/api/groups?clerkId=user_query", "user_token", "user_token"},
		{"ルートパラメータ", "/api/groups/g1/progress/user_route", "", "user_route"},
		{"クエリパラメータ", "/api/groups?clerkId=user_query", "", "user_query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.tokenID != "" {
				req = req.WithContext(ContextWithClerkID(req.Context(), tt.tokenID))
			}

			entry := serveAndCaptureLog(t, register, req)
			if entry["clerk_id"] != tt.want {
				t.Errorf("clerk_id = %v, want %q", entry["clerk_id"], tt.want)
			}
		})
	}
}

func TestLoggingMiddleware_GroupID(t *testing.T) {
	register := func(r chi.Router) {
		r.Route("/api/groups/{id}", func(r chi.Router) {
			r.Get("/chat", func(w http.ResponseWriter, r *http.Request) {})
		})
		r.Get("/api/mudras/{id}", func(w http.ResponseWriter, r *http.Request) {})
	}

	entry := serveAndCaptureLog(t, register, httptest.NewRequest(http.MethodGet, "/api/groups/g-42/chat", nil))
	if entry["group_id"] != "g-42" {
		t.Errorf("group_id = %v, want g-42", entry["group_id"])
	}
	if entry["route"] != "/api/groups/{id}/chat" {
		t.Errorf("route = %v", entry["route"])
	}

	// ムドラの{id}はグループIDとして扱わない
	entry = serveAndCaptureLog(t, register, httptest.NewRequest(http.MethodGet, "/api/mudras/pataka", nil))
	if _, ok := entry["group_id"]; ok {
		t.Errorf("group_id = %v, want absent", entry["group_id"])
	}
}

// TestLoggingMiddleware_LevelFollowsStatus はステータスに応じてログレベルが変わることを検証する。
func TestLoggingMiddleware_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, "INFO"},
		{http.StatusCreated, "INFO"},
		{http.StatusBadRequest, "WARN"},
		{http.StatusForbidden, "WARN"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
		{http.StatusServiceUnavailable, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			entry := serveAndCaptureLog(t, func(r chi.Router) {
				r.Post("/api/groups", func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
				})
			}, httptest.NewRequest(http.MethodPost, "/api/groups", nil))

			if entry["level"] != tt.want {
				t.Errorf("level = %v, want %s", entry["level"], tt.want)
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
		})
	}
}

// TestStatusRecorder_SharedAcrossMiddlewares は重ねたミドルウェアが同じレコーダーを共有することを検証する。
func TestStatusRecorder_SharedAcrossMiddlewares(t *testing.T) {
	outer := newStatusRecorder(httptest.NewRecorder())
	inner := newStatusRecorder(outer)
	if inner != outer {
		t.Fatal("statusRecorderを二重にラップしてはいけない")
	}

	inner.WriteHeader(http.StatusAccepted)
	inner.WriteHeader(http.StatusInternalServerError)
	if outer.statusCode != http.StatusAccepted {
		t.Errorf("statusCode = %d, want 202（最初のWriteHeaderを記録）", outer.statusCode)
	}
}
