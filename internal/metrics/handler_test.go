package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// TestHandler_ServesMudraCacheCounters はキャッシュ参照数がhit/missラベル付きで公開されることを検証する。
func TestHandler_ServesMudraCacheCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordMudraCache(true)
	c.RecordMudraCache(false)
	c.RecordMudraCache(false)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	for _, want := range []string{
		`nrityalens_mudra_cache_requests_total{result="hit"} 1`,
		`nrityalens_mudra_cache_requests_total{result="miss"} 2`,
	} {
		if !strings.Contains(bodyStr, want) {
			t.Errorf("response should contain %q", want)
		}
	}
}

// TestHandler_OnlyServesGivenRegistry はHandlerが渡されたレジストリのメトリクスのみ返すことを検証する。
func TestHandler_OnlyServesGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if strings.Contains(w.Body.String(), "go_goroutines") {
		t.Error("default runtime collectors should not leak into a custom registry")
	}
}
