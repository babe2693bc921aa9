// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ミドルウェアやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordGroupCreated()
	RecordGroupJoin(added bool)
	RecordChatMessage()
	RecordSessionRecorded()
	RecordMudraCache(hit bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	groupsCreated    prometheus.Counter
	groupJoins       *prometheus.CounterVec
	chatMessages     prometheus.Counter
	sessionsRecorded prometheus.Counter
	mudraCache       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nrityalens_http_requests_total",
			Help: "HTTPリクエスト数（メソッド、ルート、ステータス別）",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nrityalens_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		groupsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrityalens_groups_created_total",
			Help: "作成されたグループの合計数",
		}),
		groupJoins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nrityalens_group_joins_total",
			Help: "グループ参加リクエスト数（added=新規追加, existing=既にメンバー）",
		}, []string{"result"}),
		chatMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrityalens_chat_messages_total",
			Help: "投稿されたチャットメッセージの合計数",
		}),
		sessionsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nrityalens_sessions_recorded_total",
			Help: "記録された練習セッションの合計数",
		}),
		mudraCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nrityalens_mudra_cache_requests_total",
			Help: "ムドラカタログキャッシュの参照数（hit/miss別）",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.groupsCreated,
		c.groupJoins,
		c.chatMessages,
		c.sessionsRecorded,
		c.mudraCache,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、ラベルの種類数がパスパラメータで増えないようにする。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGroupCreated はグループ作成を記録する。
func (c *Collector) RecordGroupCreated() {
	c.groupsCreated.Inc()
}

// RecordGroupJoin はグループ参加を記録する。
func (c *Collector) RecordGroupJoin(added bool) {
	result := "existing"
	if added {
		result = "added"
	}
	c.groupJoins.WithLabelValues(result).Inc()
}

// RecordChatMessage はチャット投稿を記録する。
func (c *Collector) RecordChatMessage() {
	c.chatMessages.Inc()
}

// RecordSessionRecorded は練習セッションの記録を記録する。
func (c *Collector) RecordSessionRecorded() {
	c.sessionsRecorded.Inc()
}

// RecordMudraCache はカタログキャッシュのヒット/ミスを記録する。
func (c *Collector) RecordMudraCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.mudraCache.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
