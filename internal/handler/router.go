package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nrityalens/nrityalens/internal/metrics"
	"github.com/nrityalens/nrityalens/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// HealthChecker はヘルスチェックで依存先の疎通を確認するインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker      HealthChecker
	TokenParser        middleware.TokenParser
	CORSAllowedOrigins []string
	TrustProxyHeaders  bool
	RateLimiter        *middleware.RateLimiter
	Logger             *slog.Logger

	// メトリクス。nilの場合は収集せず、/metricsも公開しない
	Metrics         metrics.MetricsCollector
	MetricsGatherer prometheus.Gatherer

	UserService     UserServiceInterface
	GroupService    GroupServiceInterface
	ProgressService ProgressServiceInterface
	MudraService    MudraServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP → SecurityHeaders → CORS → Identity → Logging → Metrics
//	→ RateLimit(General) → RateLimit(Write, 書き込み系のみ)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware(logger))
	// プロキシヘッダーは任意のクライアントが偽装できるため、信頼できるプロキシの背後でのみ使う
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewIdentityMiddleware(deps.TokenParser))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, routeNotFoundError())
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusMethodNotAllowed, methodNotAllowedError())
	})

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	userHandler := NewUserHandler(deps.UserService)
	groupHandler := NewGroupHandler(deps.GroupService)
	progressHandler := NewProgressHandler(deps.ProgressService)
	mudraHandler := NewMudraHandler(deps.MudraService)

	write := deps.RateLimiter.WriteMiddleware()

	// --- API ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ユーザー（:idはclerkId）
		r.Route("/api/users", func(r chi.Router) {
			r.Post("/check", userHandler.Check)
			r.With(write).Post("/register", userHandler.Register)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.GetUser)
				r.With(write).Put("/points", userHandler.SetPoints)
				r.With(write).Post("/sessions", userHandler.AppendSession)
				r.Get("/sessions", userHandler.ListSessions)
			})
		})

		// グループ
		r.Route("/api/groups", func(r chi.Router) {
			r.Get("/", groupHandler.ListGroups)
			r.With(write).Post("/", groupHandler.CreateGroup)
			r.With(write).Post("/join", groupHandler.JoinGroup)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", groupHandler.GetGroup)
				r.With(write).Post("/chat", groupHandler.PostChat)
				r.Get("/chat", groupHandler.FetchChats)

				r.Get("/progress", progressHandler.GroupProgress)
				r.Get("/progress/{clerkId}", progressHandler.MemberProgress)
				r.Get("/member-progress", progressHandler.MemberProgressByQuery)
			})
		})

		// ムドラカタログ
		r.Route("/api/mudras", func(r chi.Router) {
			r.Get("/", mudraHandler.ListMudras)
			r.Get("/{id}", mudraHandler.GetMudra)
		})
	})

	return r
}

// healthHandler はDB疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
