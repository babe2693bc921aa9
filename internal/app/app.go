// Package app はサブコマンドの解析と依存関係のワイヤリングを行い、アプリケーションを起動する。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nrityalens/nrityalens/internal/config"
	"github.com/nrityalens/nrityalens/internal/database"
	"github.com/nrityalens/nrityalens/internal/events"
	"github.com/nrityalens/nrityalens/internal/group"
	"github.com/nrityalens/nrityalens/internal/handler"
	"github.com/nrityalens/nrityalens/internal/logger"
	"github.com/nrityalens/nrityalens/internal/metrics"
	"github.com/nrityalens/nrityalens/internal/middleware"
	"github.com/nrityalens/nrityalens/internal/mudra"
	"github.com/nrityalens/nrityalens/internal/progress"
	"github.com/nrityalens/nrityalens/internal/repository"
	"github.com/nrityalens/nrityalens/internal/security"
	"github.com/nrityalens/nrityalens/internal/token"
	"github.com/nrityalens/nrityalens/internal/user"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	// migrate はDATABASE_URLのみで実行できる
	if cmd == CommandMigrate {
		logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))
		var rest []string
		if len(args) > 1 {
			rest = args[1:]
		}
		opts, err := ParseMigrateArgs(rest)
		if err != nil {
			return err
		}
		databaseURL, err := config.LoadDatabaseURL()
		if err != nil {
			return fmt.Errorf("initialization failed: %w", err)
		}
		return runMigrate(databaseURL, opts)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandSeed:
		return runSeed(cfg)
	default:
		return runServe(cfg)
	}
}

// infrastructure はDB以外の外部依存をまとめたもの。
// 設定されていない依存はnilになり、その機能は無効になる。
type infrastructure struct {
	cache     mudra.Cache
	publisher events.Publisher
	closers   []io.Closer
}

// Close は開いた外部接続を全て閉じる。
func (i *infrastructure) Close() {
	for _, c := range i.closers {
		if err := c.Close(); err != nil {
			slog.Warn("failed to close connection", slog.String("error", err.Error()))
		}
	}
}

// openInfrastructure は設定に応じてRedisキャッシュとKafkaパブリッシャーを開く。
// Redisに接続できない場合はキャッシュなしで続行する。
func openInfrastructure(ctx context.Context, cfg *config.Config) (*infrastructure, error) {
	infra := &infrastructure{}

	if cfg.RedisURL != "" {
		client, err := mudra.Connect(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		cache := mudra.NewRedisCache(client, cfg.MudraCacheTTL)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = cache.Ping(pingCtx)
		cancel()
		if err != nil {
			slog.Warn("redis is unreachable; mudra cache disabled", slog.String("error", err.Error()))
			_ = cache.Close()
		} else {
			infra.cache = cache
			infra.closers = append(infra.closers, cache)
			slog.Info("mudra cache enabled", slog.Duration("ttl", cfg.MudraCacheTTL))
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix)
		if err != nil {
			infra.Close()
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		infra.publisher = publisher
		infra.closers = append(infra.closers, publisher)
		slog.Info("event publishing enabled",
			slog.Any("brokers", cfg.KafkaBrokers),
			slog.String("topic_prefix", cfg.KafkaTopicPrefix),
		)
	}

	return infra, nil
}

// buildRouterDeps はリポジトリ、サービスを組み立ててルーターの依存関係を返す。
func buildRouterDeps(cfg *config.Config, db *sql.DB, infra *infrastructure, reg *prometheus.Registry) (*handler.RouterDeps, error) {
	// 1. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	groupRepo := repository.NewPostgresGroupRepo(db)
	mudraRepo := repository.NewPostgresMudraRepo(db)

	// 2. 横断的な依存の初期化
	signer, err := token.NewSigner(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token signer: %w", err)
	}
	collector := metrics.NewCollector(reg)
	emitter := events.NewEmitter(infra.publisher)

	// 3. ドメインサービスの初期化
	userService := user.NewService(userRepo, signer, emitter, collector)
	groupService := group.NewService(groupRepo, userRepo, security.NewChatSanitizer(), emitter, collector, cfg.BaseURL)
	progressService := progress.NewService(groupRepo, userRepo)
	mudraService := mudra.NewService(mudraRepo, infra.cache, collector)

	return &handler.RouterDeps{
		HealthChecker:      db,
		TokenParser:        signer,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		RateLimiter:        middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite)),
		Logger:             slog.Default(),
		Metrics:            collector,
		MetricsGatherer:    reg,
		UserService:        userService,
		GroupService:       groupService,
		ProgressService:    progressService,
		MudraService:       mudraService,
	}, nil
}

// newRegistry はGo runtimeとプロセスのメトリクスを登録済みのレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer db.Close()

	// 2. キャッシュ、イベント
	infra, err := openInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer infra.Close()

	// 3. ルーターの構築
	deps, err := buildRouterDeps(cfg, db, infra, newRegistry())
	if err != nil {
		return err
	}
	defer deps.RateLimiter.Stop()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 4. HTTPサーバーの起動
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runSeed は組み込みのムドラカタログをデータベースに登録する。
// 同名のムドラは上書きするため、繰り返し実行してよい。
func runSeed(cfg *config.Config) error {
	ctx := context.Background()

	catalog, err := mudra.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load mudra catalog: %w", err)
	}

	db, err := openDatabase(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer db.Close()

	// 登録後に古いキャッシュを破棄するためRedisにも接続する
	infra, err := openInfrastructure(ctx, cfg)
	if err != nil {
		return err
	}
	defer infra.Close()

	service := mudra.NewService(repository.NewPostgresMudraRepo(db), infra.cache, nil)
	n, err := service.Seed(ctx, catalog)
	if err != nil {
		return fmt.Errorf("seed failed after %d mudras: %w", n, err)
	}

	slog.Info("mudra catalog seeded", slog.Int("count", n))
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(databaseURL string, opts MigrateOptions) error {
	slog.Info("running database migrations",
		slog.String("action", string(opts.Action)),
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)

	switch opts.Action {
	case MigrateDown:
		if err := database.RollbackMigrations(databaseURL, opts.Steps); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		slog.Info("database migrations rolled back", slog.Int("steps", opts.Steps))
	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(databaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("current migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	default:
		if err := database.RunMigrations(databaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}
	return nil
}

// openDatabase はDBに接続し、接続先をマスクしてログに残す。
func openDatabase(ctx context.Context, databaseURL string, maxOpenConns int) (*sql.DB, error) {
	db, err := database.Connect(ctx, databaseURL, maxOpenConns)
	if err != nil {
		return nil, err
	}

	slog.Info("database connection established",
		slog.String("database", maskDatabaseURL(databaseURL)),
		slog.Int("max_open_conns", maxOpenConns),
	)
	return db, nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
