package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/okian/cinematch/internal/adapters/http/api"
	"github.com/okian/cinematch/internal/adapters/http/site"
	"github.com/okian/cinematch/internal/adapters/http/swagger"
	"github.com/okian/cinematch/internal/adapters/memo"
	"github.com/okian/cinematch/internal/adapters/tmdb"
	app "github.com/okian/cinematch/internal/app"
	"github.com/okian/cinematch/internal/config"
	"github.com/okian/cinematch/internal/domain/types"
	"github.com/okian/cinematch/pkg/logger"
	"github.com/okian/cinematch/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	redisPingTimeout          = 2 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Redis key prefixes for the shared memo tier.
const (
	detailsMemoPrefix = "cinematch:tmdb:details:"
	trailerMemoPrefix = "cinematch:tmdb:trailer:"
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't available yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	loggerInstance := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	gateway, closeGateway := newGateway(ctx, cfg, loggerInstance)
	defer closeGateway()

	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithArtifactPaths(cfg.CatalogPath, cfg.MatrixPath),
		app.WithArtifactURLs(cfg.CatalogURL, cfg.MatrixURL),
		app.WithDownloadTimeout(cfg.DownloadTimeout()),
		app.WithGateway(gateway),
		app.WithResultLimit(cfg.ResultLimit),
	)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	metrics.SetRefreshInterval(cfg.MetricsRefresh())
	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	srv := newHTTPServer(cfg.Addr, newRouter(ctx, cfg, svc, loggerInstance))

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newGateway builds the TMDB client and, when redis_addr is set, a shared
// redis memo tier behind the in-process one. The returned func releases it.
func newGateway(ctx context.Context, cfg *config.Config, log logger.Logger) (*tmdb.Client, func()) {
	opts := []tmdb.Option{
		tmdb.WithAPIKey(cfg.TMDBAPIKey),
		tmdb.WithBaseURL(cfg.TMDBBaseURL),
		tmdb.WithImageBaseURL(cfg.TMDBImageBaseURL),
		tmdb.WithTimeout(cfg.TMDBTimeout()),
		tmdb.WithRateLimit(cfg.TMDBRatePerSecond, cfg.TMDBBurst),
		tmdb.WithBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout()),
		tmdb.WithLogger(log.Named("tmdb")),
	}
	if cfg.TMDBAPIKey == "" {
		log.Warn(ctx, "tmdb_api_key not set; recommendations will be empty")
	}

	cleanup := func() {}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := client.Ping(pingCtx).Err(); err != nil {
			log.Warn(ctx, "redis unreachable; shared memo reads will miss",
				logger.String("addr", cfg.RedisAddr), logger.Error(err))
		}
		cancel()

		memoLog := log.Named("memo")
		opts = append(opts,
			tmdb.WithDetailsMemo(memo.NewTiered[types.Details](
				memo.NewInMemory[types.Details](),
				memo.NewRedis[types.Details](client, detailsMemoPrefix, cfg.MemoTTL()).WithLogger(memoLog),
			)),
			tmdb.WithTrailerMemo(memo.NewTiered[string](
				memo.NewInMemory[string](),
				memo.NewRedis[string](client, trailerMemoPrefix, cfg.MemoTTL()).WithLogger(memoLog),
			)),
		)
		cleanup = func() { _ = client.Close() }
	}
	return tmdb.New(opts...), cleanup
}

// newRouter wires middleware, the API, the docs and the page.
func newRouter(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(api.RequestID)
	r.Use(chimiddleware.Recoverer)

	apiServer := api.NewServer(svc, svc,
		api.WithRateLimit(cfg.HTTPRateLimit, cfg.HTTPRateWindow()),
		api.WithLogger(log.Named("http")),
	)
	apiServer.Register(ctx, r)
	swagger.Register(ctx, r)
	site.Register(ctx, r)
	return r
}

func newHTTPServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
