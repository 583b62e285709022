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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/standings/internal/adapters/http/api"
	"github.com/okian/standings/internal/adapters/http/swagger"
	"github.com/okian/standings/internal/adapters/http/ws"
	"github.com/okian/standings/internal/adapters/mq/worker"
	app "github.com/okian/standings/internal/app"
	"github.com/okian/standings/internal/config"
	"github.com/okian/standings/internal/domain/render"
	"github.com/okian/standings/pkg/logger"
	"github.com/okian/standings/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A .env next to the binary is optional
	_ = godotenv.Load()

	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc, hub, err := newBoard(cfg, loggerInstance)
	if err != nil {
		os.Stderr.WriteString("failed to build board: " + err.Error() + "\n")
		return
	}
	go hub.Run(ctx)

	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// Start service metrics updater
	go startServiceMetricsUpdater(ctx, svc)

	// Hot reload of timing and display settings
	if path := os.Getenv(config.EnvConfigFile); path != "" {
		go watchConfig(ctx, path, svc)
	}

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register board routes with the service dependency.
	apiServer := api.NewServer(svc, svc, api.WithWebSocket(hub))
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newBoard builds the board service with the WebSocket hub attached as both
// a board listener and a leader alert sink.
func newBoard(cfg *config.Config, log logger.Logger) (*app.Service, *ws.Hub, error) {
	var svc *app.Service
	hub := ws.New(ws.WithCurrentBoard(func() (render.Board, bool) { return svc.Board() }))

	opts, err := cfg.ServiceOptions()
	if err != nil {
		return nil, nil, err
	}
	opts = append(opts,
		app.WithLogger(log),
		app.WithListeners(hub),
		app.WithSinks(worker.NewLogSink(log.Named("alerts")), hub),
	)
	svc = app.New(opts...)
	return svc, hub, nil
}

// watchConfig applies reloaded settings to the running service.
func watchConfig(ctx context.Context, path string, svc *app.Service) {
	log := logger.Get().Named("config")
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		settings, err := cfg.Settings()
		if err != nil {
			log.Warn(ctx, "reloaded settings rejected", logger.Error(err))
			return
		}
		if err := svc.Reconfigure(ctx, settings); err != nil {
			log.Warn(ctx, "reconfigure failed", logger.Error(err))
			return
		}
		if err := logger.SetLevelString(cfg.LogLevel); err != nil {
			log.Warn(ctx, "invalid log_level", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		}
		log.Info(ctx, "settings reloaded", logger.String("path", path))
	})
	if err != nil {
		log.Error(ctx, "config watch stopped", logger.Error(err))
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
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

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
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

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["alertQueueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
}
