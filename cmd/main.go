package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/attend/internal/adapters/notify"
	"github.com/okian/attend/internal/adapters/strikes"
	"github.com/okian/attend/internal/app"
	"github.com/okian/attend/internal/config"
	"github.com/okian/attend/pkg/logger"
	"github.com/okian/attend/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	shutdownTimeout       = 10 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := run(ctx)
	stop()
	if err != nil {
		os.Stderr.WriteString("attend: " + err.Error() + "\n")
		os.Exit(1)
	}
}

// run loads configuration, wires the pipeline and blocks until it ends.
func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.SetFormat(cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to set log format: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log := logger.Get().Named("main")

	var extra []notify.Notifier
	if cfg.RedisAddr != "" {
		store, err := strikes.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, strikes.WithChannel(cfg.RedisChannel))
		if err != nil {
			return fmt.Errorf("failed to connect to strike store: %w", err)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn(ctx, "failed to close strike store", logger.Error(err))
			}
		}()
		extra = append(extra, store)
	}

	pipeline, err := app.New(cfg, app.WithNotifier(app.DefaultNotifier(cfg, extra...)))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	var srv *http.Server
	if cfg.MetricsAddr != "" {
		srv = newMetricsServer(cfg.MetricsAddr, pipeline)
		go func() {
			log.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error(ctx, "metrics server failed", logger.Error(err))
			}
		}()
	}

	runErr := pipeline.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
		}
	}

	if runErr != nil {
		return fmt.Errorf("pipeline failed: %w", runErr)
	}
	log.Info(ctx, "pipeline finished", logger.Any("ticks", pipeline.Stats().Ticks))
	return nil
}

// phaser reports the pipeline lifecycle phase.
type phaser interface {
	Phase() app.Phase
}

// newMetricsServer serves /metrics from the custom registry and /healthz,
// which fails once the pipeline has stopped.
func newMetricsServer(addr string, p phaser) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		phase := p.Phase()
		if phase == app.PhaseStopped {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = w.Write([]byte(phase.String() + "\n"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	updateSystemMetrics()
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
}
