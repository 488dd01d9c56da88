package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campuscrave/campuscrave-client/internal/notifications"
	"github.com/campuscrave/campuscrave-client/internal/tracking"
	"github.com/campuscrave/campuscrave-client/pkg/api"
	"github.com/campuscrave/campuscrave-client/pkg/config"
	"github.com/campuscrave/campuscrave-client/pkg/logger"
	"github.com/campuscrave/campuscrave-client/pkg/metrics"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "vendor-dashboard"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	if cfg.Vendor.StallName == "" {
		logg.Error(context.Background(), "missing stall name", errors.New("set CRAVE_STALL_NAME"))
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "vendor-dashboard",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithStallName(ctx, cfg.Vendor.StallName)

	backend := api.NewClient(
		api.WithBaseURL(cfg.Backend.BaseURL),
		api.WithTimeout(cfg.Backend.HTTPTimeout),
	)

	pollerMetrics := metrics.NewPollerMetrics(prometheus.DefaultRegisterer)
	feed := notifications.NewFeed()

	watcher, err := tracking.NewQueueWatcher(tracking.QueueWatcherParams{
		StallName: cfg.Vendor.StallName,
		Backend:   backend,
		Feed:      feed,
		Alerter:   notifications.BellAlerter{Out: os.Stdout},
		Metrics:   pollerMetrics,
		Poller: tracking.PollerParams{
			Name:       "queue",
			Interval:   cfg.Poller.QueueInterval,
			MaxBackoff: cfg.Poller.MaxBackoff,
			Logger:     logg,
		},
	})
	if err != nil {
		logg.Error(ctx, "failed to create queue watcher", err)
		os.Exit(1)
	}

	if err := watcher.Start(ctx); err != nil {
		logg.Error(ctx, "failed to start queue watcher", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	logg.Info(logg.WithField(ctx, "metrics_addr", cfg.Metrics.ListenAddr), "vendor dashboard running")

	select {
	case <-ctx.Done():
		logg.Info(ctx, "shutting down")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}

	watcher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error during shutdown", err)
		os.Exit(1)
	}
	logg.Info(ctx, "vendor dashboard shut down gracefully")
}
