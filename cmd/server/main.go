package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/obsidianstack/contexthub/internal/api"
	"github.com/obsidianstack/contexthub/internal/auth"
	"github.com/obsidianstack/contexthub/internal/config"
	"github.com/obsidianstack/contexthub/internal/funcs"
	"github.com/obsidianstack/contexthub/internal/observability"
	"github.com/obsidianstack/contexthub/internal/store"
	"github.com/obsidianstack/contexthub/internal/watchdog"
	"github.com/obsidianstack/contexthub/internal/ws"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Best-effort .env load for local development; existing environment
	// variables are never overridden.
	_ = godotenv.Load()

	slog.Info("contexthub-server starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"sweep_interval", cfg.Server.Store.SweepInterval,
		"watchdog_rules", len(cfg.Server.Watchdog.Rules),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Context store with background stale-entry sweep.
	st := store.New()
	if cfg.Server.Store.SweepInterval > 0 {
		go st.Run(ctx, cfg.Server.Store.SweepInterval)
	}

	// Function registry exposing open_context / update_context.
	reg := funcs.NewRegistry()
	if err := funcs.RegisterAll(reg, st); err != nil {
		slog.Error("failed to register functions", "err", err)
		os.Exit(1)
	}

	// Watchdog engine evaluating rules against store statistics.
	wd := watchdog.New(cfg.Server.Watchdog)
	go wd.Run(ctx, st)

	// WebSocket hub broadcasting store statistics to connected clients.
	hub := ws.New(st, cfg.Server.Stream.Interval)
	go hub.Run(ctx)

	// Prometheus instruments on the default registry, exposed at /metrics.
	metrics := observability.NewMetrics(cfg.Server.Metrics.Namespace, prometheus.DefaultRegisterer, st)
	metrics.TrackWSClients(hub.Count)

	// Hot-reload watchdog rules when the config file changes.
	go func() {
		if err := config.Watch(ctx, *configPath, func(c *config.Config) {
			wd.SetConfig(c.Server.Watchdog)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	// Combined HTTP server: REST API + WebSocket hub + metrics on HTTPPort.
	middleware := auth.Middleware(
		cfg.Server.Auth.Mode,
		cfg.Server.Auth.EffectiveHeader(),
		cfg.Server.Auth.Key(),
	)
	httpMux := http.NewServeMux()
	httpMux.Handle("/api/", middleware(observability.CountRequests(metrics, api.New(st, reg, wd))))
	httpMux.Handle("/ws/stream", hub)
	httpMux.Handle("/metrics", promhttp.Handler())

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: httpMux,
	}
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server stopped", "err", err)
		}
	}()

	<-ctx.Done()
	slog.Info("contexthub-server shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpSrv.Shutdown(shutdownCtx) //nolint:errcheck
}
