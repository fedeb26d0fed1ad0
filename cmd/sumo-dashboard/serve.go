package main

import (
	"errors"
	"net/http"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"github.com/yourusername/sumo-dashboard/internal/config"
	"github.com/yourusername/sumo-dashboard/internal/runner"
	"github.com/yourusername/sumo-dashboard/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a dashboard server backed by the process simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides LISTEN_ADDR")

	return cmd
}

func runServe(listen string) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if listen != "" {
			cfg.ListenAddr = listen
		}
	})
	if err != nil {
		return err
	}

	logger := setupLogging(cfg.LogLevel, os.Stdout)

	logger.Info().
		Str("version", version).
		Str("git_commit", gitCommit).
		Str("build_date", buildDate).
		Str("listen", cfg.ListenAddr).
		Str("status_path", cfg.StatusPath).
		Str("command_path", cfg.CommandPath).
		Dur("publish_interval", cfg.PublishInterval).
		Msg("Starting sumo-dashboard server")

	ctx, cancel := signalContext(logger)
	defer cancel()

	var ready atomic.Bool

	metricsServer := startMetricsServer(cfg.MetricsPort, logger)
	defer shutdown(metricsServer, "metrics", cfg.ShutdownTimeout, logger)

	healthServer := startHealthServer(cfg.HealthPort, ready.Load, logger)
	defer shutdown(healthServer, "health", cfg.ShutdownTimeout, logger)

	hub := server.NewHub(logger, originChecker(cfg))
	go hub.Run(ctx)

	store := server.NewStore(nil, hub)
	srv := server.New(server.Options{
		StatusPath:     cfg.StatusPath,
		CommandPath:    cfg.CommandPath,
		RateLimit:      cfg.CommandRateLimit,
		Burst:          cfg.CommandBurst,
		QueueWait:      cfg.CommandQueueWait,
		AllowedOrigins: cfg.AllowedOrigins,
	}, store, hub, logger)

	proc := runner.New(store, cfg.PublishInterval, logger)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("Starting dashboard server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		errCh <- proc.Run(ctx, srv.Commands())
	}()

	ready.Store(true)

	select {
	case <-ctx.Done():
	case err = <-errCh:
	}
	ready.Store(false)
	cancel()

	shutdown(httpServer, "dashboard", cfg.ShutdownTimeout, logger)

	if err := markUnhealthy(err); err != nil {
		logger.Error().Err(err).Msg("Server error")
		return err
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}

// originChecker restricts WebSocket upgrades to the configured origins
func originChecker(cfg *config.Config) func(*http.Request) bool {
	if slices.Contains(cfg.AllowedOrigins, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(cfg.AllowedOrigins, origin)
	}
}
