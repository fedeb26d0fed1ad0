package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yourusername/sumo-dashboard/internal/config"
	"github.com/yourusername/sumo-dashboard/internal/metrics"
)

var (
	// Version information (set via -ldflags)
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"

	// CLI flags
	logLevel   string
	configFile string
	serverURL  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sumo-dashboard",
		Short: "Status dashboard for a remotely controlled SUMO simulation",
		Long: `sumo-dashboard polls a simulation status endpoint, renders the
returned key/value pairs as a table and sends start/stop commands to the
control endpoint. The serve command runs a compatible server.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a YAML config file, overrides CONFIG_FILE")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Dashboard server URL, overrides DASHBOARD_URL")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sumo-dashboard %s\n", version)
			fmt.Printf("  git commit: %s\n", gitCommit)
			fmt.Printf("  build date: %s\n", buildDate)
		},
	}

	rootCmd.AddCommand(versionCmd, newWatchCmd(), newServeCmd(), newCommandCmd("start"), newCommandCmd("stop"))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads configuration, applies the persistent flags and then
// the command's own flag overrides, and validates the result
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	flags := func(cfg *config.Config) {
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
	}
	return config.Load(configFile, append([]func(*config.Config){flags}, overrides...)...)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(logger zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// setupLogging configures structured JSON logging
func setupLogging(level string, out io.Writer) zerolog.Logger {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	zerolog.TimeFieldFormat = time.RFC3339

	logger := zerolog.New(out).With().
		Timestamp().
		Str("service", "sumo-dashboard").
		Logger()

	return logger
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int, logger zerolog.Logger) *http.Server {
	return listenInBackground("metrics", port, metricsHandler(), logger)
}

// metricsHandler exposes the default registry on /metrics
func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{}))
	return mux
}

// startHealthServer starts the health check HTTP server
func startHealthServer(port int, ready func() bool, logger zerolog.Logger) *http.Server {
	return listenInBackground("health", port, healthHandler(ready), logger)
}

func healthHandler(ready func() bool) http.Handler {
	mux := http.NewServeMux()

	// Liveness probe - always returns 200 if server is running
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Readiness probe - returns 200 if healthy, 503 if not
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})

	return mux
}

// listenInBackground serves handler on port until the server is shut down
func listenInBackground(name string, port int, handler http.Handler, logger zerolog.Logger) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", port).Str("server", name).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", name).Msg("Server error")
		}
	}()

	return server
}

// shutdown stops an HTTP server within timeout
func shutdown(server *http.Server, name string, timeout time.Duration, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Str("server", name).Msg("Server shutdown error")
	}
}

// markUnhealthy flips the health gauge when a command fails. A cancelled
// context is a normal shutdown.
func markUnhealthy(err error) error {
	if err != nil && !errors.Is(err, context.Canceled) {
		metrics.HealthStatus.Set(0)
		return err
	}
	return nil
}
