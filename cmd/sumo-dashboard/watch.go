package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yourusername/sumo-dashboard/internal/client"
	"github.com/yourusername/sumo-dashboard/internal/config"
	"github.com/yourusername/sumo-dashboard/internal/dashboard"
	"github.com/yourusername/sumo-dashboard/internal/dom"
	"golang.org/x/net/html"
)

type watchOptions struct {
	pagePath string
	output   string
	interval time.Duration
	metrics  bool
}

func newWatchCmd() *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the status endpoint and print the rendered table",
		Long: `watch binds a dashboard page (the built-in one unless --page is given),
polls the status endpoint and prints the table after every render.
Type "start" or "stop" followed by enter to post the bound command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.OutOrStdout(), cmd.InOrStdin(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.pagePath, "page", "", "HTML page providing the start/stop buttons and the table")
	cmd.Flags().StringVar(&opts.output, "output", "", "Table output format: text or html, overrides OUTPUT")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Poll interval, overrides POLL_INTERVAL")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Serve Prometheus metrics on METRICS_PORT")

	return cmd
}

func runWatch(out io.Writer, in io.Reader, opts watchOptions) error {
	cfg, err := loadConfig(func(cfg *config.Config) {
		if opts.output != "" {
			cfg.Output = opts.output
		}
		if opts.interval > 0 {
			cfg.PollInterval = opts.interval
		}
	})
	if err != nil {
		return err
	}

	// stdout carries the table
	logger := setupLogging(cfg.LogLevel, os.Stderr)

	logger.Info().
		Str("version", version).
		Str("server", cfg.ServerURL).
		Dur("poll_interval", cfg.PollInterval).
		Msg("Starting dashboard watch")

	ctx, cancel := signalContext(logger)
	defer cancel()

	if opts.metrics {
		metricsServer := startMetricsServer(cfg.MetricsPort, logger)
		defer shutdown(metricsServer, "metrics", cfg.ShutdownTimeout, logger)
	}

	doc, err := loadPage(opts.pagePath)
	if err != nil {
		return err
	}

	p := &printer{out: out, format: cfg.Output}
	c := client.NewClient(cfg.ServerURL, logger, client.WithTimeout(cfg.RequestTimeout))
	ctrl, err := dashboard.BindPage(doc, c,
		dashboard.WithInterval(cfg.PollInterval),
		dashboard.WithPaths(cfg.StatusPath, cfg.CommandPath),
		dashboard.WithLogger(logger),
		dashboard.OnRender(func(table *html.Node) {
			if err := p.table(table); err != nil {
				logger.Error().Err(err).Msg("Failed to print table")
			}
		}),
		dashboard.OnCommand(p.command),
	)
	if err != nil {
		return fmt.Errorf("failed to bind page: %w", err)
	}

	go readButtons(ctx, in, ctrl, logger)

	return markUnhealthy(ctrl.Run(ctx))
}

func loadPage(path string) (*html.Node, error) {
	if path == "" {
		return dashboard.ParsePage()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()
	return dom.Parse(f)
}

// readButtons treats every input line as a click on the button with that id
func readButtons(ctx context.Context, in io.Reader, ctrl *dashboard.Controller, logger zerolog.Logger) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		if err := ctrl.Click(ctx, id); err != nil {
			logger.Warn().Err(err).Str("button", id).Msg("Unknown button")
		}
	}
}

// printer serializes table renders and command echoes onto one writer
type printer struct {
	mu     sync.Mutex
	out    io.Writer
	format string
}

func (p *printer) table(table *html.Node) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return printTable(p.out, table, p.format)
}

func (p *printer) command(cmd string, resp client.CommandResponse, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		fmt.Fprintf(p.out, "%s: %v\n", cmd, err)
		return
	}
	data, _ := json.Marshal(resp)
	fmt.Fprintf(p.out, "%s: %s\n", cmd, data)
}

// printTable writes the table as aligned text or as HTML
func printTable(out io.Writer, table *html.Node, format string) error {
	if format == "html" {
		if err := dom.Render(out, table); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out)
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "--- %s\n", time.Now().Format("15:04:05"))
	for _, row := range dashboard.TableRows(table) {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
