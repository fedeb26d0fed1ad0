// Package dashboard drives a status table from the dashboard server.
//
// A Controller owns one table node. Run polls the status endpoint on a
// fixed interval and re-renders the table from each snapshot; Click posts
// the command bound to a button id.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/sumo-dashboard/internal/client"
	"github.com/yourusername/sumo-dashboard/internal/dom"
	"github.com/yourusername/sumo-dashboard/internal/metrics"
	"github.com/yourusername/sumo-dashboard/internal/snapshot"
	"golang.org/x/net/html"
)

// DefaultPollInterval is the status poll period
const DefaultPollInterval = time.Second

// Controller manages one dashboard page
type Controller struct {
	client      *client.Client
	table       *html.Node
	interval    time.Duration
	statusPath  string
	commandPath string
	commands    map[string]client.Command
	onRender    func(*html.Node)
	onCommand   func(string, client.CommandResponse, error)
	logger      zerolog.Logger

	// mu guards the table, the command bindings and the sequence counters
	mu         sync.Mutex
	nextSeq    uint64
	appliedSeq uint64
}

// Option configures a Controller
type Option func(*Controller)

// WithInterval sets the poll interval
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithPaths overrides the status and command endpoint paths
func WithPaths(statusPath, commandPath string) Option {
	return func(c *Controller) {
		if statusPath != "" {
			c.statusPath = statusPath
		}
		if commandPath != "" {
			c.commandPath = commandPath
		}
	}
}

// WithLogger sets the controller logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger.With().Str("component", "dashboard").Logger()
	}
}

// OnRender registers a hook called with the table after every applied
// render, while the table lock is held.
func OnRender(fn func(*html.Node)) Option {
	return func(c *Controller) {
		c.onRender = fn
	}
}

// OnCommand registers a hook called with every command response
func OnCommand(fn func(cmd string, resp client.CommandResponse, err error)) Option {
	return func(c *Controller) {
		c.onCommand = fn
	}
}

// New creates a controller rendering into table. The start and stop
// buttons are bound by default.
func New(c *client.Client, table *html.Node, opts ...Option) *Controller {
	ctrl := &Controller{
		client:      c,
		table:       table,
		interval:    DefaultPollInterval,
		statusPath:  client.StatusPath,
		commandPath: client.CommandPath,
		commands: map[string]client.Command{
			"start": {Cmd: client.CmdStart},
			"stop":  {Cmd: client.CmdStop},
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(ctrl)
	}
	return ctrl
}

// BindPage resolves the page contract: elements with ids start and stop
// and the first table in document order.
func BindPage(doc *html.Node, c *client.Client, opts ...Option) (*Controller, error) {
	for _, id := range []string{"start", "stop"} {
		if dom.FindByID(doc, id) == nil {
			return nil, fmt.Errorf("page has no element with id %q", id)
		}
	}
	table := dom.FirstByTag(doc, "table")
	if table == nil {
		return nil, fmt.Errorf("page has no table element")
	}
	return New(c, table, opts...), nil
}

// Table returns the render target
func (c *Controller) Table() *html.Node {
	return c.table
}

// Bind maps a button id to the command it posts
func (c *Controller) Bind(id string, cmd client.Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commands[id] = cmd
}

// Click posts the command bound to id once. The response is logged and
// passed to the OnCommand hook.
func (c *Controller) Click(ctx context.Context, id string) error {
	c.mu.Lock()
	cmd, ok := c.commands[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no command bound to %q", id)
	}

	client.PostAsync(ctx, c.client, c.commandPath, cmd, func(resp client.CommandResponse, err error) {
		if err != nil {
			metrics.CommandsSentTotal.WithLabelValues(cmd.Cmd, "failure").Inc()
			c.logger.Error().Err(err).Str("cmd", cmd.Cmd).Msg("Command failed")
		} else {
			metrics.CommandsSentTotal.WithLabelValues(cmd.Cmd, "success").Inc()
			c.logger.Info().Str("cmd", cmd.Cmd).Interface("response", resp).Msg("Command sent")
		}
		if c.onCommand != nil {
			c.onCommand(cmd.Cmd, resp, err)
		}
	})
	return nil
}

// Run polls the status endpoint every interval until ctx is done. Ticks
// do not wait for the previous request; responses older than the last
// applied one are dropped.
func (c *Controller) Run(ctx context.Context) error {
	c.logger.Info().
		Dur("interval", c.interval).
		Str("server", c.client.BaseURL()).
		Msg("Starting status polling")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// Poll issues one status request outside the ticker.
func (c *Controller) Poll(ctx context.Context) {
	c.poll(ctx)
}

func (c *Controller) poll(ctx context.Context) {
	c.mu.Lock()
	c.nextSeq++
	seq := c.nextSeq
	c.mu.Unlock()

	client.GetAsync(ctx, c.client, c.statusPath, func(snap snapshot.Snapshot, err error) {
		if err != nil {
			metrics.PollsTotal.WithLabelValues("error").Inc()
			c.logger.Warn().Err(err).Uint64("seq", seq).Msg("Status poll failed")
			return
		}
		c.apply(seq, snap)
	})
}

// apply renders snap if seq is newer than the last applied render.
func (c *Controller) apply(seq uint64, snap snapshot.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.appliedSeq {
		metrics.PollsTotal.WithLabelValues("stale").Inc()
		c.logger.Debug().
			Uint64("seq", seq).
			Uint64("applied_seq", c.appliedSeq).
			Msg("Dropping stale snapshot")
		return false
	}
	c.appliedSeq = seq

	Render(c.table, snap)

	metrics.PollsTotal.WithLabelValues("rendered").Inc()
	metrics.RowsRendered.Set(float64(len(snap)))
	metrics.LastRenderTimestamp.SetToCurrentTime()

	if c.onRender != nil {
		c.onRender(c.table)
	}
	return true
}

// Render replaces the contents of table with one row per snapshot key.
func Render(table *html.Node, snap snapshot.Snapshot) {
	dom.RemoveChildren(table)
	for _, f := range snap {
		row := dom.Element("tr", nil,
			dom.Element("td", nil, f.Key),
			dom.Element("td", dom.Attrs{"class": "value"}, snapshot.FormatValue(f.Value)),
		)
		table.AppendChild(row)
	}
}

// Rows returns the current table contents as key/value pairs.
func (c *Controller) Rows() [][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return TableRows(c.table)
}

// TableRows reads a rendered table back as rows of cell text.
func TableRows(table *html.Node) [][]string {
	var rows [][]string
	for _, tr := range dom.Children(table) {
		if tr.Type != html.ElementNode || tr.Data != "tr" {
			continue
		}
		var cells []string
		for _, td := range dom.Children(tr) {
			if td.Type == html.ElementNode && td.Data == "td" {
				cells = append(cells, dom.Text(td))
			}
		}
		rows = append(rows, cells)
	}
	return rows
}
