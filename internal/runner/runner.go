// Package runner simulates the process the dashboard controls. It reacts
// to start and stop commands and publishes a snapshot of its state on a
// fixed interval.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/sumo-dashboard/internal/server"
	"github.com/yourusername/sumo-dashboard/internal/snapshot"
)

// Process states reported in the "state" field
const (
	StateStopped = "stopped"
	StateRunning = "running"
)

// Process is a simulated long-running job
type Process struct {
	publisher server.Publisher
	interval  time.Duration
	now       func() time.Time
	logger    zerolog.Logger

	mu          sync.Mutex
	running     bool
	steps       int64
	commands    int64
	lastCommand string
	startedAt   time.Time
	elapsed     time.Duration
}

// New creates a stopped process publishing every interval
func New(publisher server.Publisher, interval time.Duration, logger zerolog.Logger) *Process {
	if interval <= 0 {
		interval = time.Second
	}
	return &Process{
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
		logger:    logger.With().Str("component", "runner").Logger(),
	}
}

// Run consumes commands and publishes snapshots until ctx is done
func (p *Process) Run(ctx context.Context, commands <-chan server.Envelope) error {
	p.logger.Info().Dur("interval", p.interval).Msg("Starting process simulator")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.publisher.Publish(ctx, p.Snapshot())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			p.Handle(env)
			p.publisher.Publish(ctx, p.Snapshot())
		case <-ticker.C:
			p.Step()
			p.publisher.Publish(ctx, p.Snapshot())
		}
	}
}

// Handle applies one queued command. It reports whether the command was
// recognized.
func (p *Process) Handle(env server.Envelope) bool {
	cmd, ok := env.Cmd()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.commands++
	if !ok {
		p.logger.Warn().Str("id", env.ID).Interface("data", env.Data).Msg("Ignoring command without cmd field")
		return false
	}
	p.lastCommand = cmd

	switch cmd {
	case "start":
		if !p.running {
			p.running = true
			p.startedAt = p.now()
			p.logger.Info().Str("id", env.ID).Msg("Process started")
		}
		return true
	case "stop":
		if p.running {
			p.elapsed += p.now().Sub(p.startedAt)
			p.running = false
			p.logger.Info().Str("id", env.ID).Int64("steps", p.steps).Msg("Process stopped")
		}
		return true
	default:
		p.logger.Warn().Str("id", env.ID).Str("cmd", cmd).Msg("Ignoring unknown command")
		return false
	}
}

// Step advances the simulation by one step while running
func (p *Process) Step() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.steps++
	}
}

// Running reports whether the process is running
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Snapshot returns the current state as a status snapshot
func (p *Process) Snapshot() snapshot.Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	state := StateStopped
	elapsed := p.elapsed
	if p.running {
		state = StateRunning
		elapsed += now.Sub(p.startedAt)
	}

	return snapshot.Snapshot{
		{Key: "time", Value: now.Format("15:04:05")},
		{Key: "state", Value: state},
		{Key: "steps", Value: p.steps},
		{Key: "elapsed", Value: elapsed.Seconds()},
		{Key: "commands", Value: p.commands},
		{Key: "last_command", Value: p.lastCommand},
	}
}
