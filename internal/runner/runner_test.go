package runner

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/sumo-dashboard/internal/server"
	"github.com/yourusername/sumo-dashboard/internal/snapshot"
)

type recorder struct {
	mu    sync.Mutex
	snaps []snapshot.Snapshot
}

func (r *recorder) Publish(_ context.Context, snap snapshot.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, snap)
}

func (r *recorder) last() snapshot.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.snaps) == 0 {
		return nil
	}
	return r.snaps[len(r.snaps)-1]
}

func newTestProcess(clock *time.Time) (*Process, *recorder) {
	rec := &recorder{}
	p := New(rec, 10*time.Millisecond, zerolog.Nop())
	p.now = func() time.Time { return *clock }
	return p, rec
}

func cmd(name string) server.Envelope {
	return server.Envelope{ID: "test", Path: "/api", Data: map[string]any{"cmd": name}}
}

func TestStartStop(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p, _ := newTestProcess(&clock)

	assert.False(t, p.Running())
	assert.True(t, p.Handle(cmd("start")))
	assert.True(t, p.Running())

	p.Step()
	p.Step()
	clock = clock.Add(3 * time.Second)

	assert.True(t, p.Handle(cmd("stop")))
	assert.False(t, p.Running())

	p.Step()

	snap := p.Snapshot()
	assert.Equal(t, []string{"time", "state", "steps", "elapsed", "commands", "last_command"}, snap.Keys())

	state, _ := snap.Get("state")
	assert.Equal(t, StateStopped, state)
	steps, _ := snap.Get("steps")
	assert.Equal(t, int64(2), steps)
	elapsed, _ := snap.Get("elapsed")
	assert.Equal(t, 3.0, elapsed)
	commands, _ := snap.Get("commands")
	assert.Equal(t, int64(2), commands)
	ts, _ := snap.Get("time")
	assert.Equal(t, "12:00:03", ts)
}

func TestElapsedWhileRunning(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p, _ := newTestProcess(&clock)

	p.Handle(cmd("start"))
	clock = clock.Add(1500 * time.Millisecond)

	elapsed, _ := p.Snapshot().Get("elapsed")
	assert.Equal(t, 1.5, elapsed)
	state, _ := p.Snapshot().Get("state")
	assert.Equal(t, StateRunning, state)
}

func TestRepeatedStartKeepsStartTime(t *testing.T) {
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p, _ := newTestProcess(&clock)

	p.Handle(cmd("start"))
	clock = clock.Add(time.Second)
	p.Handle(cmd("start"))
	clock = clock.Add(time.Second)

	elapsed, _ := p.Snapshot().Get("elapsed")
	assert.Equal(t, 2.0, elapsed)
}

func TestUnknownCommands(t *testing.T) {
	clock := time.Now()
	p, _ := newTestProcess(&clock)

	assert.False(t, p.Handle(cmd("pause")))
	assert.False(t, p.Handle(server.Envelope{Data: []any{"start"}}))
	assert.False(t, p.Running())

	commands, _ := p.Snapshot().Get("commands")
	assert.Equal(t, int64(2), commands)
	last, _ := p.Snapshot().Get("last_command")
	assert.Equal(t, "pause", last)
}

func TestRunPublishes(t *testing.T) {
	rec := &recorder{}
	p := New(rec, 10*time.Millisecond, zerolog.Nop())

	commands := make(chan server.Envelope, 1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, commands) }()

	commands <- cmd("start")

	require.Eventually(t, func() bool {
		snap := rec.last()
		if snap == nil {
			return false
		}
		steps, _ := snap.Get("steps")
		return steps.(int64) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
