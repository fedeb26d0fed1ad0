package server

import (
	"context"
	"sync"

	"github.com/yourusername/sumo-dashboard/internal/metrics"
	"github.com/yourusername/sumo-dashboard/internal/snapshot"
)

// Envelope is a queued command: the request path and its decoded body
type Envelope struct {
	ID   string `json:"id"`
	Path string `json:"path"`
	Data any    `json:"data"`
}

// Cmd returns the "cmd" field of an object body, if any
func (e Envelope) Cmd() (string, bool) {
	obj, ok := e.Data.(map[string]any)
	if !ok {
		return "", false
	}
	cmd, ok := obj["cmd"].(string)
	return cmd, ok
}

// ErrorResponse is returned for rejected requests
type ErrorResponse struct {
	Error string `json:"server error"`
	Body  string `json:"body,omitempty"`
}

// Publisher accepts new snapshots
type Publisher interface {
	Publish(ctx context.Context, snap snapshot.Snapshot)
}

// Store holds the latest snapshot and fans it out to stream subscribers
type Store struct {
	mu      sync.RWMutex
	current snapshot.Snapshot
	hub     *Hub
}

// NewStore creates a store. hub may be nil.
func NewStore(initial snapshot.Snapshot, hub *Hub) *Store {
	return &Store{current: initial, hub: hub}
}

// Current returns a copy of the latest snapshot
func (s *Store) Current() snapshot.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(snapshot.Snapshot, len(s.current))
	copy(out, s.current)
	return out
}

// Publish replaces the latest snapshot
func (s *Store) Publish(ctx context.Context, snap snapshot.Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	metrics.SnapshotsPublished.Inc()
	if s.hub != nil {
		s.hub.Broadcast(ctx, snap)
	}
}
