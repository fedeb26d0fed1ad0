package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/yourusername/sumo-dashboard/internal/metrics"
	"github.com/yourusername/sumo-dashboard/internal/snapshot"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	sendBuffer = 16
)

// Hub keeps the set of stream subscribers and broadcasts snapshots to them
type Hub struct {
	clients    map[*subscriber]bool
	broadcast  chan []byte
	register   chan *subscriber
	unregister chan *subscriber
	done       chan struct{}
	upgrader   websocket.Upgrader
	logger     zerolog.Logger

	mu sync.Mutex
}

type subscriber struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(logger zerolog.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:    make(map[*subscriber]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "stream-hub").Logger(),
	}
}

// Run processes registrations and broadcasts until ctx is done. It must
// be called once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			metrics.StreamSubscribers.Set(0)
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			metrics.StreamSubscribers.Set(float64(len(h.clients)))
			h.mu.Unlock()
			h.logger.Debug().Str("remote", c.conn.RemoteAddr().String()).Msg("Subscriber registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			metrics.StreamSubscribers.Set(float64(len(h.clients)))
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// slow subscriber
					close(c.send)
					delete(h.clients, c)
				}
			}
			metrics.StreamSubscribers.Set(float64(len(h.clients)))
			h.mu.Unlock()
		}
	}
}

// Broadcast queues snap for every subscriber. A full queue drops the
// snapshot; the next one supersedes it anyway.
func (h *Hub) Broadcast(ctx context.Context, snap snapshot.Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to encode snapshot")
		return
	}
	select {
	case h.broadcast <- data:
	case <-ctx.Done():
	default:
		h.logger.Warn().Msg("Broadcast queue full, dropping snapshot")
	}
}

// Subscribers returns the number of connected subscribers
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and registers the connection. initial is
// sent first so a new subscriber does not wait for the next publish.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, initial snapshot.Snapshot) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &subscriber{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	if data, err := json.Marshal(initial); err == nil {
		c.send <- data
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump discards peer messages and unregisters on close.
func (c *subscriber) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
