// Package server publishes status snapshots and accepts control commands
// for the dashboard.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yourusername/sumo-dashboard/internal/dashboard"
	"github.com/yourusername/sumo-dashboard/internal/metrics"
	"golang.org/x/time/rate"
)

const maxCommandBody = 64 << 10

// Options configures a Server
type Options struct {
	StatusPath     string
	CommandPath    string
	RateLimit      float64 // commands per second
	Burst          int
	QueueWait      time.Duration
	AllowedOrigins []string
}

// Server serves the dashboard page, the status endpoint and the command
// endpoint
type Server struct {
	router  *chi.Mux
	opts    Options
	store   *Store
	hub     *Hub
	queue   chan Envelope
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New creates a server. Accepted commands are delivered on Commands();
// the queue holds a single command.
func New(opts Options, store *Store, hub *Hub, logger zerolog.Logger) *Server {
	if opts.StatusPath == "" {
		opts.StatusPath = "/sumo"
	}
	if opts.CommandPath == "" {
		opts.CommandPath = "/api"
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = 5 * time.Second
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		router:  chi.NewRouter(),
		opts:    opts,
		store:   store,
		hub:     hub,
		queue:   make(chan Envelope, 1),
		limiter: rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		logger:  logger.With().Str("component", "server").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Get("/", s.handlePage)
	s.router.Get("/index.html", s.handlePage)
	s.router.Get(s.opts.StatusPath, s.handleStatus)
	s.router.Post(s.opts.CommandPath, s.handleCommand)
	if s.hub != nil {
		s.router.Get("/ws", s.handleWS)
	}
	s.router.NotFound(s.handleFallback)
	s.router.MethodNotAllowed(s.handleFallback)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Commands returns the command queue
func (s *Server) Commands() <-chan Envelope {
	return s.queue
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, dashboard.PageHTML)
}

// handleFallback answers HEAD on any path with 200 text/html and every
// other unmatched request with the not-found page
func (s *Server) handleFallback(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		s.handleHead(w, r)
		return
	}
	s.handleNotFound(w, r)
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	fmt.Fprintf(w, "<html><body><h4>This (%s) is not found.</h4></body></html>", html.EscapeString(r.URL.Path))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Current())
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		metrics.CommandsReceivedTotal.WithLabelValues("limited").Inc()
		writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "too many commands"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBody))
	if err != nil {
		metrics.CommandsReceivedTotal.WithLabelValues("invalid").Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()})
		return
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		metrics.CommandsReceivedTotal.WithLabelValues("invalid").Inc()
		s.logger.Warn().Err(err).Msg("Rejected command with invalid JSON")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error(), Body: string(body)})
		return
	}

	env := Envelope{ID: uuid.NewString(), Path: r.URL.Path, Data: data}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.QueueWait)
	defer cancel()

	select {
	case s.queue <- env:
		metrics.CommandsReceivedTotal.WithLabelValues("queued").Inc()
		cmd, _ := env.Cmd()
		s.logger.Info().Str("id", env.ID).Str("cmd", cmd).Msg("Command queued")
		writeJSON(w, http.StatusOK, env)
	case <-ctx.Done():
		metrics.CommandsReceivedTotal.WithLabelValues("busy").Inc()
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "command queue is full"})
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.ServeWS(w, r, s.store.Current())
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// debug only: the status endpoint is polled every second
		event := s.logger.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			event = s.logger.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
