package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yourusername/sumo-dashboard/internal/metrics"
)

// Client talks JSON over HTTP to a dashboard server
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout on a copy of the HTTP client
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient creates a new dashboard server client
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.With().Str("component", "dashboard-client").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server root the client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get fetches path and decodes the JSON response into T
func Get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var zero T
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return zero, fmt.Errorf("build GET %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	return do[T](c, req, path)
}

// Post sends body as JSON to path and decodes the JSON response into T
func Post[T any](ctx context.Context, c *Client, path string, body any) (T, error) {
	var zero T
	payload, err := json.Marshal(body)
	if err != nil {
		return zero, fmt.Errorf("encode POST %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return zero, fmt.Errorf("build POST %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do[T](c, req, path)
}

// GetAsync runs Get in its own goroutine. cb is called exactly once,
// with either the decoded value or an error.
func GetAsync[T any](ctx context.Context, c *Client, path string, cb func(T, error)) {
	go func() {
		cb(Get[T](ctx, c, path))
	}()
}

// PostAsync runs Post in its own goroutine. cb is called exactly once,
// with either the decoded value or an error.
func PostAsync[T any](ctx context.Context, c *Client, path string, body any, cb func(T, error)) {
	go func() {
		cb(Post[T](ctx, c, path, body))
	}()
}

func do[T any](c *Client, req *http.Request, endpoint string) (T, error) {
	var zero T
	method := req.Method

	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIErrorsTotal.WithLabelValues(method, endpoint, "network_error").Inc()
		c.logger.Debug().Err(err).
			Str("method", method).
			Str("endpoint", endpoint).
			Msg("Request failed")
		return zero, &TransportError{Method: method, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.APIErrorsTotal.WithLabelValues(method, endpoint, "read_error").Inc()
		return zero, &TransportError{Method: method, URL: req.URL.String(), Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		metrics.APIErrorsTotal.WithLabelValues(method, endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		return zero, &StatusError{Method: method, URL: req.URL.String(), StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		metrics.APIErrorsTotal.WithLabelValues(method, endpoint, "parse_error").Inc()
		return zero, &ParseError{Body: string(body), Err: err}
	}

	return out, nil
}
