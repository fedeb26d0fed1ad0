package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/sumo-dashboard/internal/client"
	"github.com/yourusername/sumo-dashboard/internal/dashboard"
	"github.com/yourusername/sumo-dashboard/internal/dom"
	"github.com/yourusername/sumo-dashboard/internal/snapshot"
)

func newTestServer(t *testing.T, opts Options) (*Server, *Store, *Hub) {
	t.Helper()
	hub := NewHub(zerolog.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	store := NewStore(snapshot.Snapshot{
		{Key: "cpu", Value: 12.345},
		{Key: "mode", Value: "idle"},
	}, hub)
	return New(opts, store, hub, zerolog.Nop()), store, hub
}

func TestStatusEndpointKeepsOrder(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodGet, "/sumo", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, `{"cpu":12.345,"mode":"idle"}`, w.Body.String())
}

func TestCommandQueuedAndEchoed(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"cmd":"start"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/api", resp.Path)
	assert.NotEmpty(t, resp.ID)
	cmd, ok := resp.Cmd()
	assert.True(t, ok)
	assert.Equal(t, "start", cmd)

	select {
	case env := <-srv.Commands():
		assert.Equal(t, resp.ID, env.ID)
		cmd, _ := env.Cmd()
		assert.Equal(t, "start", cmd)
	default:
		t.Fatal("command was not queued")
	}
}

func TestCommandInvalidJSON(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{cmd: start`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["server error"])
	assert.Equal(t, `{cmd: start`, resp["body"])

	select {
	case <-srv.Commands():
		t.Fatal("invalid command was queued")
	default:
	}
}

func TestCommandQueueFull(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{QueueWait: 20 * time.Millisecond})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"cmd":"stop"}`))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusServiceUnavailable, post())

	<-srv.Commands()
	assert.Equal(t, http.StatusOK, post())
}

func TestCommandRateLimited(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{RateLimit: 0.001, Burst: 1, QueueWait: 10 * time.Millisecond})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api", strings.NewReader(`{"cmd":"start"}`))
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}

func TestPageAndNotFound(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	for _, path := range []string{"/", "/index.html"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

		doc, err := dom.Parse(w.Body)
		require.NoError(t, err)
		assert.NotNil(t, dom.FindByID(doc, "start"))
		assert.NotNil(t, dom.FindByID(doc, "stop"))
		assert.NotNil(t, dom.FirstByTag(doc, "TABLE"))
	}

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing.js", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "This (/missing.js) is not found.")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/nope", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "This (/nope) is not found.")
}

func TestHeadAnswersHTML(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})

	for _, path := range []string{"/", "/index.html", "/sumo", "/api", "/anything"} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodHead, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Header().Get("Content-Type"), "text/html", path)
	}
}

func TestStoreCurrentIsCopy(t *testing.T) {
	store := NewStore(snapshot.Snapshot{{Key: "a", Value: 1.0}}, nil)

	cur := store.Current()
	cur[0].Value = 2.0

	v, _ := store.Current().Get("a")
	assert.Equal(t, 1.0, v)

	store.Publish(context.Background(), snapshot.Snapshot{{Key: "b", Value: "x"}})
	assert.Equal(t, []string{"b"}, store.Current().Keys())
}

func TestStreamDeliversInitialAndPublished(t *testing.T) {
	srv, store, hub := newTestServer(t, Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"cpu":12.345,"mode":"idle"}`, string(msg))

	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 5*time.Millisecond)

	store.Publish(context.Background(), snapshot.Snapshot{{Key: "state", Value: "running"}})

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"state":"running"}`, string(msg))
}

func TestDashboardAgainstServer(t *testing.T) {
	srv, _, _ := newTestServer(t, Options{})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	doc, err := dom.Parse(bytes.NewReader(page))
	require.NoError(t, err)

	ctrl, err := dashboard.BindPage(doc, client.NewClient(ts.URL, zerolog.Nop()))
	require.NoError(t, err)

	ctrl.Poll(context.Background())
	require.Eventually(t, func() bool { return len(ctrl.Rows()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, [][]string{{"cpu", "12.35"}, {"mode", "idle"}}, ctrl.Rows())

	require.NoError(t, ctrl.Click(context.Background(), "start"))
	select {
	case env := <-srv.Commands():
		cmd, _ := env.Cmd()
		assert.Equal(t, "start", cmd)
	case <-time.After(2 * time.Second):
		t.Fatal("start command never reached the server")
	}
}
