package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollsTotal tracks status polls by outcome
	PollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_dashboard_polls_total",
			Help: "Total number of status polls",
		},
		[]string{"status"}, // rendered, stale, error
	)

	// RowsRendered tracks the row count of the last applied render
	RowsRendered = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumo_dashboard_rows_rendered",
			Help: "Number of table rows in the last applied render",
		},
	)

	// LastRenderTimestamp tracks the last applied render
	LastRenderTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumo_dashboard_last_render_timestamp_seconds",
			Help: "Timestamp of the last applied table render",
		},
	)

	// CommandsSentTotal tracks commands issued by the dashboard
	CommandsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_dashboard_commands_sent_total",
			Help: "Total number of commands sent to the control endpoint",
		},
		[]string{"cmd", "status"}, // success, failure
	)

	// APIRequestDuration tracks request duration against the dashboard server
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sumo_dashboard_api_request_duration_seconds",
			Help:    "Duration of requests to the dashboard server",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// APIErrorsTotal tracks request errors
	APIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_dashboard_api_errors_total",
			Help: "Total number of dashboard server request errors",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// CommandsReceivedTotal tracks commands accepted by the server
	CommandsReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sumo_dashboard_server_commands_received_total",
			Help: "Total number of commands received on the control endpoint",
		},
		[]string{"status"}, // queued, invalid, busy, limited
	)

	// SnapshotsPublished tracks snapshots published by the server
	SnapshotsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sumo_dashboard_server_snapshots_published_total",
			Help: "Total number of snapshots published",
		},
	)

	// StreamSubscribers tracks connected live stream clients
	StreamSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumo_dashboard_server_stream_subscribers",
			Help: "Number of WebSocket clients subscribed to the snapshot stream",
		},
	)

	// HealthStatus tracks overall health
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sumo_dashboard_healthy",
			Help: "Health status of the dashboard process (1 = healthy, 0 = unhealthy)",
		},
	)
)

func init() {
	HealthStatus.Set(1)
}
