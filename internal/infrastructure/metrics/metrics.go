// Package metrics exposes the Prometheus collectors for both binaries.
package metrics

import (
	"time"

	"github.com/lorrc/service-desk-analytics/internal/core/domain"
	"github.com/lorrc/service-desk-analytics/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sda_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sda_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Remote analytics calls made by the dashboard
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sda_remote_analytics_requests_total",
			Help: "Remote analytics calls by outcome",
		},
		[]string{"outcome"}, // success/unavailable/bad_status/decode_error/timeout
	)

	RemoteRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sda_remote_analytics_request_duration_seconds",
			Help:    "Remote analytics call duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	// Computed payloads by provenance
	ResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sda_metrics_results_total",
			Help: "Metrics payloads produced, by source",
		},
		[]string{"source"}, // remote/local
	)

	ComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sda_metrics_compute_duration_seconds",
			Help:    "Time to produce a metrics payload, by source",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"source"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sda_metrics_cache_requests_total",
			Help: "Metrics cache lookups",
		},
		[]string{"result"}, // hit/miss
	)

	StaleResultsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sda_stale_results_dropped_total",
			Help: "Results discarded because a newer filter change was issued",
		},
	)

	SnapshotRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sda_ticket_snapshot_refreshes_total",
			Help: "Ticket snapshot refresh attempts",
		},
		[]string{"status"}, // ok/error
	)

	SnapshotTickets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sda_ticket_snapshot_tickets",
			Help: "Tickets held in the in-memory snapshot",
		},
	)

	ActiveWebSocketSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sda_websocket_sessions_active",
			Help: "Number of connected dashboard sessions",
		},
	)
)

// Recorder implements ports.MetricsRecorder on the package collectors.
type Recorder struct{}

var _ ports.MetricsRecorder = Recorder{}

func (Recorder) RemoteCall(outcome string, elapsed time.Duration) {
	RemoteRequestsTotal.WithLabelValues(outcome).Inc()
	RemoteRequestDuration.Observe(elapsed.Seconds())
}

func (Recorder) Computed(source domain.Source, elapsed time.Duration) {
	ResultsTotal.WithLabelValues(string(source)).Inc()
	ComputeDuration.WithLabelValues(string(source)).Observe(elapsed.Seconds())
}

func (Recorder) CacheLookup(hit bool) {
	if hit {
		CacheRequestsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheRequestsTotal.WithLabelValues("miss").Inc()
}

func (Recorder) StaleResultDropped() {
	StaleResultsDropped.Inc()
}

func (Recorder) SnapshotRefreshed(tickets int, err error) {
	if err != nil {
		SnapshotRefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	SnapshotRefreshesTotal.WithLabelValues("ok").Inc()
	SnapshotTickets.Set(float64(tickets))
}
