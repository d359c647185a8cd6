// Package metrics holds the Prometheus instruments for secdash.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend transport
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdash_backend_requests_total",
			Help: "Requests issued to the analysis backend",
		},
		[]string{"method", "status"}, // status: 2xx/4xx/5xx/error
	)

	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "secdash_backend_request_duration_seconds",
			Help:    "Backend request latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		},
		[]string{"method"},
	)

	BackendRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "secdash_backend_retries_total",
			Help: "GET requests retried after a transient failure",
		},
	)

	// Fallback policy
	FallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdash_fallbacks_total",
			Help: "Reads that degraded to their default value",
		},
		[]string{"resource", "kind"},
	)

	// Poller
	RefreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdash_refresh_cycles_total",
			Help: "Completed refresh cycles by job and result",
		},
		[]string{"job", "result"},
	)

	RefreshSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdash_refresh_skipped_total",
			Help: "Refresh cycles skipped because the previous one had not settled",
		},
		[]string{"job"},
	)

	ThreatsDetected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "secdash_threats_detected",
			Help: "Threats reported by the latest snapshot",
		},
	)

	AlertsBySeverity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "secdash_alerts",
			Help: "Alerts in the latest snapshot by severity",
		},
		[]string{"severity"},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "secdash_events_total",
			Help: "Changes observed between consecutive snapshots",
		},
		[]string{"kind"},
	)

	// Gateway
	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "secdash_websocket_clients",
			Help: "Connected snapshot stream clients",
		},
	)
)

// StatusClass buckets an HTTP status code for the requests counter.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "error"
}
