// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total number of relay requests by HTTP status code",
		},
		[]string{"code"},
	)

	RelayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_request_duration_seconds",
			Help:    "Duration of relay requests in seconds",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"code"},
	)

	RelayRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_requests_in_flight",
			Help: "Number of relay requests currently being processed",
		},
	)

	RelayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_failures_total",
			Help: "Total number of requests answered with the generic failure, by error code",
		},
		[]string{"error_code"},
	)

	AssistantRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_runs_total",
			Help: "Total number of assistant runs by terminal status",
		},
		[]string{"status"},
	)

	AssistantRunPolls = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "assistant_run_polls_total",
			Help: "Total number of run status polls",
		},
	)

	AssistantCallFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_call_failures_total",
			Help: "Total number of failed Assistants API calls by operation",
		},
		[]string{"operation"},
	)
)
