package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	consoleRequestsTotal   *prometheus.CounterVec
	consoleLatencySeconds  *prometheus.HistogramVec
	consoleErrorsTotal     *prometheus.CounterVec
	upstreamRequestsTotal  *prometheus.CounterVec
	upstreamLatencySeconds *prometheus.HistogramVec
	previewOutcomesTotal   *prometheus.CounterVec
	configChangesTotal     *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the evaluation console.
func RegisterMetrics() {
	registerOnce.Do(func() {
		consoleRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_console_requests_total",
			Help: "Total number of evaluation console API requests served.",
		}, []string{"method", "route", "status"})

		consoleLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_console_latency_seconds",
			Help:    "Latency distribution for evaluation console API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		consoleErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_console_errors_total",
			Help: "Total number of error responses returned by the evaluation console.",
		}, []string{"method", "route", "status"})

		upstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_platform_requests_total",
			Help: "Calls made to the platform admin API by operation and outcome.",
		}, []string{"op", "outcome"})

		upstreamLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "evaluation_platform_latency_seconds",
			Help:    "Round trip latency of platform admin API calls.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 15.0},
		}, []string{"op"})

		previewOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_preview_outcomes_total",
			Help: "Evaluation preview actions by outcome.",
		}, []string{"outcome"})

		configChangesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "evaluation_config_changes_total",
			Help: "Edits, loads and saves of the evaluation configuration.",
		}, []string{"action", "outcome"})

		prometheus.MustRegister(
			consoleRequestsTotal,
			consoleLatencySeconds,
			consoleErrorsTotal,
			upstreamRequestsTotal,
			upstreamLatencySeconds,
			previewOutcomesTotal,
			configChangesTotal,
		)
	})
}

// ConsoleRequests exposes the counter for console requests.
func ConsoleRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return consoleRequestsTotal
}

// ConsoleLatency exposes the latency histogram for console requests.
func ConsoleLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return consoleLatencySeconds
}

// ConsoleErrors exposes the counter for console error responses.
func ConsoleErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return consoleErrorsTotal
}

// UpstreamRequests exposes the counter for platform calls.
func UpstreamRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return upstreamRequestsTotal
}

// UpstreamLatency exposes the latency histogram for platform calls.
func UpstreamLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return upstreamLatencySeconds
}

// PreviewOutcomes exposes the counter for preview actions.
func PreviewOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return previewOutcomesTotal
}

// ConfigChanges exposes the counter for configuration actions.
func ConfigChanges() *prometheus.CounterVec {
	RegisterMetrics()
	return configChangesTotal
}
