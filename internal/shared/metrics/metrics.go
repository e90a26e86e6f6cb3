package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	backendCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restate",
			Name:      "backend_calls_total",
			Help:      "Total number of calls made to the backend platform.",
		},
		[]string{"operation", "outcome"},
	)

	backendCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "restate",
			Name:      "backend_call_duration_seconds",
			Help:      "Backend call latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "restate",
			Name:      "http_requests_total",
			Help:      "Total number of gateway HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "restate",
			Name:      "http_request_duration_seconds",
			Help:      "Gateway HTTP request latencies in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	fetchesInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "restate",
			Name:      "fetch_state_in_flight",
			Help:      "Fetches currently in flight per fetch-state instance.",
		},
		[]string{"state"},
	)

	registerOnce sync.Once
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Init registers the collectors in the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			backendCallsTotal,
			backendCallDuration,
			httpRequestsTotal,
			httpRequestDuration,
			fetchesInFlight,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBackendCall records one backend call.
func ObserveBackendCall(operation string, started time.Time, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	backendCallsTotal.WithLabelValues(operation, outcome).Inc()
	backendCallDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveHTTPRequest records one gateway request.
func ObserveHTTPRequest(method, route, status string, started time.Time) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(started).Seconds())
}

// FetchStarted and FetchFinished track the in-flight gauge of a named fetch state.
func FetchStarted(state string) {
	fetchesInFlight.WithLabelValues(state).Inc()
}

func FetchFinished(state string) {
	fetchesInFlight.WithLabelValues(state).Dec()
}
