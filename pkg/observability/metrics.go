// Package observability provides Prometheus metrics, OpenTelemetry
// tracing, health checks and the operational HTTP server shared by the
// chatgo services.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgo_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatgo_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Chat turn metrics
	chatTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgo_chat_turns_total",
			Help: "Total number of chat turns processed",
		},
		[]string{"intent", "status"},
	)

	chatTurnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatgo_chat_turn_duration_seconds",
			Help:    "Chat turn duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Classifier metrics
	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgo_nlu_classifications_total",
			Help: "Total number of NLU classification calls",
		},
		[]string{"provider", "status"},
	)

	classificationFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatgo_nlu_fallbacks_total",
			Help: "Total number of turns degraded to the fallback classification",
		},
	)

	classificationConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatgo_nlu_confidence",
			Help:    "Distribution of classifier confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
		[]string{"intent"},
	)

	// Session metrics
	sessionOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatgo_session_operations_total",
			Help: "Total number of session operations",
		},
		[]string{"operation", "status"},
	)

	sessionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatgo_sessions_expired_total",
			Help: "Total number of sessions retired by the expiry sweep",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all chatgo metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			chatTurnsTotal,
			chatTurnDuration,
			classificationsTotal,
			classificationFallbacks,
			classificationConfidence,
			sessionOpsTotal,
			sessionsExpiredTotal,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordChatTurn records a completed chat turn.
func RecordChatTurn(intent, status string, duration time.Duration) {
	chatTurnsTotal.WithLabelValues(intent, status).Inc()
	chatTurnDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordClassification records a classifier call outcome.
func RecordClassification(provider, status string) {
	classificationsTotal.WithLabelValues(provider, status).Inc()
}

// RecordFallback records a turn degraded to the fallback classification.
func RecordFallback() {
	classificationFallbacks.Inc()
}

// RecordConfidence records the confidence score assigned to an intent.
func RecordConfidence(intent string, confidence float64) {
	classificationConfidence.WithLabelValues(intent).Observe(confidence)
}

// RecordSessionOp records a session operation outcome.
func RecordSessionOp(operation, status string) {
	sessionOpsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSessionsExpired records sessions retired by the expiry sweep.
func RecordSessionsExpired(count int) {
	sessionsExpiredTotal.Add(float64(count))
}
