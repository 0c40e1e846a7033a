// Package metrics exposes Prometheus collectors for the chat service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ragdesk"

var (
	// ChatTurnsTotal counts chat turns by outcome (ok, retrieval_error, generation_error, history_error).
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Total number of chat turns",
		},
		[]string{"outcome"},
	)

	// ChatTurnDuration measures end to end turn latency.
	ChatTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_turn_duration_seconds",
			Help:      "Duration of chat turns in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	// UpstreamRequestsTotal counts calls to remote services by target, operation and status.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream requests",
		},
		[]string{"target", "operation", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"target", "operation"},
	)

	// HTTPRequestsTotal counts served HTTP requests.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
)

// RecordChatTurn records one orchestrated turn.
func RecordChatTurn(outcome string, duration time.Duration) {
	ChatTurnsTotal.WithLabelValues(outcome).Inc()
	ChatTurnDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordUpstream records a remote call. A status of 0 means the request never
// got a response.
func RecordUpstream(target, operation string, status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequestsTotal.WithLabelValues(target, operation, label).Inc()
	UpstreamRequestDuration.WithLabelValues(target, operation).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, route string, status int) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
