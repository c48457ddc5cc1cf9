// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "procdeck"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests handled, by route and status code.",
		},
		[]string{"route", "method", "code"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests, by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	SessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_sessions_opened_total",
			Help:      "Control channel sessions opened.",
		},
	)
	SessionsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_sessions_closed_total",
			Help:      "Control channel sessions closed.",
		},
	)
	SupervisorErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "supervisor_errors_total",
			Help:      "Supervisor operation failures, by operation.",
		},
		[]string{"op"},
	)
	LogOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_operations_total",
			Help:      "Log tail reads and truncations, by operation and result.",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequests,
		HTTPDuration,
		SessionsOpened,
		SessionsClosed,
		SupervisorErrors,
		LogOperations,
	)
}
