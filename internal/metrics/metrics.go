package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capecontrol_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "capecontrol_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "route"},
	)

	// Business metrics
	AgentInvocations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capecontrol_agent_invocations_total",
			Help: "Total simulated agent invocations",
		},
	)

	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "capecontrol_users_registered_total",
			Help: "Total users registered",
		},
	)

	AuthFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capecontrol_auth_failures_total",
			Help: "Rejected authentication attempts",
		},
		[]string{"reason"}, // "missing", "invalid_token", "inactive", "bad_credentials"
	)
)
