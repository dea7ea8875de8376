package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_transitions_total",
			Help: "Session state transitions by kind (login, logout, expired, rehydrated)",
		},
		[]string{"transition"},
	)

	SessionLoginFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_login_failures_total",
			Help: "Login attempts rejected by the provider or aborted",
		},
	)

	// Cart metrics
	CartMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutations applied, by operation",
		},
		[]string{"operation"},
	)

	CartItemCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_item_count",
			Help: "Sum of quantities currently in the cart",
		},
	)

	// Storage metrics
	StorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_errors_total",
			Help: "Persistence failures by operation",
		},
		[]string{"operation"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5},
		},
		[]string{"operation", "table"},
	)

	// Authorization metrics
	RequestSignerTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "request_signer_requests_total",
			Help: "Outbound requests seen by the signer, by result (signed, passthrough)",
		},
		[]string{"result"},
	)

	RouteGuardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_decisions_total",
			Help: "Navigation decisions, by result",
		},
		[]string{"result"},
	)

	RenderGateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "render_gate_transitions_total",
			Help: "Conditional subtree mounts and unmounts",
		},
		[]string{"transition"},
	)

	// HTTP metrics for the mock API
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
