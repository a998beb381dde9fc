package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Poll metrics
	PollAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_poll_attempts_total",
			Help: "Total number of health poll attempts by phase and result",
		},
		[]string{"phase", "result"},
	)

	PollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_poll_duration_seconds",
			Help:    "Wall-clock duration of completed poll loops by phase",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"phase"},
	)

	// Operation metrics
	OperationOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_operation_outcomes_total",
			Help: "Total lifecycle operations by operation and terminal status",
		},
		[]string{"operation", "status"},
	)

	GuestStopGraceExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "strata_guest_stop_grace_exceeded_total",
			Help: "Drains aborted because the controller VM did not stop within its grace window",
		},
	)

	// Provisioning metrics
	ProvisioningStepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_provisioning_steps_total",
			Help: "Storage provisioning steps by step and result",
		},
		[]string{"step", "result"},
	)
)

// Registry holds all Strata collectors. Exposed so tests can scrape it
// without touching the default registry.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		PollAttemptsTotal,
		PollDuration,
		OperationOutcomesTotal,
		GuestStopGraceExceeded,
		ProvisioningStepsTotal,
	)
}

// Handler returns the Prometheus HTTP handler for the Strata registry
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
