// Package metrics holds the Prometheus collectors of the authentication core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GateOutcomes counts per-request authentication results by state and
	// rejection reason ("" when authenticated or anonymous).
	GateOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmanager",
			Subsystem: "auth",
			Name:      "gate_outcomes_total",
			Help:      "Authentication gate outcomes by state and reason.",
		},
		[]string{"state", "reason"},
	)

	// Operations counts state-changing auth operations by result.
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskmanager",
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Register, login, refresh and logout attempts by result.",
		},
		[]string{"operation", "result"},
	)

	// Revocations counts access tokens written to the revocation ledger.
	Revocations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "taskmanager",
		Subsystem: "auth",
		Name:      "revocations_total",
		Help:      "Access tokens revoked before their natural expiry.",
	})
)

// Register adds every collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{GateOutcomes, Operations, Revocations} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveGate records one gate result.
func ObserveGate(state, reason string) {
	GateOutcomes.WithLabelValues(state, reason).Inc()
}

// ObserveOperation records one operation attempt; result is "ok" or an error class.
func ObserveOperation(op, result string) {
	Operations.WithLabelValues(op, result).Inc()
}
