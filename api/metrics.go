/*
metrics.go - Prometheus instrumentation for engine operations

PURPOSE:
  Counts every mutating engine operation by name and outcome so an operator
  can watch payment and accrual activity, and error rates, without reading
  logs. Request-level metrics (latency, status codes) are left to the HTTP
  middleware layer.

SEE ALSO:
  - server.go: mounts the /metrics endpoint
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the operation counters handlers report into.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics builds the counters and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.operations)
	return m
}

// NopMetrics returns working but unregistered counters, for tests.
func NopMetrics() *Metrics { return newMetrics() }

func newMetrics() *Metrics {
	return &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "provision",
			Name:      "operations_total",
			Help:      "Engine operations by name and outcome.",
		}, []string{"operation", "outcome"}),
	}
}

// Operation records one engine call.
func (m *Metrics) Operation(name string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(name, outcome).Inc()
}
