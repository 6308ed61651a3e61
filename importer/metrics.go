package importer

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes per-pool import outcome counters, grounded on the same
// Registry-based registration pattern as differ.Config and sync.Metrics. A
// nil *Metrics degrades every method to a no-op.
type Metrics struct {
	outcomes *prometheus.CounterVec
}

// NewMetrics builds and, if reg is non-nil, registers the importer's
// outcome counter, labeled by source ("checkpoint"/"subgraph") and
// outcome ("imported"/"skipped"/"errored").
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dexquoter_importer_pools_total",
			Help: "Pools processed by the bulk importer, by source and outcome.",
		}, []string{"source", "outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.outcomes)
	}
	return m
}

func (m *Metrics) record(source, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(source, outcome).Inc()
}
