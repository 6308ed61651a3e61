package sync

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the live-sync pipeline's Prometheus counters, grounded on
// differ.Config's Registry-based registration pattern. A nil *Metrics (the
// zero value of Dispatcher/Coordinator) is valid -- every method degrades
// to a no-op rather than requiring a registry at construction time.
type Metrics struct {
	eventsApplied *prometheus.CounterVec
	eventsDropped *prometheus.CounterVec
	queueDepth    prometheus.Gauge
}

// NewMetrics builds and, if reg is non-nil, registers the sync pipeline's
// counters: events applied/dropped per event type, and the current depth
// of the buffered channel standing in for the unbounded subscriber queue.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		eventsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dexquoter_sync_events_applied_total",
			Help: "Pool log events successfully applied to cached state, by event type.",
		}, []string{"event"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dexquoter_sync_events_dropped_total",
			Help: "Pool log events dropped by the reducer after a decode or apply failure, by event type.",
		}, []string{"event"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dexquoter_sync_queue_depth",
			Help: "Logs buffered between the subscriber and the worker pool.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.eventsApplied, m.eventsDropped, m.queueDepth)
	}
	return m
}

func (m *Metrics) applied(event string) {
	if m == nil {
		return
	}
	m.eventsApplied.WithLabelValues(event).Inc()
}

func (m *Metrics) dropped(event string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(event).Inc()
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}
