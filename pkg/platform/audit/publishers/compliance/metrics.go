package compliance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for fail-closed audit persistence.
type Metrics struct {
	EntriesPersisted prometheus.Counter
	PersistFailures  prometheus.Counter
	PersistDuration  prometheus.Histogram
}

// NewMetrics creates and registers the compliance publisher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EntriesPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fairdraw_audit_entries_persisted_total",
			Help: "Total number of audit chain entries persisted",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fairdraw_audit_persist_failures_total",
			Help: "Total number of failed audit chain writes",
		}),
		PersistDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fairdraw_audit_persist_duration_seconds",
			Help:    "Duration of synchronous audit chain writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}
}

func (m *Metrics) AddEntriesPersisted(n int) {
	if m == nil {
		return
	}
	m.EntriesPersisted.Add(float64(n))
}

func (m *Metrics) IncPersistFailures() {
	if m == nil {
		return
	}
	m.PersistFailures.Inc()
}

func (m *Metrics) ObservePersistDuration(seconds float64) {
	if m == nil {
		return
	}
	m.PersistDuration.Observe(seconds)
}
