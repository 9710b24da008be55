package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for public randomness collection.
type Metrics struct {
	// Per-provider fetch latency, including fallback attempts
	ProviderLatency *prometheus.HistogramVec

	// Provider samples that ended with ok=false
	ProviderFailures *prometheus.CounterVec

	// Metrics that finished without a final value
	QuorumFailures *prometheus.CounterVec
}

// New creates and registers the randomness metrics.
func New() *Metrics {
	return &Metrics{
		ProviderLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fairdraw_randomness_provider_duration_seconds",
			Help:    "Duration of randomness provider fetches by provider and metric",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"provider", "metric"}),

		ProviderFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairdraw_randomness_provider_failures_total",
			Help: "Randomness provider samples that failed after all fallbacks",
		}, []string{"provider", "metric"}),

		QuorumFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairdraw_randomness_quorum_failures_total",
			Help: "Randomness metrics that did not reach quorum",
		}, []string{"metric"}),
	}
}

func (m *Metrics) ObserveProviderLatency(provider, metric string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(provider, metric).Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementProviderFailure(provider, metric string) {
	if m != nil {
		m.ProviderFailures.WithLabelValues(provider, metric).Inc()
	}
}

func (m *Metrics) IncrementQuorumFailure(metric string) {
	if m != nil {
		m.QuorumFailures.WithLabelValues(metric).Inc()
	}
}
