package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for published-run verification.
type Metrics struct {
	// Verifications by kind (replay, individual, integrity) and outcome (pass, fail)
	Verifications *prometheus.CounterVec

	VerifyLatency *prometheus.HistogramVec
}

// New creates and registers the verification metrics.
func New() *Metrics {
	return &Metrics{
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairdraw_verifications_total",
			Help: "Verification requests by kind and outcome",
		}, []string{"kind", "outcome"}),

		VerifyLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fairdraw_verification_duration_seconds",
			Help:    "Duration of verification requests by kind",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
	}
}

// RecordVerification counts one verification and its latency.
func (m *Metrics) RecordVerification(kind string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "fail"
	if ok {
		outcome = "pass"
	}
	m.Verifications.WithLabelValues(kind, outcome).Inc()
	m.VerifyLatency.WithLabelValues(kind).Observe(d.Seconds())
}
