package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for executed draws.
const (
	OutcomeSuccess                = "success"
	OutcomeInsufficientRandomness = "insufficient_randomness"
	OutcomeError                  = "error"
)

// Metrics provides observability for draw execution.
type Metrics struct {
	// Draw attempts by outcome
	DrawsExecuted *prometheus.CounterVec

	// End-to-end run latency, randomness fetch included
	DrawDuration prometheus.Histogram

	// Valid applicants entering each successful draw
	DrawPoolSize prometheus.Histogram
}

// New creates and registers the run metrics.
func New() *Metrics {
	return &Metrics{
		DrawsExecuted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "fairdraw_draws_total",
			Help: "Draw attempts by outcome",
		}, []string{"outcome"}),

		DrawDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fairdraw_draw_duration_seconds",
			Help:    "Duration of a run from request to sealed artifacts",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		DrawPoolSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "fairdraw_draw_pool_size",
			Help:    "Valid applicants per executed draw",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
}

func (m *Metrics) IncrementDraw(outcome string) {
	if m != nil {
		m.DrawsExecuted.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveDraw(d time.Duration, poolSize int) {
	if m != nil {
		m.DrawDuration.Observe(d.Seconds())
		m.DrawPoolSize.Observe(float64(poolSize))
	}
}
