package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for streamed audit delivery.
type Metrics struct {
	Published       prometheus.Counter
	Dropped         prometheus.Counter
	PublishFailures prometheus.Counter
	Buffered        prometheus.Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fairdraw_audit_stream_published_total",
			Help: "Total number of audit entries delivered to the stream",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fairdraw_audit_stream_dropped_total",
			Help: "Total number of audit entries dropped because the buffer was full",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "fairdraw_audit_stream_publish_failures_total",
			Help: "Total number of failed batch deliveries",
		}),
		Buffered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "fairdraw_audit_stream_buffered",
			Help: "Audit entries waiting for delivery",
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m == nil {
		return
	}
	m.Published.Add(float64(n))
}

func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.Dropped.Inc()
}

func (m *Metrics) IncPublishFailures() {
	if m == nil {
		return
	}
	m.PublishFailures.Inc()
}

func (m *Metrics) SetBuffered(n int) {
	if m == nil {
		return
	}
	m.Buffered.Set(float64(n))
}
