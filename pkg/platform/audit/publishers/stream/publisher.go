// Package stream delivers audit entries to an external sink asynchronously.
//
// Delivery is best effort: entries are buffered, flushed in batches, and
// held back while the sink's circuit is open. A failing sink never blocks or
// fails a draw; the persisted chain stays the source of truth.
package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	audit "fairdraw/pkg/platform/audit"
	"fairdraw/pkg/platform/circuit"
)

// Publisher buffers entries and flushes them to a Sink.
type Publisher struct {
	sink          audit.Sink
	buffer        *RingBuffer
	breaker       *circuit.Breaker
	logger        *slog.Logger
	metrics       *Metrics
	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	pending []audit.Record

	stop chan struct{}
	done chan struct{}
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithBufferSize(n int) Option {
	return func(p *Publisher) {
		p.buffer = NewRingBuffer(n)
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// WithBreaker replaces the default sink circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *Publisher) {
		p.breaker = b
	}
}

func New(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{
		sink:          sink,
		buffer:        NewRingBuffer(0),
		breaker:       circuit.New("audit-stream", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second)),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		batchSize:     100,
		flushInterval: time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Enqueue queues entries for delivery. It never blocks on the sink.
func (p *Publisher) Enqueue(records ...audit.Record) {
	for _, r := range records {
		if !p.buffer.Enqueue(r) {
			p.metrics.IncDropped()
		}
	}
	p.metrics.SetBuffered(p.buffer.Len())
}

// Start runs the flush loop until Close.
func (p *Publisher) Start(ctx context.Context) {
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Flush(ctx)
			}
		}
	}()
}

// Flush delivers everything buffered, batch by batch, until the buffer is
// empty or a batch fails. Failed batches are retried on the next flush.
func (p *Publisher) Flush(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		if !p.breaker.Allow() {
			return
		}
		batch := p.pending
		if len(batch) == 0 {
			batch = p.buffer.DequeueBatch(p.batchSize)
		}
		if len(batch) == 0 {
			return
		}

		if err := p.sink.Publish(ctx, batch); err != nil {
			p.pending = batch
			p.metrics.IncPublishFailures()
			if p.breaker.RecordFailure().Opened {
				p.logger.WarnContext(ctx, "audit stream circuit opened", "breaker", p.breaker.Name(), "error", err)
			} else {
				p.logger.WarnContext(ctx, "audit stream publish failed", "entries", len(batch), "error", err)
			}
			return
		}

		p.pending = nil
		p.metrics.AddPublished(len(batch))
		p.metrics.SetBuffered(p.buffer.Len())
		if p.breaker.RecordSuccess().Closed {
			p.logger.InfoContext(ctx, "audit stream circuit closed", "breaker", p.breaker.Name())
		}
	}
}

// Close stops the loop and makes a final delivery attempt.
func (p *Publisher) Close(ctx context.Context) error {
	if p.stop != nil {
		close(p.stop)
		<-p.done
		p.stop = nil
	}
	p.Flush(ctx)
	if n := p.Pending(); n > 0 {
		p.logger.WarnContext(ctx, "audit stream closed with undelivered entries", "entries", n)
	}
	return nil
}

// Pending counts entries not yet delivered.
func (p *Publisher) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending) + p.buffer.Len()
}
