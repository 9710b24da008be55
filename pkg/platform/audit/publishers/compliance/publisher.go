// Package compliance provides a fail-closed publisher for audit chain entries.
//
// Entries are written synchronously and the caller blocks until the write
// succeeds. If the write fails, an error is returned and the run that
// produced the entries MUST NOT be reported as completed.
package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	audit "fairdraw/pkg/platform/audit"
)

// Publisher persists audit entries with fail-closed semantics.
type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for error reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New creates a compliance publisher.
func New(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store: store,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit synchronously writes a run's entries to the audit store.
// Entries must belong to one run and be contiguous from index 0.
func (p *Publisher) Emit(ctx context.Context, records []audit.Record) error {
	start := time.Now()

	if err := validate(records); err != nil {
		return err
	}

	if err := p.store.Append(ctx, records...); err != nil {
		p.metrics.IncPersistFailures()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "CRITICAL: audit chain persistence failed",
				"run_id", records[0].RunID,
				"entries", len(records),
				"error", err,
			)
		}
		return fmt.Errorf("audit persistence failed: %w", err)
	}

	p.metrics.ObservePersistDuration(time.Since(start).Seconds())
	p.metrics.AddEntriesPersisted(len(records))
	return nil
}

func validate(records []audit.Record) error {
	if len(records) == 0 {
		return fmt.Errorf("audit emit requires at least one entry")
	}
	runID := records[0].RunID
	if runID == "" {
		return fmt.Errorf("audit entry requires RunID")
	}
	for i, r := range records {
		if r.RunID != runID {
			return fmt.Errorf("audit entries span runs %s and %s", runID, r.RunID)
		}
		if r.Index != i {
			return fmt.Errorf("audit entry %d has index %d", i, r.Index)
		}
		if r.EntryHash == "" {
			return fmt.Errorf("audit entry %d has no entry hash", i)
		}
	}
	return nil
}

// Close is a no-op for the synchronous compliance publisher.
func (p *Publisher) Close() error {
	return nil
}
