package randomness

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"fairdraw/internal/randomness/metrics"
	dErrors "fairdraw/pkg/domain-errors"
)

// TimestampLayout is the UTC millisecond layout used for every recorded time.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Plan binds a metric to its ordered providers and consensus policy.
type Plan struct {
	Metric  MetricKind
	Sources []Source
	Policy  Policy
}

// Aggregator fans out to every provider of every plan, waits for all of them
// and reduces each metric with its policy.
type Aggregator struct {
	fetcher Fetcher
	plans   []Plan
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// New validates the plans and returns an Aggregator.
func New(fetcher Fetcher, plans []Plan, opts ...Option) (*Aggregator, error) {
	if fetcher == nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "fetcher is required")
	}
	if len(plans) == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "at least one metric plan is required")
	}
	seen := map[MetricKind]bool{}
	for _, p := range plans {
		if p.Policy == nil || len(p.Sources) == 0 {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "plan for "+string(p.Metric)+" needs sources and a policy")
		}
		if seen[p.Metric] {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "duplicate plan for "+string(p.Metric))
		}
		seen[p.Metric] = true
	}

	a := &Aggregator{
		fetcher: fetcher,
		plans:   plans,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:  otel.Tracer("fairdraw/randomness"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Fetch queries every provider concurrently. A provider failure never cancels
// its siblings; the join waits for all of them. Metrics that miss quorum come
// back with an empty FinalValue and Result.Err reports them.
func (a *Aggregator) Fetch(ctx context.Context) (*Result, error) {
	ctx, span := a.tracer.Start(ctx, "randomness.fetch")
	defer span.End()

	retrievedAt := a.now().UTC().Format(TimestampLayout)
	samples := make([][]Sample, len(a.plans))
	for i, p := range a.plans {
		samples[i] = make([]Sample, len(p.Sources))
	}

	var g errgroup.Group
	for i, p := range a.plans {
		i, p := i, p
		for j, src := range p.Sources {
			j, src := j, src
			g.Go(func() error {
				start := time.Now()
				sample := a.fetcher.Fetch(ctx, src, retrievedAt)
				a.metrics.ObserveProviderLatency(src.Name(), string(p.Metric), time.Since(start))
				if !sample.OK {
					a.metrics.IncrementProviderFailure(src.Name(), string(p.Metric))
					a.logger.WarnContext(ctx, "randomness provider failed",
						"provider", src.Name(),
						"metric", p.Metric,
						"error", sample.Error,
					)
				}
				samples[i][j] = sample
				return nil
			})
		}
	}
	_ = g.Wait()

	result := &Result{RetrievedAt: retrievedAt, Metrics: make([]Metric, len(a.plans))}
	for i, p := range a.plans {
		c := p.Policy.Finalize(p.Metric, samples[i])
		result.Metrics[i] = Metric{
			Metric:     p.Metric,
			FinalValue: c.Value,
			Samples:    samples[i],
			Warning:    c.Warning,
		}
		if c.Value == "" {
			a.metrics.IncrementQuorumFailure(string(p.Metric))
		}
		if c.Warning != "" {
			a.logger.WarnContext(ctx, "randomness spread above tolerance",
				"metric", p.Metric,
				"warning", c.Warning,
			)
		}
		span.SetAttributes(attribute.String("randomness."+string(p.Metric), c.Value))
	}

	if missing := result.Missing(); len(missing) > 0 {
		a.logger.ErrorContext(ctx, "randomness quorum not reached", "missing", missing)
	}
	return result, nil
}
