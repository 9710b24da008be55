package randomness

//go:generate mockgen -source=models.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	dErrors "fairdraw/pkg/domain-errors"
)

// ErrInsufficientRandomness means a metric did not reach quorum. Callers may
// retry or apply a manual override; no default value is ever substituted.
var ErrInsufficientRandomness = errors.New("insufficient randomness")

// MetricKind names a public randomness metric.
type MetricKind string

const (
	MetricBTC  MetricKind = "BTC"
	MetricNIST MetricKind = "NIST"
)

// Sample is one provider's outcome, kept whole for the audit trail.
// Value is nil when the provider failed.
type Sample struct {
	Provider     string   `json:"provider"`
	URL          string   `json:"url"`
	RequestedURL string   `json:"requestedUrl,omitempty"`
	RetrievedAt  string   `json:"retrievedAt"`
	Value        *float64 `json:"value"`
	RawSHA256    string   `json:"rawSha256"`
	OK           bool     `json:"ok"`
	Error        string   `json:"error,omitempty"`
}

// Metric is the consensus outcome for one metric. FinalValue is empty when
// quorum was not reached.
type Metric struct {
	Metric         MetricKind `json:"metric"`
	FinalValue     string     `json:"finalValue"`
	Samples        []Sample   `json:"samples"`
	Warning        string     `json:"warning,omitempty"`
	ManualOverride bool       `json:"manualOverride,omitempty"`
}

// Reached reports whether the metric has a usable final value.
func (m Metric) Reached() bool {
	return m.FinalValue != ""
}

// SuccessfulValues returns values of ok samples in provider order.
func (m Metric) SuccessfulValues() []float64 {
	return successfulValues(m.Samples)
}

func successfulValues(samples []Sample) []float64 {
	out := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s.OK && s.Value != nil {
			out = append(out, *s.Value)
		}
	}
	return out
}

// ApplyOverride replaces the final value with an operator-supplied number and
// marks the metric so the override is visible in every exported artifact.
func (m *Metric) ApplyOverride(value string) error {
	value = strings.TrimSpace(value)
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return dErrors.New(dErrors.CodeInvalidInput, "manual override for "+string(m.Metric)+" must be a finite number")
	}
	m.FinalValue = value
	m.ManualOverride = true
	return nil
}

// Result holds one aggregation pass, metrics in plan order.
type Result struct {
	RetrievedAt string   `json:"retrievedAt"`
	Metrics     []Metric `json:"metrics"`
}

// Metric looks up a metric by kind.
func (r *Result) Metric(kind MetricKind) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Metric == kind {
			return m, true
		}
	}
	return Metric{}, false
}

// Override applies a manual value to the named metric in place.
func (r *Result) Override(kind MetricKind, value string) error {
	for i := range r.Metrics {
		if r.Metrics[i].Metric == kind {
			return r.Metrics[i].ApplyOverride(value)
		}
	}
	return dErrors.New(dErrors.CodeInvalidInput, "unknown randomness metric: "+string(kind))
}

// Missing lists metrics that did not reach quorum.
func (r *Result) Missing() []MetricKind {
	var out []MetricKind
	for _, m := range r.Metrics {
		if !m.Reached() {
			out = append(out, m.Metric)
		}
	}
	return out
}

// Err returns a wrapped ErrInsufficientRandomness naming every missing metric.
func (r *Result) Err() error {
	missing := r.Missing()
	if len(missing) == 0 {
		return nil
	}
	names := make([]string, len(missing))
	for i, k := range missing {
		names[i] = string(k)
	}
	return dErrors.Wrap(ErrInsufficientRandomness, dErrors.CodeInsufficientRandomness,
		"quorum not reached for "+strings.Join(names, ", "))
}

// Source is a single named provider for one metric. Transport is handled by
// a Fetcher; a Source only knows where to look and how to read the answer.
type Source interface {
	Name() string
	Metric() MetricKind
	URL() string
	Parse(body []byte) (float64, error)
}

// Fetcher turns a Source into a Sample. It must never panic or return a
// partial sample: failures come back with OK=false and an error trail.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, retrievedAt string) Sample
}
