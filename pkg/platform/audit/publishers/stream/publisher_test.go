package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "fairdraw/pkg/platform/audit"
	"fairdraw/pkg/platform/circuit"
)

type recordingSink struct {
	mu        sync.Mutex
	failNext  int
	published []audit.Record
	calls     int
}

func (s *recordingSink) Publish(_ context.Context, records []audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failNext > 0 {
		s.failNext--
		return errors.New("broker unavailable")
	}
	s.published = append(s.published, records...)
	return nil
}

func (s *recordingSink) indexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.published))
	for i, r := range s.published {
		out[i] = r.Index
	}
	return out
}

func records(n int) []audit.Record {
	out := make([]audit.Record, n)
	for i := range out {
		out[i] = audit.Record{RunID: "run-1", Index: i}
	}
	return out
}

func TestPublisher_FlushInBatches(t *testing.T) {
	sink := &recordingSink{}
	p := New(sink, WithBatchSize(2))
	p.Enqueue(records(5)...)

	p.Flush(context.Background())

	assert.Equal(t, []int{0, 1, 2, 3, 4}, sink.indexes())
	assert.Equal(t, 3, sink.calls)
	assert.Zero(t, p.Pending())
}

func TestPublisher_RetriesFailedBatchInOrder(t *testing.T) {
	sink := &recordingSink{failNext: 1}
	p := New(sink, WithBatchSize(2))
	p.Enqueue(records(3)...)

	p.Flush(context.Background())
	assert.Empty(t, sink.indexes())
	assert.Equal(t, 3, p.Pending())

	p.Flush(context.Background())
	assert.Equal(t, []int{0, 1, 2}, sink.indexes())
}

func TestPublisher_OpenCircuitHoldsDelivery(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(1),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	sink := &recordingSink{failNext: 1}
	p := New(sink, WithBreaker(breaker))
	p.Enqueue(records(1)...)

	p.Flush(context.Background())
	require.True(t, breaker.IsOpen())

	p.Flush(context.Background())
	assert.Equal(t, 1, sink.calls, "open circuit skips the sink")

	now = now.Add(time.Minute)
	p.Flush(context.Background())
	assert.Equal(t, []int{0}, sink.indexes())
	assert.False(t, breaker.IsOpen())
}

func TestPublisher_CloseDrains(t *testing.T) {
	sink := &recordingSink{}
	p := New(sink, WithFlushInterval(time.Hour))
	p.Start(context.Background())
	p.Enqueue(records(4)...)

	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3}, sink.indexes())
}
