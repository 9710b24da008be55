package compliance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "fairdraw/pkg/platform/audit"
	"fairdraw/pkg/platform/audit/store/memory"
)

type failingStore struct {
	audit.Store
}

func (failingStore) Append(context.Context, ...audit.Record) error {
	return errors.New("disk full")
}

func chain(runID string, n int) []audit.Record {
	out := make([]audit.Record, n)
	for i := range out {
		out[i] = audit.Record{RunID: runID, Index: i, EventType: "run_started", EntryHash: "h"}
	}
	return out
}

func TestPublisher_Emit(t *testing.T) {
	ctx := context.Background()

	t.Run("persists a contiguous chain", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)
		require.NoError(t, pub.Emit(ctx, chain("run-1", 3)))

		records, err := store.ListByRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Len(t, records, 3)
	})

	t.Run("store failure fails the caller", func(t *testing.T) {
		pub := New(failingStore{})
		err := pub.Emit(ctx, chain("run-1", 1))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	t.Run("rejects malformed batches", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())

		assert.Error(t, pub.Emit(ctx, nil))
		assert.Error(t, pub.Emit(ctx, chain("", 1)))

		mixed := append(chain("run-1", 1), audit.Record{RunID: "run-2", Index: 1, EntryHash: "h"})
		assert.Error(t, pub.Emit(ctx, mixed))

		gap := chain("run-1", 2)
		gap[1].Index = 5
		assert.Error(t, pub.Emit(ctx, gap))
	})
}
