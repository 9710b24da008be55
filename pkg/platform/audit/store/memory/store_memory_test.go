package memory

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "fairdraw/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	require.NoError(t, s.Append(ctx,
		audit.Record{RunID: "run-1", Index: 1, EventType: "seed_derived", EntryHash: "b"},
		audit.Record{RunID: "run-1", Index: 0, EventType: "run_started", EntryHash: "a", Payload: json.RawMessage(`{}`)},
		audit.Record{RunID: "run-2", Index: 0, EventType: "run_started", EntryHash: "z"},
	))

	t.Run("lists one run in chain order", func(t *testing.T) {
		records, err := s.ListByRun(ctx, "run-1")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "a", records[0].EntryHash)
		assert.Equal(t, "b", records[1].EntryHash)
	})

	t.Run("re-append at an existing position is ignored", func(t *testing.T) {
		require.NoError(t, s.Append(ctx, audit.Record{RunID: "run-1", Index: 0, EntryHash: "tampered"}))
		records, err := s.ListByRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, "a", records[0].EntryHash)
	})

	t.Run("unknown run is empty", func(t *testing.T) {
		records, err := s.ListByRun(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("clear drops everything", func(t *testing.T) {
		s.Clear()
		records, err := s.ListByRun(ctx, "run-2")
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}
