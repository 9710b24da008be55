package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fairdraw/pkg/digest"
)

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(1500 * time.Millisecond)
		return t
	}
}

func twoEntryChain(t *testing.T) *Chain {
	t.Helper()
	c := NewChain(WithClock(fixedClock()))
	_, err := c.Append(EventRunStarted, map[string]any{"runId": "run-1", "capacity": 20})
	require.NoError(t, err)
	_, err = c.Append(EventSeedDerived, SeedDerived{SeedParts: []string{"a=1"}, SeedHash: "ff"})
	require.NoError(t, err)
	return c
}

func TestChainAppend(t *testing.T) {
	c := twoEntryChain(t)
	events := c.Events()
	require.Len(t, events, 2)

	assert.Equal(t, Genesis, events[0].PrevHash)
	assert.Equal(t, events[0].EntryHash, events[1].PrevHash)
	assert.Equal(t, "2026-03-01T09:30:01.500Z", events[0].Timestamp)
	assert.Equal(t, "2026-03-01T09:30:03.000Z", events[1].Timestamp)
	assert.Equal(t, events[1].EntryHash, c.FinalHash())

	t.Run("entry hash commits to prev and canonical payload", func(t *testing.T) {
		e := events[0]
		canonical := `{"data":{"capacity":20,"runId":"run-1"},"event_type":"run_started","prev_hash":"GENESIS","timestamp":"2026-03-01T09:30:01.500Z"}`
		assert.Equal(t, digest.SHA256Hex("GENESIS\n"+canonical), e.EntryHash)
	})
}

func TestChainRejectsUnknownEventType(t *testing.T) {
	c := NewChain()
	_, err := c.Append(EventType("winner_rerolled"), map[string]any{})
	assert.Error(t, err)
	assert.Empty(t, c.Events())
}

func TestEmptyChain(t *testing.T) {
	c := NewChain()
	assert.Equal(t, Genesis, c.FinalHash())
	assert.Empty(t, c.Events())

	v := VerifyChain(nil)
	assert.True(t, v.OK)
	assert.Equal(t, Genesis, v.FinalHash)
}

func TestVerifyChain(t *testing.T) {
	t.Run("untouched chain verifies", func(t *testing.T) {
		c := twoEntryChain(t)
		v := VerifyChain(c.Events())
		assert.True(t, v.OK)
		assert.Equal(t, -1, v.FailedIndex)
		assert.Equal(t, c.FinalHash(), v.FinalHash)
	})

	t.Run("payload mutation breaks entry hash", func(t *testing.T) {
		events := twoEntryChain(t).Events()
		events[1].Data = json.RawMessage(`{"seedHash":"fe","seedParts":["a=1"]}`)

		v := VerifyChain(events)
		assert.False(t, v.OK)
		assert.Equal(t, "entry_hash mismatch at index 1", v.Reason)
		assert.Equal(t, 1, v.FailedIndex)
		assert.Empty(t, v.FinalHash)
	})

	t.Run("timestamp mutation breaks entry hash", func(t *testing.T) {
		events := twoEntryChain(t).Events()
		events[0].Timestamp = "2026-03-01T09:30:01.501Z"
		assert.Equal(t, "entry_hash mismatch at index 0", VerifyChain(events).Reason)
	})

	t.Run("relinking breaks prev hash", func(t *testing.T) {
		events := twoEntryChain(t).Events()
		events[1].PrevHash = Genesis
		assert.Equal(t, "prev_hash mismatch at index 1", VerifyChain(events).Reason)
	})

	t.Run("dropping the first entry breaks linkage", func(t *testing.T) {
		events := twoEntryChain(t).Events()
		assert.Equal(t, "prev_hash mismatch at index 0", VerifyChain(events[1:]).Reason)
	})

	t.Run("key order in stored data does not matter", func(t *testing.T) {
		events := twoEntryChain(t).Events()
		events[0].Data = json.RawMessage(`{ "runId": "run-1", "capacity": 20 }`)
		assert.True(t, VerifyChain(events).OK)
	})
}

func TestRecordsRoundTripVerifies(t *testing.T) {
	c := twoEntryChain(t)
	records := ToRecords("run-1", c.Events())
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[1].Index)
	assert.Equal(t, "run-1", records[1].Key())

	v := VerifyChain(FromRecords(records))
	assert.True(t, v.OK)
	assert.Equal(t, c.FinalHash(), v.FinalHash)
}
