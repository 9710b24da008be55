package audit

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fairdraw/pkg/digest"
)

// Genesis is the prev_hash of the first entry in every chain.
const Genesis = "GENESIS"

// TimestampLayout is the UTC millisecond layout stored in Event.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Event is one hash-chained audit entry. Field order is the export order.
type Event struct {
	Timestamp string          `json:"timestamp"`
	EventType EventType       `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	PrevHash  string          `json:"prev_hash"`
	EntryHash string          `json:"entry_hash"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return nil
}

// EntryHash computes sha256(prev + "\n" + canonical({data, event_type,
// prev_hash, timestamp})) for e. Only the stored fields are used, so
// verification never re-reads the clock.
func EntryHash(prev string, e Event) (string, error) {
	data := e.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	canonical, err := digest.CanonicalJSON(map[string]any{
		"timestamp":  e.Timestamp,
		"event_type": e.EventType,
		"data":       data,
		"prev_hash":  e.PrevHash,
	})
	if err != nil {
		return "", fmt.Errorf("canonicalize entry: %w", err)
	}
	return digest.SHA256Hex(prev + "\n" + string(canonical)), nil
}

// Chain is an append-only hash chain owned by one run.
type Chain struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

type ChainOption func(*Chain)

// WithClock overrides the append-time clock, for tests.
func WithClock(now func() time.Time) ChainOption {
	return func(c *Chain) {
		c.now = now
	}
}

func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append captures the timestamp once, links to the previous entry and
// stores the hashed entry.
func (c *Chain) Append(eventType EventType, data any) (Event, error) {
	if !eventType.IsKnown() {
		return Event{}, fmt.Errorf("unknown event type %q", eventType)
	}
	raw, err := digest.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := Event{
		Timestamp: c.now().UTC().Format(TimestampLayout),
		EventType: eventType,
		Data:      raw,
		PrevHash:  Genesis,
	}
	if n := len(c.events); n > 0 {
		e.PrevHash = c.events[n-1].EntryHash
	}
	h, err := EntryHash(e.PrevHash, e)
	if err != nil {
		return Event{}, err
	}
	e.EntryHash = h
	c.events = append(c.events, e)
	return e, nil
}

// Events returns a copy of the entries in append order.
func (c *Chain) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// FinalHash is the last entry hash, or Genesis for an empty chain.
func (c *Chain) FinalHash() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.events) == 0 {
		return Genesis
	}
	return c.events[len(c.events)-1].EntryHash
}

// Verification is the outcome of walking a chain from genesis.
type Verification struct {
	OK          bool
	Reason      string
	FailedIndex int
	FinalHash   string
}

// VerifyChain recomputes every link and stops at the first break. FinalHash
// is only set for an intact chain.
func VerifyChain(events []Event) Verification {
	prev := Genesis
	for i, e := range events {
		if e.PrevHash != prev {
			return Verification{Reason: fmt.Sprintf("prev_hash mismatch at index %d", i), FailedIndex: i}
		}
		h, err := EntryHash(prev, e)
		if err != nil {
			return Verification{Reason: fmt.Sprintf("entry_hash mismatch at index %d: %v", i, err), FailedIndex: i}
		}
		if h != e.EntryHash {
			return Verification{Reason: fmt.Sprintf("entry_hash mismatch at index %d", i), FailedIndex: i}
		}
		prev = e.EntryHash
	}
	return Verification{OK: true, FailedIndex: -1, FinalHash: prev}
}
