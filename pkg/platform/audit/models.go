package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Record is one hash-chained audit entry addressed by run and position.
// Payload and hashes are stored byte-for-byte as exported so a stored run can
// be re-verified without the originating process.
type Record struct {
	RunID     string
	Index     int
	Timestamp string
	EventType string
	Payload   json.RawMessage
	PrevHash  string
	EntryHash string
}

// Key is the partition key used by streaming sinks. Entries of one run share
// a key so their order is preserved.
func (r Record) Key() string {
	return r.RunID
}

// StreamMessage is the wire form published to the audit topic.
type StreamMessage struct {
	RunID       string          `json:"runId"`
	Index       int             `json:"index"`
	Timestamp   string          `json:"timestamp"`
	EventType   string          `json:"event_type"`
	Data        json.RawMessage `json:"data"`
	PrevHash    string          `json:"prev_hash"`
	EntryHash   string          `json:"entry_hash"`
	PublishedAt time.Time       `json:"publishedAt"`
}

// NewStreamMessage stamps a record for publication.
func NewStreamMessage(r Record, now time.Time) StreamMessage {
	return StreamMessage{
		RunID:       r.RunID,
		Index:       r.Index,
		Timestamp:   r.Timestamp,
		EventType:   r.EventType,
		Data:        r.Payload,
		PrevHash:    r.PrevHash,
		EntryHash:   r.EntryHash,
		PublishedAt: now.UTC(),
	}
}

// Store persists audit records. Append is idempotent on (RunID, Index).
type Store interface {
	Append(ctx context.Context, records ...Record) error
	ListByRun(ctx context.Context, runID string) ([]Record, error)
}

// Sink receives records for delivery outside the process, e.g. a broker topic.
type Sink interface {
	Publish(ctx context.Context, records []Record) error
}
