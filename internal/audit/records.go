package audit

import (
	platformaudit "fairdraw/pkg/platform/audit"
)

// ToRecords addresses a run's chain entries for storage and streaming.
func ToRecords(runID string, events []Event) []platformaudit.Record {
	out := make([]platformaudit.Record, len(events))
	for i, e := range events {
		out[i] = platformaudit.Record{
			RunID:     runID,
			Index:     i,
			Timestamp: e.Timestamp,
			EventType: string(e.EventType),
			Payload:   e.Data,
			PrevHash:  e.PrevHash,
			EntryHash: e.EntryHash,
		}
	}
	return out
}

// FromRecords rebuilds chain entries from stored records in index order.
func FromRecords(records []platformaudit.Record) []Event {
	out := make([]Event, len(records))
	for i, r := range records {
		out[i] = Event{
			Timestamp: r.Timestamp,
			EventType: EventType(r.EventType),
			Data:      r.Payload,
			PrevHash:  r.PrevHash,
			EntryHash: r.EntryHash,
		}
	}
	return out
}
