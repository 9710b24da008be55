package postgres

import (
	"context"
	"database/sql"
	"fmt"

	audit "fairdraw/pkg/platform/audit"
	txcontext "fairdraw/pkg/platform/tx"
)

// Store persists audit entries in the audit_entries table. The exact payload
// text is kept next to the JSONB copy so entry hashes can be recomputed.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts entries. Idempotent via ON CONFLICT DO NOTHING, so a
// replayed publish never rewrites a stored position.
func (s *Store) Append(ctx context.Context, records ...audit.Record) error {
	query := `
		INSERT INTO audit_entries (
			run_id, idx, timestamp, event_type, payload, payload_raw, prev_hash, entry_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, idx) DO NOTHING
	`
	exec := txcontext.Use(ctx, s.db)
	for _, r := range records {
		payload := string(r.Payload)
		if payload == "" {
			payload = "null"
		}
		_, err := exec.ExecContext(ctx, query,
			r.RunID,
			r.Index,
			r.Timestamp,
			r.EventType,
			payload,
			payload,
			r.PrevHash,
			r.EntryHash,
		)
		if err != nil {
			return fmt.Errorf("insert audit entry %s/%d: %w", r.RunID, r.Index, err)
		}
	}
	return nil
}

// ListByRun returns a run's entries in chain order.
func (s *Store) ListByRun(ctx context.Context, runID string) ([]audit.Record, error) {
	query := `
		SELECT run_id, idx, timestamp, event_type, payload_raw, prev_hash, entry_hash
		FROM audit_entries
		WHERE run_id = $1
		ORDER BY idx ASC
	`
	rows, err := txcontext.Use(ctx, s.db).QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var (
			r       audit.Record
			payload string
		)
		err := rows.Scan(
			&r.RunID,
			&r.Index,
			&r.Timestamp,
			&r.EventType,
			&payload,
			&r.PrevHash,
			&r.EntryHash,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		r.Payload = []byte(payload)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return records, nil
}
