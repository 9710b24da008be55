package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"fairdraw/internal/run"
	"fairdraw/pkg/platform/sentinel"
	txcontext "fairdraw/pkg/platform/tx"
)

// Postgres persists runs in the draw_runs table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Save inserts r, returning sentinel.ErrConflict when the run id exists.
func (s *Postgres) Save(ctx context.Context, r *run.Run) error {
	query := `
		INSERT INTO draw_runs (
			run_id, seed_hash, final_hash, selected_dong, capacity, winners, waitlist,
			audit_jsonl, audit_summary, manifest, signature, public_key_jwk, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (run_id) DO NOTHING
	`
	result, err := txcontext.Use(ctx, s.db).ExecContext(ctx, query,
		r.RunID,
		r.SeedHash,
		r.FinalHash,
		r.SelectedDong,
		r.Capacity,
		pq.Array(r.Winners),
		pq.Array(r.Waitlist),
		r.Artifacts.AuditJSONL,
		r.Artifacts.AuditSummary,
		r.Artifacts.Manifest,
		r.Artifacts.Signature,
		r.Artifacts.PublicKeyJWK,
		r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.RunID, err)
	}
	if n == 0 {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, runID string) (*run.Run, error) {
	query := `
		SELECT run_id, seed_hash, final_hash, selected_dong, capacity, winners, waitlist,
			audit_jsonl, audit_summary, manifest, signature, public_key_jwk, created_at
		FROM draw_runs
		WHERE run_id = $1
	`
	var r run.Run
	err := txcontext.Use(ctx, s.db).QueryRowContext(ctx, query, runID).Scan(
		&r.RunID,
		&r.SeedHash,
		&r.FinalHash,
		&r.SelectedDong,
		&r.Capacity,
		pq.Array(&r.Winners),
		pq.Array(&r.Waitlist),
		&r.Artifacts.AuditJSONL,
		&r.Artifacts.AuditSummary,
		&r.Artifacts.Manifest,
		&r.Artifacts.Signature,
		&r.Artifacts.PublicKeyJWK,
		&r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select run %s: %w", runID, err)
	}
	if r.Winners == nil {
		r.Winners = []string{}
	}
	if r.Waitlist == nil {
		r.Waitlist = []string{}
	}
	return &r, nil
}
