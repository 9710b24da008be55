package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "fairdraw/pkg/domain-errors"
	txcontext "fairdraw/pkg/platform/tx"
)

const defaultPublishTxTimeout = 5 * time.Second

// publishPostgresTx makes recording a run's audit entries and storing the
// run a single Postgres transaction.
type publishPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPublishPostgresTx(db *sql.DB) *publishPostgresTx {
	return &publishPostgresTx{db: db}
}

func (t *publishPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultPublishTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	return tx.Commit()
}
