package testutil

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

// TxRunner is a transaction-runner fake over a Store. Each unit of work runs
// against a snapshot boundary: on error the store is restored, mimicking a
// rollback.
type TxRunner struct {
	store *Store

	// ConflictsBeforeCommit injects that many serialization failures (after
	// the work ran and was rolled back) before letting a commit through.
	ConflictsBeforeCommit int

	// Attempts counts how often RunSerializable was entered.
	Attempts int
}

// NewTxRunner creates a runner over store.
func NewTxRunner(store *Store) *TxRunner {
	return &TxRunner{store: store}
}

// RunSerializable runs fn, restoring the store when fn fails or a conflict is
// injected.
func (r *TxRunner) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	r.Attempts++
	snap := r.store.snapshot()

	if err := fn(ctx); err != nil {
		r.store.restore(snap)
		return err
	}

	if r.ConflictsBeforeCommit > 0 {
		r.ConflictsBeforeCommit--
		r.store.restore(snap)
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	}

	return nil
}
