package postgresql

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type contextKey string

const txKey contextKey = "postgresql_transaction"

// TX is the transaction wrapper. It embeds the live pgx transaction into the
// context so repositories transparently run inside it.
type TX struct {
	db PostgreSQLClient
}

// NewTransaction creates a new transaction wrapper.
func NewTransaction(db PostgreSQLClient) *TX {
	return &TX{db: db}
}

// Begin starts a transaction and returns a context with the embedded transaction.
func (t *TX) Begin(ctx context.Context) (context.Context, error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return context.WithValue(ctx, txKey, tx), nil
}

// BeginTx starts a transaction with options and returns a context with the
// embedded transaction.
func (t *TX) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (context.Context, error) {
	tx, err := t.db.BeginTx(ctx, txOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction with options: %w", err)
	}

	return context.WithValue(ctx, txKey, tx), nil
}

// Commit commits the transaction from context.
func (t *TX) Commit(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return fmt.Errorf("no transaction found in context")
	}
	return tx.Commit(ctx)
}

// Rollback rolls back the transaction from context.
func (t *TX) Rollback(ctx context.Context) error {
	tx, ok := GetTx(ctx)
	if !ok {
		return fmt.Errorf("no transaction found in context")
	}
	return tx.Rollback(ctx)
}

// GetTx extracts the transaction from context.
func GetTx(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}

// WithTx executes a function within a transaction with automatic rollback on error.
func WithTx(ctx context.Context, db PostgreSQLClient, fn func(ctx context.Context) error) error {
	return withTx(ctx, db, nil, fn)
}

// WithTxOptions executes a function within a transaction with specific options.
func WithTxOptions(ctx context.Context, db PostgreSQLClient, txOptions pgx.TxOptions, fn func(ctx context.Context) error) error {
	return withTx(ctx, db, &txOptions, fn)
}

func withTx(ctx context.Context, db PostgreSQLClient, txOptions *pgx.TxOptions, fn func(ctx context.Context) error) error {
	tx := NewTransaction(db)

	var (
		txCtx context.Context
		err   error
	)
	if txOptions != nil {
		txCtx, err = tx.BeginTx(ctx, *txOptions)
	} else {
		txCtx, err = tx.Begin(ctx)
	}
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(txCtx)
			panic(p)
		}
	}()

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(txCtx); rbErr != nil {
			return fmt.Errorf("transaction failed: %v, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(txCtx)
}

// ReadOnlyTxOptions returns transaction options for read-only transactions.
func ReadOnlyTxOptions() pgx.TxOptions {
	return pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadOnly,
	}
}

// SerializableTxOptions returns transaction options for serializable transactions.
func SerializableTxOptions() pgx.TxOptions {
	return pgx.TxOptions{
		IsoLevel:   pgx.Serializable,
		AccessMode: pgx.ReadWrite,
	}
}

// IsSerializationFailure reports whether err is a transient transaction
// conflict (serialization failure or deadlock) that is safe to retry.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
