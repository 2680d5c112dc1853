package postgresql

import "context"

// SerializableRunner executes units of work as serializable read-write
// transactions embedded in the context.
type SerializableRunner struct {
	db PostgreSQLClient
}

// NewSerializableRunner creates a runner over db.
func NewSerializableRunner(db PostgreSQLClient) *SerializableRunner {
	return &SerializableRunner{db: db}
}

// RunSerializable runs fn inside one serializable transaction, rolling back on
// error.
func (r *SerializableRunner) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTxOptions(ctx, r.db, SerializableTxOptions(), fn)
}
