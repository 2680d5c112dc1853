package orderbookv1

import (
	"context"

	"github.com/google/uuid"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
)

// OrderRepository persists the open subset of orders. Rows exist only while an
// order has unfilled shares; settlement removes or shrinks them in the same
// transaction that applies the fills.
type OrderRepository interface {
	// Insert stores a new open order.
	Insert(ctx context.Context, order *Order) error

	// UpdateShares sets the remaining share count of an open order.
	UpdateShares(ctx context.Context, id uuid.UUID, shares int64) error

	// Delete removes an order row.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByID returns the open order, or (nil, nil) when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// ListByTicker returns every open order for a ticker in sequence order.
	ListByTicker(ctx context.Context, ticker marketv1.Ticker) ([]*Order, error)

	// ListByUser returns every open order of a user in sequence order.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)

	// ListAll returns all open orders in sequence order. Used to rebuild the
	// in-memory books at startup.
	ListAll(ctx context.Context) ([]*Order, error)

	// MaxSequence returns the highest assigned creation sequence, zero when
	// no orders were ever persisted.
	MaxSequence(ctx context.Context) (int64, error)
}
