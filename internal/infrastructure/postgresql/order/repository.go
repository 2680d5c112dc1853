// Package order is the Postgres repository over the orders table, which holds
// only the open subset of orders.
package order

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

const orderColumns = `order_id, user_id, ticker, side, price, shares, seq, created_at`

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates an order repository.
func NewRepository(db postgresql.PostgreSQLClient, log logger.Interface) orderbookv1.OrderRepository {
	return &repository{
		db:     db,
		logger: log,
	}
}

// Insert stores a new open order.
func (r *repository) Insert(ctx context.Context, order *orderbookv1.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(ctx, query,
		order.ID,
		order.UserID,
		order.Ticker,
		order.Side,
		order.Price,
		order.Shares,
		order.Sequence,
		order.CreatedAt,
	)
	if err != nil {
		return errs.TracerFromError(err)
	}
	return nil
}

// UpdateShares sets the remaining share count of an open order.
func (r *repository) UpdateShares(ctx context.Context, id uuid.UUID, shares int64) error {
	query := `UPDATE orders SET shares = $2 WHERE order_id = $1`

	cmd, err := r.db.Exec(ctx, query, id, shares)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("order not found", errs.ErrOrderNotFound)
	}
	return nil
}

// Delete removes an order row.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM orders WHERE order_id = $1`

	cmd, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return errs.TracerFromError(err)
	}
	if cmd.RowsAffected() == 0 {
		return errs.NewCoded("order not found", errs.ErrOrderNotFound)
	}
	return nil
}

// GetByID returns the open order, or (nil, nil) when absent.
func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*orderbookv1.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	order := &orderbookv1.Order{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.UserID,
		&order.Ticker,
		&order.Side,
		&order.Price,
		&order.Shares,
		&order.Sequence,
		&order.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	return order, nil
}

// ListByTicker returns every open order for a ticker in sequence order.
func (r *repository) ListByTicker(ctx context.Context, ticker marketv1.Ticker) ([]*orderbookv1.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ticker = $1 ORDER BY seq`
	return r.list(ctx, query, ticker)
}

// ListByUser returns every open order of a user in sequence order.
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*orderbookv1.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY seq`
	return r.list(ctx, query, userID)
}

// ListAll returns all open orders in sequence order.
func (r *repository) ListAll(ctx context.Context) ([]*orderbookv1.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY seq`
	return r.list(ctx, query)
}

func (r *repository) list(ctx context.Context, query string, args ...any) ([]*orderbookv1.Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	defer rows.Close()

	orders := []*orderbookv1.Order{}
	for rows.Next() {
		order := &orderbookv1.Order{}
		err := rows.Scan(
			&order.ID,
			&order.UserID,
			&order.Ticker,
			&order.Side,
			&order.Price,
			&order.Shares,
			&order.Sequence,
			&order.CreatedAt,
		)
		if err != nil {
			return nil, errs.TracerFromError(err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.TracerFromError(err)
	}
	return orders, nil
}

// MaxSequence returns the highest assigned creation sequence, zero when no
// orders were ever persisted.
func (r *repository) MaxSequence(ctx context.Context) (int64, error) {
	query := `SELECT COALESCE(MAX(seq), 0) FROM orders`

	var seq int64
	if err := r.db.QueryRow(ctx, query).Scan(&seq); err != nil {
		return 0, errs.TracerFromError(err)
	}
	return seq, nil
}
