// Package stockevent is the Postgres repository over the append-only
// stock_events table.
package stockevent

import (
	"context"

	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

const eventColumns = `event_id, seq, time, seller, buyer, ticker, price, shares`

type repository struct {
	db     postgresql.PostgreSQLClient
	logger logger.Interface
}

// NewRepository creates a stock event repository.
func NewRepository(db postgresql.PostgreSQLClient, log logger.Interface) eventv1.EventRepository {
	return &repository{
		db:     db,
		logger: log,
	}
}

// Append records one executed trade, filling in the database-assigned log
// sequence. There is no update or delete.
func (r *repository) Append(ctx context.Context, event *eventv1.StockEvent) error {
	query := `INSERT INTO stock_events (event_id, time, seller, buyer, ticker, price, shares)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING seq`

	err := r.db.QueryRow(ctx, query,
		event.ID,
		event.Time,
		event.Seller,
		event.Buyer,
		event.Ticker,
		event.Price,
		event.Shares,
	).Scan(&event.Sequence)
	if err != nil {
		return errs.TracerFromError(err)
	}
	return nil
}

// RecentByTicker returns up to limit events for a ticker, newest first. The
// log sequence orders trades from one matching pass even when their
// timestamps collide.
func (r *repository) RecentByTicker(ctx context.Context, ticker marketv1.Ticker, limit int) ([]*eventv1.StockEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM stock_events WHERE ticker = $1 ORDER BY seq DESC LIMIT $2`

	rows, err := r.db.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, errs.TracerFromError(err)
	}
	defer rows.Close()

	events := []*eventv1.StockEvent{}
	for rows.Next() {
		event := &eventv1.StockEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Sequence,
			&event.Time,
			&event.Seller,
			&event.Buyer,
			&event.Ticker,
			&event.Price,
			&event.Shares,
		)
		if err != nil {
			return nil, errs.TracerFromError(err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.TracerFromError(err)
	}
	return events, nil
}
