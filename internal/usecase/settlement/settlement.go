// Package settlement applies a match plan to the ledger atomically. Either
// every balance move, holding move, order mutation and event append in the
// plan commits, or none of them do.
package settlement

import (
	"bytes"
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

// TxRunner runs a unit of work as one atomic transaction.
type TxRunner interface {
	RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// Settler commits match plans against persistent state. A failed commit
// leaves balances, holdings, orders and the event log untouched.
type Settler struct {
	tx         TxRunner
	ledger     accountv1.LedgerRepository
	stocks     marketv1.StockRepository
	orders     orderbookv1.OrderRepository
	events     eventv1.EventRepository
	logger     logger.Interface
	maxRetries int
}

// NewSettler creates a Settler. maxRetries bounds how many times a commit is
// reattempted after a transaction-level conflict before giving up.
func NewSettler(
	tx TxRunner,
	ledger accountv1.LedgerRepository,
	stocks marketv1.StockRepository,
	orders orderbookv1.OrderRepository,
	events eventv1.EventRepository,
	log logger.Interface,
	maxRetries int,
) *Settler {
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Settler{
		tx:         tx,
		ledger:     ledger,
		stocks:     stocks,
		orders:     orders,
		events:     events,
		logger:     log,
		maxRetries: maxRetries,
	}
}

// Commit settles plan in one transaction and returns the stock events it
// appended, in emission order. Conflicting transactions are retried up to the
// configured bound; other failures abort the whole plan.
func (s *Settler) Commit(ctx context.Context, plan *orderbookv1.Plan) ([]*eventv1.StockEvent, error) {
	var committed []*eventv1.StockEvent

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		committed = nil

		err := s.tx.RunSerializable(ctx, func(txCtx context.Context) error {
			events, applyErr := s.apply(txCtx, plan)
			if applyErr != nil {
				return applyErr
			}
			committed = events
			return nil
		})
		if err == nil {
			return committed, nil
		}

		if postgresql.IsSerializationFailure(err) {
			s.logger.WarnContext(ctx, "settlement conflict, retrying",
				logger.Field{Key: "ticker", Value: string(plan.Taker.Ticker)},
				logger.Field{Key: "attempt", Value: attempt},
			)
			continue
		}

		return nil, err
	}

	return nil, errs.NewCoded("settlement retries exhausted", errs.ErrConflictRetriesExhausted)
}

// apply performs the plan's mutations inside an open transaction.
func (s *Settler) apply(ctx context.Context, plan *orderbookv1.Plan) ([]*eventv1.StockEvent, error) {
	taker := plan.Taker

	stock, err := s.stocks.GetByTicker(ctx, taker.Ticker)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}
	if stock.Frozen {
		return nil, errs.NewCoded("stock is frozen", errs.ErrStockFrozen)
	}

	if err := s.lockParticipants(ctx, plan); err != nil {
		return nil, err
	}

	events := make([]*eventv1.StockEvent, 0, len(plan.Trades))
	for _, trade := range plan.Trades {
		cost := trade.Cost()

		if err := s.ledger.Debit(ctx, trade.Buyer, cost); err != nil {
			return nil, err
		}
		if err := s.ledger.Credit(ctx, trade.Seller, cost); err != nil {
			return nil, err
		}
		if err := s.ledger.AdjustHolding(ctx, trade.Seller, trade.Ticker, -trade.Shares); err != nil {
			return nil, err
		}
		if err := s.ledger.AdjustHolding(ctx, trade.Buyer, trade.Ticker, trade.Shares); err != nil {
			return nil, err
		}

		event := &eventv1.StockEvent{
			ID:     uuid.New(),
			Time:   time.Now().UTC(),
			Seller: trade.Seller,
			Buyer:  trade.Buyer,
			Ticker: trade.Ticker,
			Price:  trade.Price,
			Shares: trade.Shares,
		}
		if err := s.events.Append(ctx, event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	for _, fill := range plan.Resting {
		if fill.Remaining == 0 {
			if err := s.orders.Delete(ctx, fill.OrderID); err != nil {
				return nil, err
			}
			continue
		}
		if err := s.orders.UpdateShares(ctx, fill.OrderID, fill.Remaining); err != nil {
			return nil, err
		}
	}

	if leftover := plan.Leftover(); leftover != nil {
		if err := s.orders.Insert(ctx, leftover); err != nil {
			return nil, err
		}
	}

	if len(events) > 0 {
		last := events[len(events)-1]
		if err := s.stocks.SetRecentPrice(ctx, taker.Ticker, last.Price); err != nil {
			return nil, err
		}
	}

	return events, nil
}

// lockParticipants row-locks every user touched by the plan in ascending id
// order and rejects frozen accounts.
func (s *Settler) lockParticipants(ctx context.Context, plan *orderbookv1.Plan) error {
	seen := map[uuid.UUID]struct{}{plan.Taker.UserID: {}}
	ids := []uuid.UUID{plan.Taker.UserID}
	for _, trade := range plan.Trades {
		for _, id := range []uuid.UUID{trade.Buyer, trade.Seller} {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})

	users, err := s.ledger.LockUsers(ctx, ids)
	if err != nil {
		return err
	}
	if len(users) != len(ids) {
		return errs.NewCoded("settlement participant missing", errs.ErrInvariantViolation)
	}
	for _, user := range users {
		if user.Frozen {
			return errs.NewCoded("account is frozen", errs.ErrAccountFrozen)
		}
	}

	return nil
}
