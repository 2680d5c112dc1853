package settlement

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	"github.com/Laincy/reconnected-se/internal/testutil"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
)

type fixture struct {
	store  *testutil.Store
	runner *testutil.TxRunner
	seller uuid.UUID
	buyer  uuid.UUID
}

func setup(t *testing.T, maxRetries int) (*Settler, *fixture) {
	t.Helper()
	store := testutil.NewStore()
	runner := testutil.NewTxRunner(store)

	f := &fixture{
		store:  store,
		runner: runner,
		seller: store.SeedUser(decimal.RequireFromString("0.00")),
		buyer:  store.SeedUser(decimal.RequireFromString("100.00")),
	}
	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	store.SeedHolding(f.seller, "ABCD", 100)

	s := NewSettler(
		runner,
		store.Ledger(),
		store.Stocks(),
		store.Orders(),
		store.Events(),
		logger.NewNop(),
		maxRetries,
	)
	return s, f
}

func order(user uuid.UUID, side orderbookv1.Side, price string, shares, seq int64) *orderbookv1.Order {
	return &orderbookv1.Order{
		ID:       uuid.New(),
		UserID:   user,
		Ticker:   "ABCD",
		Side:     side,
		Price:    decimal.RequireFromString(price),
		Shares:   shares,
		Sequence: seq,
	}
}

// fullFillPlan models a buy 10 @ 5.00 crossing a resting sell 10 @ 4.50. The
// resting order row is seeded so settlement can delete it.
func fullFillPlan(t *testing.T, f *fixture) *orderbookv1.Plan {
	t.Helper()
	resting := order(f.seller, orderbookv1.SideSell, "4.50", 10, 1)
	require.NoError(t, f.store.Orders().Insert(context.Background(), resting))

	taker := order(f.buyer, orderbookv1.SideBuy, "5.00", 10, 2)
	return &orderbookv1.Plan{
		Taker: taker,
		Trades: []orderbookv1.Trade{{
			Buyer:       f.buyer,
			Seller:      f.seller,
			BuyOrderID:  taker.ID,
			SellOrderID: resting.ID,
			Ticker:      "ABCD",
			Price:       decimal.RequireFromString("4.50"),
			Shares:      10,
		}},
		Resting:   []orderbookv1.RestingFill{{OrderID: resting.ID, Filled: 10, Remaining: 0}},
		Remaining: 0,
	}
}

func TestCommit_FullFill(t *testing.T) {
	s, f := setup(t, 5)

	events, err := s.Commit(context.Background(), fullFillPlan(t, f))
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Equal(t, "55.00", f.store.Balance(f.buyer).StringFixed(2))
	assert.Equal(t, "45.00", f.store.Balance(f.seller).StringFixed(2))
	assert.Equal(t, int64(10), f.store.Holding(f.buyer, "ABCD"))
	assert.Equal(t, int64(90), f.store.Holding(f.seller, "ABCD"))

	assert.Equal(t, 1, f.store.EventCount())
	assert.Equal(t, 0, f.store.OpenOrderCount(), "both order rows resolved")
	assert.Equal(t, "4.50", f.store.Stock("ABCD").RecentPrice.StringFixed(2))
	assert.Equal(t, int64(100), f.store.TotalHeld("ABCD"), "share conservation")
}

func TestCommit_PartialFillShrinksResting(t *testing.T) {
	s, f := setup(t, 5)

	resting := order(f.seller, orderbookv1.SideSell, "4.50", 10, 1)
	require.NoError(t, f.store.Orders().Insert(context.Background(), resting))

	taker := order(f.buyer, orderbookv1.SideBuy, "5.00", 4, 2)
	plan := &orderbookv1.Plan{
		Taker: taker,
		Trades: []orderbookv1.Trade{{
			Buyer:       f.buyer,
			Seller:      f.seller,
			BuyOrderID:  taker.ID,
			SellOrderID: resting.ID,
			Ticker:      "ABCD",
			Price:       decimal.RequireFromString("4.50"),
			Shares:      4,
		}},
		Resting:   []orderbookv1.RestingFill{{OrderID: resting.ID, Filled: 4, Remaining: 6}},
		Remaining: 0,
	}

	_, err := s.Commit(context.Background(), plan)
	require.NoError(t, err)

	row, err := f.store.Orders().GetByID(context.Background(), resting.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(6), row.Shares)
}

func TestCommit_NoTradesPersistsTaker(t *testing.T) {
	s, f := setup(t, 5)

	taker := order(f.buyer, orderbookv1.SideBuy, "4.00", 10, 1)
	plan := &orderbookv1.Plan{Taker: taker, Remaining: 10}

	events, err := s.Commit(context.Background(), plan)
	require.NoError(t, err)
	assert.Empty(t, events)

	row, err := f.store.Orders().GetByID(context.Background(), taker.ID)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, int64(10), row.Shares)

	// no trade, no price move
	assert.Equal(t, "5.00", f.store.Stock("ABCD").RecentPrice.StringFixed(2))
	assert.Equal(t, 0, f.store.EventCount())
}

func TestCommit_AbortsWhenStockFrozen(t *testing.T) {
	s, f := setup(t, 5)
	plan := fullFillPlan(t, f)
	f.store.SetStockFrozen("ABCD", true)

	_, err := s.Commit(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrStockFrozen))

	assert.Equal(t, "100.00", f.store.Balance(f.buyer).StringFixed(2))
	assert.Equal(t, int64(100), f.store.Holding(f.seller, "ABCD"))
	assert.Equal(t, 0, f.store.EventCount())
	assert.Equal(t, 1, f.store.OpenOrderCount(), "resting row untouched")
}

func TestCommit_AbortsWhenParticipantFrozen(t *testing.T) {
	s, f := setup(t, 5)
	plan := fullFillPlan(t, f)
	f.store.SetUserFrozen(f.seller, true)

	_, err := s.Commit(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrAccountFrozen))
	assert.Equal(t, 0, f.store.EventCount())
}

func TestCommit_AbortsAtomicallyOnInsufficientFunds(t *testing.T) {
	s, f := setup(t, 5)
	plan := fullFillPlan(t, f)

	// drain the buyer between admission and settlement
	require.NoError(t, f.store.Ledger().Debit(context.Background(), f.buyer, decimal.RequireFromString("99.00")))

	_, err := s.Commit(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInsufficientFunds))

	// whole batch rolled back, no partial effects
	assert.Equal(t, "1.00", f.store.Balance(f.buyer).StringFixed(2))
	assert.Equal(t, "0.00", f.store.Balance(f.seller).StringFixed(2))
	assert.Equal(t, int64(0), f.store.Holding(f.buyer, "ABCD"))
	assert.Equal(t, 0, f.store.EventCount())
	assert.Equal(t, 1, f.store.OpenOrderCount())
}

func TestCommit_AbortsOnMissingParticipant(t *testing.T) {
	s, f := setup(t, 5)
	plan := fullFillPlan(t, f)
	plan.Trades[0].Seller = uuid.New()

	_, err := s.Commit(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInvariantViolation))
}

func TestCommit_RetriesSerializationConflicts(t *testing.T) {
	s, f := setup(t, 5)
	plan := fullFillPlan(t, f)
	f.runner.ConflictsBeforeCommit = 2

	events, err := s.Commit(context.Background(), plan)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 3, f.runner.Attempts)
	assert.Equal(t, "55.00", f.store.Balance(f.buyer).StringFixed(2))
}

func TestCommit_SurfacesExhaustedRetries(t *testing.T) {
	s, f := setup(t, 3)
	plan := fullFillPlan(t, f)
	f.runner.ConflictsBeforeCommit = 10

	_, err := s.Commit(context.Background(), plan)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrConflictRetriesExhausted))
	assert.Equal(t, 3, f.runner.Attempts)

	assert.Equal(t, "100.00", f.store.Balance(f.buyer).StringFixed(2))
	assert.Equal(t, 0, f.store.EventCount())
}
