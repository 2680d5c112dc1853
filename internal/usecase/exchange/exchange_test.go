package exchange

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	"github.com/Laincy/reconnected-se/internal/testutil"
	"github.com/Laincy/reconnected-se/internal/usecase/admission"
	"github.com/Laincy/reconnected-se/internal/usecase/orderbook"
	"github.com/Laincy/reconnected-se/internal/usecase/settlement"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
)

func newExchange(t *testing.T) (*Exchange, *testutil.Store) {
	t.Helper()
	store := testutil.NewStore()
	runner := testutil.NewTxRunner(store)

	settler := settlement.NewSettler(
		runner,
		store.Ledger(),
		store.Stocks(),
		store.Orders(),
		store.Events(),
		logger.NewNop(),
		5,
	)
	adm := admission.NewControl(store.Ledger(), store.Stocks(), logger.NewNop())

	e := New(
		adm,
		settler,
		store.Ledger(),
		store.Stocks(),
		store.Orders(),
		store.Events(),
		nil,
		nil,
		CacheConfig{},
		logger.NewNop(),
	)
	require.NoError(t, e.Load(context.Background()))
	return e, store
}

func buy(user uuid.UUID, price string, shares int64) admission.Request {
	return admission.Request{
		UserID: user,
		Ticker: "ABCD",
		Side:   orderbookv1.SideBuy,
		Price:  decimal.RequireFromString(price),
		Shares: shares,
	}
}

func sell(user uuid.UUID, price string, shares int64) admission.Request {
	req := buy(user, price, shares)
	req.Side = orderbookv1.SideSell
	return req
}

// Scenario: resting sell fully crossed by a better-priced buy.
func TestPlaceOrder_RestThenFullFill(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("50.00"))

	resting, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)
	assert.Equal(t, int64(0), resting.Filled)
	assert.Equal(t, int64(10), resting.Remaining)
	assert.Equal(t, 1, store.OpenOrderCount())

	res, err := e.PlaceOrder(ctx, buy(buyer, "5.00", 10))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "4.50", res.Trades[0].Price.StringFixed(2))
	assert.Equal(t, int64(10), res.Filled)
	assert.Equal(t, int64(0), res.Remaining)

	assert.Equal(t, "5.00", store.Balance(buyer).StringFixed(2))
	assert.Equal(t, "45.00", store.Balance(seller).StringFixed(2))
	assert.Equal(t, int64(10), store.Holding(buyer, "ABCD"))
	assert.Equal(t, int64(90), store.Holding(seller, "ABCD"))
	assert.Equal(t, 0, store.OpenOrderCount())
	assert.Equal(t, 1, store.EventCount())
	assert.Equal(t, "4.50", store.Stock("ABCD").RecentPrice.StringFixed(2))
}

// Scenario: partial fill leaves the resting order open with the remainder.
func TestPlaceOrder_PartialFill(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("50.00"))

	restRes, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)

	res, err := e.PlaceOrder(ctx, buy(buyer, "5.00", 4))
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.Filled)
	assert.Equal(t, int64(0), res.Remaining)

	open, err := e.OpenOrdersByTicker(ctx, "ABCD")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, restRes.OrderID, open[0].ID)
	assert.Equal(t, int64(6), open[0].Shares)
}

// Scenario: a snapshot of the open orders keeps its values while later fills
// shrink the book.
func TestOpenOrdersByTicker_SnapshotNotAliased(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("50.00"))

	_, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)

	open, err := e.OpenOrdersByTicker(ctx, "ABCD")
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, int64(10), open[0].Shares)

	_, err = e.PlaceOrder(ctx, buy(buyer, "5.00", 4))
	require.NoError(t, err)

	// the earlier snapshot is untouched by the partial fill
	assert.Equal(t, int64(10), open[0].Shares)

	after, err := e.OpenOrdersByTicker(ctx, "ABCD")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, int64(6), after[0].Shares)
}

// Scenario: admission rejects an unaffordable buy with no state change.
func TestPlaceOrder_InsufficientFunds(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	poor := store.SeedUser(decimal.RequireFromString("10.00"))

	_, err := e.PlaceOrder(ctx, buy(poor, "5.00", 5))
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInsufficientFunds))
	assert.Equal(t, 0, store.OpenOrderCount())
	assert.Equal(t, "10.00", store.Balance(poor).StringFixed(2))
}

// Scenario: a freeze between rest and cross rejects the taker, leaves the
// resting order open.
func TestPlaceOrder_FrozenStockRejectsTaker(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("50.00"))

	_, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)

	store.SetStockFrozen("ABCD", true)

	_, err = e.PlaceOrder(ctx, buy(buyer, "5.00", 10))
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrStockFrozen))
	assert.Equal(t, 1, store.OpenOrderCount())
	assert.Equal(t, int64(100), store.Holding(seller, "ABCD"))
}

// Scenario: same price, different users: the earlier order fills first.
func TestPlaceOrder_TimePriority(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	first := store.SeedUser(decimal.RequireFromString("100.00"))
	second := store.SeedUser(decimal.RequireFromString("100.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)

	firstRes, err := e.PlaceOrder(ctx, buy(first, "5.00", 10))
	require.NoError(t, err)
	_, err = e.PlaceOrder(ctx, buy(second, "5.00", 10))
	require.NoError(t, err)

	res, err := e.PlaceOrder(ctx, sell(seller, "5.00", 10))
	require.NoError(t, err)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, first, res.Trades[0].Buyer)

	// the earlier buy is gone, the later one still rests
	open, err := e.OpenOrdersByTicker(ctx, "ABCD")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.NotEqual(t, firstRes.OrderID, open[0].ID)
	assert.Equal(t, second, open[0].UserID)
}

func TestCancelOrder(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	other := store.SeedUser(decimal.Zero)

	res, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)

	err = e.CancelOrder(ctx, res.OrderID, other)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrNotOwner))

	require.NoError(t, e.CancelOrder(ctx, res.OrderID, seller))
	assert.Equal(t, 0, store.OpenOrderCount())

	// second cancel reports not found, mutates nothing
	err = e.CancelOrder(ctx, res.OrderID, seller)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrOrderNotFound))
}

func TestGetRecentTrades(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("100.00"))

	for i := 0; i < 3; i++ {
		_, err := e.PlaceOrder(ctx, sell(seller, "4.50", 2))
		require.NoError(t, err)
		_, err = e.PlaceOrder(ctx, buy(buyer, "4.50", 2))
		require.NoError(t, err)
	}

	trades, err := e.GetRecentTrades(ctx, "ABCD", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	all, err := e.GetRecentTrades(ctx, "ABCD", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = e.GetRecentTrades(ctx, "WXYZ", 5)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrStockNotFound))
}

// Scenario: one matching pass fills two resting orders; the feed reports them
// newest first even when their timestamps collide.
func TestGetRecentTrades_BatchKeepsEmissionOrder(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("100.00"))

	_, err := e.PlaceOrder(ctx, sell(seller, "4.50", 5))
	require.NoError(t, err)
	_, err = e.PlaceOrder(ctx, sell(seller, "4.60", 5))
	require.NoError(t, err)

	res, err := e.PlaceOrder(ctx, buy(buyer, "4.60", 10))
	require.NoError(t, err)
	require.Len(t, res.Trades, 2)

	trades, err := e.GetRecentTrades(ctx, "ABCD", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "4.60", trades[0].Price.StringFixed(2))
	assert.Equal(t, "4.50", trades[1].Price.StringFixed(2))
	assert.Greater(t, trades[0].Sequence, trades[1].Sequence)
}

func TestGetAccountSummary(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	user := store.SeedUser(decimal.RequireFromString("12.34"))
	store.SeedHolding(user, "ABCD", 42)

	summary, err := e.GetAccountSummary(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, "12.34", summary.Balance.StringFixed(2))
	assert.Equal(t, int64(42), summary.Holdings["ABCD"])

	_, err = e.GetAccountSummary(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrUserNotFound))
}

func TestLoad_RebuildsBooks(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	buyer := store.SeedUser(decimal.RequireFromString("100.00"))

	res, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)

	// a second facade over the same store simulates a restart
	settler := settlement.NewSettler(
		testutil.NewTxRunner(store),
		store.Ledger(), store.Stocks(), store.Orders(), store.Events(),
		logger.NewNop(), 5,
	)
	adm := admission.NewControl(store.Ledger(), store.Stocks(), logger.NewNop())
	restarted := New(adm, settler, store.Ledger(), store.Stocks(), store.Orders(),
		store.Events(), nil, nil, CacheConfig{}, logger.NewNop())
	require.NoError(t, restarted.Load(ctx))

	open, err := restarted.OpenOrdersByTicker(ctx, "ABCD")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, res.OrderID, open[0].ID)

	// the rebuilt book still matches
	crossed, err := restarted.PlaceOrder(ctx, buy(buyer, "5.00", 10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), crossed.Filled)
}

// divergingSettler commits normally, then yanks an order out of the live book
// so the post-commit book update cannot be applied.
type divergingSettler struct {
	inner  Settler
	book   *orderbook.Book
	target uuid.UUID
}

func (d *divergingSettler) Commit(ctx context.Context, plan *orderbookv1.Plan) ([]*eventv1.StockEvent, error) {
	events, err := d.inner.Commit(ctx, plan)
	if err != nil {
		return nil, err
	}
	_, _ = d.book.Remove(d.target)
	return events, nil
}

// Scenario: a book that no longer matches the committed rows halts its ticker
// until the books are rebuilt. Other tickers keep trading.
func TestPlaceOrder_HaltsTickerOnBookDivergence(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	store.SeedStock("ABCD", 100, decimal.RequireFromString("5.00"))
	store.SeedStock("WXYZ", 100, decimal.RequireFromString("5.00"))
	seller := store.SeedUser(decimal.Zero)
	store.SeedHolding(seller, "ABCD", 100)
	store.SeedHolding(seller, "WXYZ", 100)
	buyer := store.SeedUser(decimal.RequireFromString("100.00"))

	res, err := e.PlaceOrder(ctx, sell(seller, "4.50", 10))
	require.NoError(t, err)

	inner := e.settler
	e.settler = &divergingSettler{inner: inner, book: e.shard("ABCD").book, target: res.OrderID}

	// the partial fill commits, then the book update finds the order gone
	_, err = e.PlaceOrder(ctx, buy(buyer, "4.50", 4))
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInvariantViolation))

	// every operation on the halted ticker is rejected
	_, err = e.PlaceOrder(ctx, buy(buyer, "4.50", 1))
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInvariantViolation))

	err = e.CancelOrder(ctx, res.OrderID, seller)
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInvariantViolation))

	_, err = e.OpenOrdersByTicker(ctx, "ABCD")
	require.Error(t, err)
	assert.True(t, errs.ErrorCodeEquals(err, errs.ErrInvariantViolation))

	// the halt is scoped to the diverged ticker
	wr := sell(seller, "4.50", 5)
	wr.Ticker = "WXYZ"
	_, err = e.PlaceOrder(ctx, wr)
	require.NoError(t, err)

	// rebuilding the books from the committed rows lifts the halt
	e.settler = inner
	require.NoError(t, e.Load(ctx))

	crossed, err := e.PlaceOrder(ctx, buy(buyer, "4.50", 6))
	require.NoError(t, err)
	assert.Equal(t, int64(6), crossed.Filled)
}

// Randomized order flow must never break share conservation or produce a
// negative balance.
func TestPlaceOrder_ShareConservationProperty(t *testing.T) {
	e, store := newExchange(t)
	ctx := context.Background()

	const issued = 1000
	store.SeedStock("ABCD", issued, decimal.RequireFromString("5.00"))

	rng := rand.New(rand.NewSource(42))
	users := make([]uuid.UUID, 5)
	for i := range users {
		users[i] = store.SeedUser(decimal.RequireFromString("500.00"))
		store.SeedHolding(users[i], "ABCD", issued/int64(len(users)))
	}
	require.Equal(t, int64(issued), store.TotalHeld("ABCD"))

	prices := []string{"4.80", "4.90", "5.00", "5.10", "5.20"}
	for i := 0; i < 200; i++ {
		user := users[rng.Intn(len(users))]
		price := prices[rng.Intn(len(prices))]
		shares := int64(rng.Intn(20) + 1)

		var req admission.Request
		if rng.Intn(2) == 0 {
			req = buy(user, price, shares)
		} else {
			req = sell(user, price, shares)
		}

		_, err := e.PlaceOrder(ctx, req)
		if err != nil {
			// admission rejections are expected; anything else is a bug
			rejected := errs.ErrorCodeEquals(err, errs.ErrInsufficientFunds) ||
				errs.ErrorCodeEquals(err, errs.ErrInsufficientShares)
			require.True(t, rejected, "unexpected error: %v", err)
			continue
		}

		require.Equal(t, int64(issued), store.TotalHeld("ABCD"), "conservation broken at step %d", i)
		for _, u := range users {
			require.False(t, store.Balance(u).IsNegative(), "negative balance at step %d", i)
		}
	}
}
