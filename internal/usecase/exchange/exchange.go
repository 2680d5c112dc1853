// Package exchange is the facade in front of admission, matching and
// settlement. It owns the in-memory books, serializes all trading per ticker
// and exposes the external operations of the engine.
package exchange

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	"github.com/Laincy/reconnected-se/internal/usecase/admission"
	"github.com/Laincy/reconnected-se/internal/usecase/matching"
	"github.com/Laincy/reconnected-se/internal/usecase/orderbook"
	"github.com/Laincy/reconnected-se/internal/usecase/tradefeed"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/redis"
)

// recentTradesCap bounds both the cached slice and the largest answer
// GetRecentTrades will give.
const recentTradesCap = 100

// Settler commits a match plan atomically.
type Settler interface {
	Commit(ctx context.Context, plan *orderbookv1.Plan) ([]*eventv1.StockEvent, error)
}

// CacheConfig controls the recent-trades read-through cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// Exchange wires the trading pipeline together. One instance owns every book.
type Exchange struct {
	admission *admission.Control
	settler   Settler
	ledger    accountv1.LedgerRepository
	stocks    marketv1.StockRepository
	orders    orderbookv1.OrderRepository
	events    eventv1.EventRepository
	feed      tradefeed.Publisher
	cache     redis.Client
	cacheCfg  CacheConfig
	logger    logger.Interface

	mu     sync.Mutex
	shards map[marketv1.Ticker]*shard
	seq    atomic.Int64
}

// shard serializes all trading activity for one ticker. Holding mu covers
// matching, settlement and the post-commit book mutation as one critical
// section. A shard whose book has diverged from the committed rows is marked
// poisoned and rejects everything until the books are rebuilt via Load.
type shard struct {
	mu       sync.Mutex
	book     *orderbook.Book
	poisoned bool
}

func errTickerHalted() error {
	return errs.NewCoded("ticker halted after book divergence", errs.ErrInvariantViolation)
}

// New creates an Exchange. Call Load before serving traffic.
func New(
	adm *admission.Control,
	settler Settler,
	ledger accountv1.LedgerRepository,
	stocks marketv1.StockRepository,
	orders orderbookv1.OrderRepository,
	events eventv1.EventRepository,
	feed tradefeed.Publisher,
	cache redis.Client,
	cacheCfg CacheConfig,
	log logger.Interface,
) *Exchange {
	if feed == nil {
		feed = tradefeed.NopPublisher{}
	}

	return &Exchange{
		admission: adm,
		settler:   settler,
		ledger:    ledger,
		stocks:    stocks,
		orders:    orders,
		events:    events,
		feed:      feed,
		cache:     cache,
		cacheCfg:  cacheCfg,
		logger:    log,
		shards:    make(map[marketv1.Ticker]*shard),
	}
}

// Load rebuilds every book from the persisted open orders and seeds the
// sequence counter past the highest one ever assigned. Rebuilding replaces
// every shard, so a ticker halted after a divergence starts serving again.
func (e *Exchange) Load(ctx context.Context) error {
	maxSeq, err := e.orders.MaxSequence(ctx)
	if err != nil {
		return err
	}
	e.seq.Store(maxSeq)

	open, err := e.orders.ListAll(ctx)
	if err != nil {
		return err
	}

	byTicker := make(map[marketv1.Ticker][]*orderbookv1.Order)
	for _, o := range open {
		byTicker[o.Ticker] = append(byTicker[o.Ticker], o)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.shards = make(map[marketv1.Ticker]*shard, len(byTicker))
	for ticker, orders := range byTicker {
		book := orderbook.NewBook(ticker)
		if err := book.Rebuild(orders); err != nil {
			return err
		}
		e.shards[ticker] = &shard{book: book}
	}

	e.logger.InfoContext(ctx, "order books rebuilt",
		logger.Field{Key: "tickers", Value: len(byTicker)},
		logger.Field{Key: "openOrders", Value: len(open)},
		logger.Field{Key: "maxSequence", Value: maxSeq},
	)
	return nil
}

func (e *Exchange) shard(ticker marketv1.Ticker) *shard {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.shards[ticker]
	if !ok {
		s = &shard{book: orderbook.NewBook(ticker)}
		e.shards[ticker] = s
	}
	return s
}

// PlaceResult reports what happened to a submitted order.
type PlaceResult struct {
	OrderID   uuid.UUID           `json:"orderID"`
	Filled    int64               `json:"filled"`
	Remaining int64               `json:"remaining"`
	Trades    []orderbookv1.Trade `json:"trades"`
}

// PlaceOrder admits, matches and settles one incoming order. The in-memory
// book changes only after the settlement transaction has committed; a
// rejected or failed order leaves every book and every balance untouched.
func (e *Exchange) PlaceOrder(ctx context.Context, req admission.Request) (*PlaceResult, error) {
	ticker, err := e.admission.Validate(ctx, req)
	if err != nil {
		return nil, err
	}

	s := e.shard(ticker)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned {
		return nil, errTickerHalted()
	}

	taker := &orderbookv1.Order{
		ID:        uuid.New(),
		UserID:    req.UserID,
		Ticker:    ticker,
		Side:      req.Side,
		Price:     req.Price,
		Shares:    req.Shares,
		Sequence:  e.seq.Add(1),
		CreatedAt: time.Now().UTC(),
	}

	plan := matching.BuildPlan(s.book, taker)

	events, err := e.settler.Commit(ctx, plan)
	if err != nil {
		return nil, err
	}

	if err := s.book.ApplyPlan(plan); err != nil {
		// The book and the committed rows have diverged; nothing here can be
		// rolled back anymore. Halt the ticker until the books are rebuilt.
		s.poisoned = true
		e.logger.ErrorContext(ctx, errs.NewCoded("book diverged from settled plan", errs.ErrInvariantViolation),
			logger.Field{Key: "ticker", Value: string(ticker)},
			logger.Field{Key: "orderID", Value: taker.ID.String()},
		)
		return nil, errs.NewCoded("book diverged from settled plan", errs.ErrInvariantViolation)
	}

	if len(events) > 0 {
		e.invalidateRecentTrades(ctx, ticker)
		if err := e.feed.Publish(ctx, events); err != nil {
			e.logger.WarnContext(ctx, "trade feed publish failed",
				logger.Field{Key: "ticker", Value: string(ticker)},
				logger.Field{Key: "events", Value: len(events)},
			)
		}
	}

	return &PlaceResult{
		OrderID:   taker.ID,
		Filled:    taker.Shares - plan.Remaining,
		Remaining: plan.Remaining,
		Trades:    plan.Trades,
	}, nil
}

// CancelOrder removes an open order. Only the order's owner may cancel it; a
// second cancel of the same order reports order_not_found.
func (e *Exchange) CancelOrder(ctx context.Context, orderID, userID uuid.UUID) error {
	order, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return errs.NewCoded("order not found", errs.ErrOrderNotFound)
	}
	if order.UserID != userID {
		return errs.NewCoded("order belongs to another user", errs.ErrNotOwner)
	}

	s := e.shard(order.Ticker)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned {
		return errTickerHalted()
	}

	// The order may have filled or been cancelled between the lookup and
	// taking the shard lock.
	if s.book.Get(orderID) == nil {
		return errs.NewCoded("order not found", errs.ErrOrderNotFound)
	}

	if err := e.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	if _, err := s.book.Remove(orderID); err != nil {
		s.poisoned = true
		return errs.NewCoded("book diverged on cancel", errs.ErrInvariantViolation)
	}

	e.logger.InfoContext(ctx, "order cancelled",
		logger.Field{Key: "orderID", Value: orderID.String()},
		logger.Field{Key: "ticker", Value: string(order.Ticker)},
	)
	return nil
}

// OpenOrdersByTicker returns the open orders of one book in arrival order.
func (e *Exchange) OpenOrdersByTicker(ctx context.Context, rawTicker string) ([]*orderbookv1.Order, error) {
	ticker, err := marketv1.ParseTicker(rawTicker)
	if err != nil {
		return nil, errs.NewCoded(err.Error(), errs.ErrInvalidOrderParameters)
	}
	stock, err := e.stocks.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}

	s := e.shard(ticker)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.poisoned {
		return nil, errTickerHalted()
	}
	return s.book.Orders(), nil
}

// OpenOrdersByUser returns every open order of a user across all tickers.
func (e *Exchange) OpenOrdersByUser(ctx context.Context, userID uuid.UUID) ([]*orderbookv1.Order, error) {
	user, err := e.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	return e.orders.ListByUser(ctx, userID)
}

// GetRecentTrades returns up to limit executed trades for a ticker, most
// recent first, consulting the Redis cache before the event log.
func (e *Exchange) GetRecentTrades(ctx context.Context, rawTicker string, limit int) ([]*eventv1.StockEvent, error) {
	ticker, err := marketv1.ParseTicker(rawTicker)
	if err != nil {
		return nil, errs.NewCoded(err.Error(), errs.ErrInvalidOrderParameters)
	}
	stock, err := e.stocks.GetByTicker(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}

	if limit <= 0 || limit > recentTradesCap {
		limit = recentTradesCap
	}

	if cached, ok := e.cachedRecentTrades(ctx, ticker); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	events, err := e.events.RecentByTicker(ctx, ticker, recentTradesCap)
	if err != nil {
		return nil, err
	}
	e.fillRecentTrades(ctx, ticker, events)

	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// AccountSummary reports a user's balance and positions.
type AccountSummary struct {
	UserID   uuid.UUID                 `json:"userID"`
	Balance  decimal.Decimal           `json:"balance"`
	Frozen   bool                      `json:"frozen"`
	Holdings map[marketv1.Ticker]int64 `json:"holdings"`
}

// GetAccountSummary returns the user's balance and every holding.
func (e *Exchange) GetAccountSummary(ctx context.Context, userID uuid.UUID) (*AccountSummary, error) {
	user, err := e.ledger.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errs.NewCoded("user not found", errs.ErrUserNotFound)
	}

	holdings, err := e.ledger.AllHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &AccountSummary{
		UserID:   user.ID,
		Balance:  user.Balance,
		Frozen:   user.Frozen,
		Holdings: make(map[marketv1.Ticker]int64, len(holdings)),
	}
	for _, h := range holdings {
		summary.Holdings[h.Ticker] = h.Shares
	}
	return summary, nil
}

func recentTradesKey(ticker marketv1.Ticker) string {
	return "recent-trades:" + string(ticker)
}

func (e *Exchange) cachedRecentTrades(ctx context.Context, ticker marketv1.Ticker) ([]*eventv1.StockEvent, bool) {
	if !e.cacheCfg.Enabled || e.cache == nil {
		return nil, false
	}
	raw, found, err := e.cache.Get(ctx, recentTradesKey(ticker))
	if err != nil || !found {
		return nil, false
	}
	var events []*eventv1.StockEvent
	if err := json.Unmarshal([]byte(raw), &events); err != nil {
		return nil, false
	}
	return events, true
}

func (e *Exchange) fillRecentTrades(ctx context.Context, ticker marketv1.Ticker, events []*eventv1.StockEvent) {
	if !e.cacheCfg.Enabled || e.cache == nil {
		return
	}
	payload, err := json.Marshal(events)
	if err != nil {
		return
	}
	if err := e.cache.Set(ctx, recentTradesKey(ticker), string(payload), e.cacheCfg.TTL); err != nil {
		e.logger.WarnContext(ctx, "recent trades cache fill failed",
			logger.Field{Key: "ticker", Value: string(ticker)},
		)
	}
}

func (e *Exchange) invalidateRecentTrades(ctx context.Context, ticker marketv1.Ticker) {
	if !e.cacheCfg.Enabled || e.cache == nil {
		return
	}
	if err := e.cache.Del(ctx, recentTradesKey(ticker)); err != nil {
		e.logger.WarnContext(ctx, "recent trades cache invalidation failed",
			logger.Field{Key: "ticker", Value: string(ticker)},
		)
	}
}
