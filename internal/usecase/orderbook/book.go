package orderbook

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
)

var (
	// ErrNilOrder is returned when a nil order is passed to the book.
	ErrNilOrder = errors.New("order cannot be nil")
	// ErrOrderExists is returned when inserting a duplicate order id.
	ErrOrderExists = errors.New("order already in book")
	// ErrOrderNotInBook is returned when the order id is not resting in the book.
	ErrOrderNotInBook = errors.New("order not in book")
)

// Book holds the open orders of a single ticker, organized as price levels per
// side. Orders within a level keep FIFO order by creation sequence. The book is
// an in-memory projection of the orders table; all mutation happens through the
// per-ticker serialization boundary in the exchange facade.
type Book struct {
	mu     sync.RWMutex
	ticker marketv1.Ticker
	bids   map[string]*Level
	asks   map[string]*Level
	orders map[uuid.UUID]*orderbookv1.Order
}

// Level is one price point on one side of the book.
type Level struct {
	Price  decimal.Decimal
	orders []*orderbookv1.Order
}

// Orders returns the level's orders in time priority.
func (l *Level) Orders() []*orderbookv1.Order {
	out := make([]*orderbookv1.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Volume returns the total open shares at this level.
func (l *Level) Volume() int64 {
	var total int64
	for _, o := range l.orders {
		total += o.Shares
	}
	return total
}

func (l *Level) insert(o *orderbookv1.Order) {
	// levels stay small; linear insertion keeps sequence order
	idx := sort.Search(len(l.orders), func(i int) bool {
		return l.orders[i].Sequence > o.Sequence
	})
	l.orders = append(l.orders, nil)
	copy(l.orders[idx+1:], l.orders[idx:])
	l.orders[idx] = o
}

func (l *Level) remove(id uuid.UUID) bool {
	for i, o := range l.orders {
		if o.ID == id {
			l.orders = append(l.orders[:i], l.orders[i+1:]...)
			return true
		}
	}
	return false
}

// NewBook creates an empty book for a ticker.
func NewBook(ticker marketv1.Ticker) *Book {
	return &Book{
		ticker: ticker,
		bids:   make(map[string]*Level),
		asks:   make(map[string]*Level),
		orders: make(map[uuid.UUID]*orderbookv1.Order),
	}
}

// Ticker returns the ticker this book serves.
func (b *Book) Ticker() marketv1.Ticker {
	return b.ticker
}

func priceKey(p decimal.Decimal) string {
	return p.StringFixed(2)
}

func (b *Book) sideLevels(side orderbookv1.Side) map[string]*Level {
	if side == orderbookv1.SideBuy {
		return b.bids
	}
	return b.asks
}

// Add inserts an open order into its side of the book.
func (b *Book) Add(o *orderbookv1.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(o)
}

func (b *Book) addLocked(o *orderbookv1.Order) error {
	if o == nil {
		return ErrNilOrder
	}
	if o.Shares <= 0 {
		return fmt.Errorf("order %s has no open shares", o.ID)
	}
	if _, exists := b.orders[o.ID]; exists {
		return ErrOrderExists
	}

	levels := b.sideLevels(o.Side)
	key := priceKey(o.Price)
	level, ok := levels[key]
	if !ok {
		level = &Level{Price: o.Price}
		levels[key] = level
	}
	level.insert(o)
	b.orders[o.ID] = o

	return nil
}

// Remove withdraws an order from the book, returning it.
func (b *Book) Remove(id uuid.UUID) (*orderbookv1.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(id)
}

func (b *Book) removeLocked(id uuid.UUID) (*orderbookv1.Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return nil, ErrOrderNotInBook
	}

	levels := b.sideLevels(o.Side)
	key := priceKey(o.Price)
	if level, ok := levels[key]; ok {
		level.remove(id)
		if len(level.orders) == 0 {
			delete(levels, key)
		}
	}
	delete(b.orders, id)

	return o, nil
}

// Get returns a copy of the resting order with the given id, or nil.
func (b *Book) Get(id uuid.UUID) *orderbookv1.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[id]
	if !ok {
		return nil
	}
	return o.Clone()
}

// Len returns the number of open orders in the book.
func (b *Book) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.orders)
}

// Levels returns one side's price levels best-first: descending price for
// bids, ascending for asks.
func (b *Book) Levels(side orderbookv1.Side) []*Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	src := b.sideLevels(side)
	levels := make([]*Level, 0, len(src))
	for _, l := range src {
		levels = append(levels, l)
	}

	if side == orderbookv1.SideBuy {
		sort.Slice(levels, func(i, j int) bool {
			return levels[i].Price.GreaterThan(levels[j].Price)
		})
	} else {
		sort.Slice(levels, func(i, j int) bool {
			return levels[i].Price.LessThan(levels[j].Price)
		})
	}
	return levels
}

// Best returns the top-priority resting order on a side, or nil when the side
// is empty.
func (b *Book) Best(side orderbookv1.Side) *orderbookv1.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var best *Level
	for _, l := range b.sideLevels(side) {
		if best == nil {
			best = l
			continue
		}
		if side == orderbookv1.SideBuy && l.Price.GreaterThan(best.Price) {
			best = l
		}
		if side == orderbookv1.SideSell && l.Price.LessThan(best.Price) {
			best = l
		}
	}
	if best == nil || len(best.orders) == 0 {
		return nil
	}
	return best.orders[0]
}

// Orders returns a copy of every open order in the book in sequence order.
// The copies stay valid after later matching passes mutate the book.
func (b *Book) Orders() []*orderbookv1.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]*orderbookv1.Order, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// ApplyPlan mutates the book with the outcome of a committed matching pass:
// filled resting orders are shrunk or removed, and the taker's leftover (if
// any) is inserted as a new resting order. Callers only invoke this after
// settlement commits.
func (b *Book) ApplyPlan(plan *orderbookv1.Plan) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, fill := range plan.Resting {
		o, ok := b.orders[fill.OrderID]
		if !ok {
			return fmt.Errorf("%w: %s", ErrOrderNotInBook, fill.OrderID)
		}
		if fill.Remaining == 0 {
			if _, err := b.removeLocked(fill.OrderID); err != nil {
				return err
			}
			continue
		}
		o.Shares = fill.Remaining
	}

	if leftover := plan.Leftover(); leftover != nil {
		return b.addLocked(leftover)
	}
	return nil
}

// Rebuild resets the book from persisted open orders.
func (b *Book) Rebuild(orders []*orderbookv1.Order) error {
	b.mu.Lock()
	b.bids = make(map[string]*Level)
	b.asks = make(map[string]*Level)
	b.orders = make(map[uuid.UUID]*orderbookv1.Order)
	b.mu.Unlock()

	for _, o := range orders {
		if err := b.Add(o); err != nil {
			return fmt.Errorf("failed to restore order %s: %w", o.ID, err)
		}
	}
	return nil
}
