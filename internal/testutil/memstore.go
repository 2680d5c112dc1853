// Package testutil provides in-memory implementations of the repository
// interfaces plus a transaction-runner fake with snapshot rollback, so the
// usecase layer can be tested without Postgres.
package testutil

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
)

// Store is shared in-memory state behind the repository fakes.
type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*accountv1.User
	holdings map[uuid.UUID]map[marketv1.Ticker]int64
	stocks   map[marketv1.Ticker]*marketv1.Stock
	orders   map[uuid.UUID]*orderbookv1.Order
	events   []*eventv1.StockEvent
	eventSeq int64
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		users:    map[uuid.UUID]*accountv1.User{},
		holdings: map[uuid.UUID]map[marketv1.Ticker]int64{},
		stocks:   map[marketv1.Ticker]*marketv1.Stock{},
		orders:   map[uuid.UUID]*orderbookv1.Order{},
	}
}

// Ledger returns the ledger repository view of the store.
func (s *Store) Ledger() accountv1.LedgerRepository { return &ledger{s} }

// Stocks returns the stock repository view of the store.
func (s *Store) Stocks() marketv1.StockRepository { return &stocks{s} }

// Orders returns the order repository view of the store.
func (s *Store) Orders() orderbookv1.OrderRepository { return &orders{s} }

// Events returns the event repository view of the store.
func (s *Store) Events() eventv1.EventRepository { return &events{s} }

// SeedUser adds a user with the given balance and returns its id.
func (s *Store) SeedUser(balance decimal.Decimal) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.users[id] = &accountv1.User{ID: id, Balance: balance, CreatedAt: time.Now().UTC()}
	return id
}

// SeedStock adds a stock.
func (s *Store) SeedStock(ticker marketv1.Ticker, shares int64, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks[ticker] = &marketv1.Stock{Ticker: ticker, Shares: shares, RecentPrice: price, CreatedAt: time.Now().UTC()}
}

// SeedHolding sets a user's position directly.
func (s *Store) SeedHolding(userID uuid.UUID, ticker marketv1.Ticker, shares int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.holdings[userID] == nil {
		s.holdings[userID] = map[marketv1.Ticker]int64{}
	}
	s.holdings[userID][ticker] = shares
}

// SetUserFrozen flips a seeded user's frozen flag.
func (s *Store) SetUserFrozen(userID uuid.UUID, frozen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[userID]; u != nil {
		u.Frozen = frozen
	}
}

// SetStockFrozen flips a seeded stock's frozen flag.
func (s *Store) SetStockFrozen(ticker marketv1.Ticker, frozen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.stocks[ticker]; st != nil {
		st.Frozen = frozen
	}
}

// Balance returns a user's current balance.
func (s *Store) Balance(userID uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u := s.users[userID]; u != nil {
		return u.Balance
	}
	return decimal.Zero
}

// Holding returns a user's current position.
func (s *Store) Holding(userID uuid.UUID, ticker marketv1.Ticker) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.holdings[userID][ticker]
}

// EventCount returns how many events were appended.
func (s *Store) EventCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// OpenOrderCount returns how many order rows exist.
func (s *Store) OpenOrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// Stock returns the stored stock, nil when absent.
func (s *Store) Stock(ticker marketv1.Ticker) *marketv1.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.stocks[ticker]; st != nil {
		cp := *st
		return &cp
	}
	return nil
}

// TotalHeld sums every user's position for a ticker.
func (s *Store) TotalHeld(ticker marketv1.Ticker) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total int64
	for _, positions := range s.holdings {
		total += positions[ticker]
	}
	return total
}

type snapshot struct {
	users    map[uuid.UUID]*accountv1.User
	holdings map[uuid.UUID]map[marketv1.Ticker]int64
	stocks   map[marketv1.Ticker]*marketv1.Stock
	orders   map[uuid.UUID]*orderbookv1.Order
	events   []*eventv1.StockEvent
	eventSeq int64
}

func (s *Store) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := snapshot{
		users:    make(map[uuid.UUID]*accountv1.User, len(s.users)),
		holdings: make(map[uuid.UUID]map[marketv1.Ticker]int64, len(s.holdings)),
		stocks:   make(map[marketv1.Ticker]*marketv1.Stock, len(s.stocks)),
		orders:   make(map[uuid.UUID]*orderbookv1.Order, len(s.orders)),
		events:   append([]*eventv1.StockEvent{}, s.events...),
		eventSeq: s.eventSeq,
	}
	for id, u := range s.users {
		cp := *u
		snap.users[id] = &cp
	}
	for id, positions := range s.holdings {
		cp := make(map[marketv1.Ticker]int64, len(positions))
		for t, n := range positions {
			cp[t] = n
		}
		snap.holdings[id] = cp
	}
	for t, st := range s.stocks {
		cp := *st
		snap.stocks[t] = &cp
	}
	for id, o := range s.orders {
		snap.orders[id] = o.Clone()
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = snap.users
	s.holdings = snap.holdings
	s.stocks = snap.stocks
	s.orders = snap.orders
	s.events = snap.events
	s.eventSeq = snap.eventSeq
}

// ledger implements accountv1.LedgerRepository.
type ledger struct{ s *Store }

func (l *ledger) GetUser(_ context.Context, id uuid.UUID) (*accountv1.User, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	u, ok := l.s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (l *ledger) Register(_ context.Context, discID *int64, mcID *uuid.UUID) (uuid.UUID, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, u := range l.s.users {
		if discID != nil && u.DiscordID != nil && *u.DiscordID == *discID {
			return uuid.Nil, errs.NewCoded("external identity is already linked", errs.ErrAlreadyLinked)
		}
		if mcID != nil && u.MinecraftID != nil && *u.MinecraftID == *mcID {
			return uuid.Nil, errs.NewCoded("external identity is already linked", errs.ErrAlreadyLinked)
		}
	}
	id := uuid.New()
	l.s.users[id] = &accountv1.User{
		ID:          id,
		Balance:     decimal.Zero,
		CreatedAt:   time.Now().UTC(),
		DiscordID:   discID,
		MinecraftID: mcID,
	}
	return id, nil
}

func (l *ledger) DiscordToID(_ context.Context, discID int64) (*uuid.UUID, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, u := range l.s.users {
		if u.DiscordID != nil && *u.DiscordID == discID {
			id := u.ID
			return &id, nil
		}
	}
	return nil, nil
}

func (l *ledger) MinecraftToID(_ context.Context, mcID uuid.UUID) (*uuid.UUID, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	for _, u := range l.s.users {
		if u.MinecraftID != nil && *u.MinecraftID == mcID {
			id := u.ID
			return &id, nil
		}
	}
	return nil, nil
}

func (l *ledger) Credit(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	u, ok := l.s.users[id]
	if !ok {
		return errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	u.Balance = u.Balance.Add(amount)
	return nil
}

func (l *ledger) Debit(_ context.Context, id uuid.UUID, amount decimal.Decimal) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	u, ok := l.s.users[id]
	if !ok || u.Balance.LessThan(amount) {
		return errs.NewCoded("balance cannot cover the debit", errs.ErrInsufficientFunds)
	}
	u.Balance = u.Balance.Sub(amount)
	return nil
}

func (l *ledger) GetHolding(_ context.Context, id uuid.UUID, ticker marketv1.Ticker) (int64, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	return l.s.holdings[id][ticker], nil
}

func (l *ledger) AdjustHolding(_ context.Context, id uuid.UUID, ticker marketv1.Ticker, delta int64) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	current := l.s.holdings[id][ticker]
	next := current + delta
	if next < 0 {
		return errs.NewCoded("holding cannot cover the decrement", errs.ErrInsufficientShares)
	}
	if l.s.holdings[id] == nil {
		l.s.holdings[id] = map[marketv1.Ticker]int64{}
	}
	if next == 0 {
		delete(l.s.holdings[id], ticker)
		return nil
	}
	l.s.holdings[id][ticker] = next
	return nil
}

func (l *ledger) ListHoldings(_ context.Context, id uuid.UUID, page marketv1.Pager) ([]accountv1.Holding, int64, error) {
	all, _ := l.AllHoldings(context.Background(), id)
	total := int64(len(all))
	if page.Offset >= total {
		return []accountv1.Holding{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return all[page.Offset:end], total, nil
}

func (l *ledger) AllHoldings(_ context.Context, id uuid.UUID) ([]accountv1.Holding, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	holdings := []accountv1.Holding{}
	for ticker, shares := range l.s.holdings[id] {
		holdings = append(holdings, accountv1.Holding{UserID: id, Ticker: ticker, Shares: shares})
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Ticker < holdings[j].Ticker })
	return holdings, nil
}

func (l *ledger) LockUsers(_ context.Context, ids []uuid.UUID) ([]*accountv1.User, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	users := []*accountv1.User{}
	for _, id := range ids {
		if u, ok := l.s.users[id]; ok {
			cp := *u
			users = append(users, &cp)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		return bytes.Compare(users[i].ID[:], users[j].ID[:]) < 0
	})
	return users, nil
}

func (l *ledger) SetFrozen(_ context.Context, id uuid.UUID, frozen bool) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	u, ok := l.s.users[id]
	if !ok {
		return errs.NewCoded("user not found", errs.ErrUserNotFound)
	}
	u.Frozen = frozen
	return nil
}

// stocks implements marketv1.StockRepository.
type stocks struct{ s *Store }

func (r *stocks) GetByTicker(_ context.Context, ticker marketv1.Ticker) (*marketv1.Stock, error) {
	return r.s.Stock(ticker), nil
}

func (r *stocks) List(_ context.Context, page marketv1.Pager) ([]*marketv1.Stock, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := []*marketv1.Stock{}
	for _, st := range r.s.stocks {
		cp := *st
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Ticker < all[j].Ticker })
	total := int64(len(all))
	if page.Offset >= total {
		return []*marketv1.Stock{}, total, nil
	}
	end := page.Offset + page.Limit
	if end > total {
		end = total
	}
	return all[page.Offset:end], total, nil
}

func (r *stocks) Create(_ context.Context, stock *marketv1.Stock) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stocks[stock.Ticker]; ok {
		return errs.NewCoded("ticker is already listed", errs.GeneralBadRequestError)
	}
	cp := *stock
	cp.CreatedAt = time.Now().UTC()
	r.s.stocks[stock.Ticker] = &cp
	return nil
}

func (r *stocks) SetRecentPrice(_ context.Context, ticker marketv1.Ticker, price decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stocks[ticker]
	if !ok {
		return errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}
	st.RecentPrice = price
	st.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *stocks) SetFrozen(_ context.Context, ticker marketv1.Ticker, frozen bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.stocks[ticker]
	if !ok {
		return errs.NewCoded("stock not found", errs.ErrStockNotFound)
	}
	st.Frozen = frozen
	return nil
}

// orders implements orderbookv1.OrderRepository.
type orders struct{ s *Store }

func (r *orders) Insert(_ context.Context, order *orderbookv1.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.orders[order.ID] = order.Clone()
	return nil
}

func (r *orders) UpdateShares(_ context.Context, id uuid.UUID, shares int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return errs.NewCoded("order not found", errs.ErrOrderNotFound)
	}
	o.Shares = shares
	return nil
}

func (r *orders) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orders[id]; !ok {
		return errs.NewCoded("order not found", errs.ErrOrderNotFound)
	}
	delete(r.s.orders, id)
	return nil
}

func (r *orders) GetByID(_ context.Context, id uuid.UUID) (*orderbookv1.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (r *orders) ListByTicker(_ context.Context, ticker marketv1.Ticker) ([]*orderbookv1.Order, error) {
	return r.listWhere(func(o *orderbookv1.Order) bool { return o.Ticker == ticker })
}

func (r *orders) ListByUser(_ context.Context, userID uuid.UUID) ([]*orderbookv1.Order, error) {
	return r.listWhere(func(o *orderbookv1.Order) bool { return o.UserID == userID })
}

func (r *orders) ListAll(_ context.Context) ([]*orderbookv1.Order, error) {
	return r.listWhere(func(*orderbookv1.Order) bool { return true })
}

func (r *orders) listWhere(keep func(*orderbookv1.Order) bool) ([]*orderbookv1.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*orderbookv1.Order{}
	for _, o := range r.s.orders {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *orders) MaxSequence(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for _, o := range r.s.orders {
		if o.Sequence > max {
			max = o.Sequence
		}
	}
	return max, nil
}

// events implements eventv1.EventRepository.
type events struct{ s *Store }

func (r *events) Append(_ context.Context, event *eventv1.StockEvent) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.eventSeq++
	event.Sequence = r.s.eventSeq
	cp := *event
	r.s.events = append(r.s.events, &cp)
	return nil
}

func (r *events) RecentByTicker(_ context.Context, ticker marketv1.Ticker, limit int) ([]*eventv1.StockEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*eventv1.StockEvent{}
	for i := len(r.s.events) - 1; i >= 0 && len(out) < limit; i-- {
		if r.s.events[i].Ticker == ticker {
			cp := *r.s.events[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}
