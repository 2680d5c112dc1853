package eventv1

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
)

// StockEvent is an immutable record of one executed trade. Events are written
// exactly once by settlement and never mutated; holdings and balances are
// reconstructible by replaying them.
type StockEvent struct {
	ID uuid.UUID `json:"id"`
	// Sequence is assigned by the log on append and strictly increases in
	// emission order, so trades from one matching pass keep their order even
	// when their timestamps collide.
	Sequence int64           `json:"sequence"`
	Time     time.Time       `json:"time"`
	Seller   uuid.UUID       `json:"seller"`
	Buyer    uuid.UUID       `json:"buyer"`
	Ticker   marketv1.Ticker `json:"ticker"`
	Price    decimal.Decimal `json:"price"`
	Shares   int64           `json:"shares"`
}

// EventRepository is the append-only stock event log.
type EventRepository interface {
	// Append records one executed trade and fills in its log sequence.
	// There is no update or delete.
	Append(ctx context.Context, event *StockEvent) error

	// RecentByTicker returns up to limit events for a ticker, newest first
	// by log sequence.
	RecentByTicker(ctx context.Context, ticker marketv1.Ticker, limit int) ([]*StockEvent, error)
}
