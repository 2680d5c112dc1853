package orderbookv1

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
)

// Side represents which side of the book an order sits on.
type Side string

const (
	// SideBuy is a bid.
	SideBuy Side = "buy"
	// SideSell is an ask.
	SideSell Side = "sell"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Order is an open (resting or in-flight) limit order. Shares is the remaining
// unfilled quantity and stays positive while the order is open; Sequence is the
// global creation sequence used for time priority.
type Order struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"userID"`
	Ticker    marketv1.Ticker `json:"ticker"`
	Side      Side            `json:"side"`
	Price     decimal.Decimal `json:"price"`
	Shares    int64           `json:"shares"`
	Sequence  int64           `json:"sequence"`
	CreatedAt time.Time       `json:"createdAt"`
}

// IsBuy reports whether the order is a bid.
func (o *Order) IsBuy() bool {
	return o.Side == SideBuy
}

// IsSell reports whether the order is an ask.
func (o *Order) IsSell() bool {
	return o.Side == SideSell
}

// Crosses reports whether a resting order at restingPrice is marketable
// against this order's limit.
func (o *Order) Crosses(restingPrice decimal.Decimal) bool {
	if o.IsBuy() {
		return restingPrice.LessThanOrEqual(o.Price)
	}
	return restingPrice.GreaterThanOrEqual(o.Price)
}

// Clone returns a copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
