package orderbookv1

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
)

// Trade is one fill between a resting (maker) order and the incoming (taker)
// order. Price is always the maker's limit price.
type Trade struct {
	Buyer       uuid.UUID       `json:"buyer"`
	Seller      uuid.UUID       `json:"seller"`
	BuyOrderID  uuid.UUID       `json:"buyOrderID"`
	SellOrderID uuid.UUID       `json:"sellOrderID"`
	Ticker      marketv1.Ticker `json:"ticker"`
	Price       decimal.Decimal `json:"price"`
	Shares      int64           `json:"shares"`
}

// Cost returns price * shares.
func (t *Trade) Cost() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Shares))
}

// RestingFill records how a matching pass touched one resting order.
type RestingFill struct {
	OrderID   uuid.UUID
	Filled    int64
	Remaining int64
}

// Plan is the outcome of one matching pass for an incoming order: the trades
// to settle in emission order, the per-resting-order mutations, and the
// taker's unfilled remainder. A plan commits atomically or not at all.
type Plan struct {
	Taker     *Order
	Trades    []Trade
	Resting   []RestingFill
	Remaining int64
}

// Leftover returns the taker order reduced to its unfilled remainder, or nil
// when the taker filled completely.
func (p *Plan) Leftover() *Order {
	if p.Remaining <= 0 {
		return nil
	}
	left := p.Taker.Clone()
	left.Shares = p.Remaining
	return left
}
