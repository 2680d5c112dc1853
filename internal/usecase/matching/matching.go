package matching

import (
	"github.com/Laincy/reconnected-se/internal/usecase/orderbook"

	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
)

// BuildPlan computes the trades an admitted order generates against the
// opposite side of its ticker's book, without mutating anything. Resting
// orders are consumed in price-time priority and every trade executes at the
// resting (maker) order's price. The returned plan is handed to settlement as
// one atomic batch; the book itself changes only after the batch commits.
func BuildPlan(book *orderbook.Book, taker *orderbookv1.Order) *orderbookv1.Plan {
	plan := &orderbookv1.Plan{
		Taker:     taker,
		Remaining: taker.Shares,
	}

	for _, level := range book.Levels(taker.Side.Opposite()) {
		if plan.Remaining <= 0 || !taker.Crosses(level.Price) {
			break
		}

		for _, resting := range level.Orders() {
			if plan.Remaining <= 0 {
				break
			}

			fill := min(plan.Remaining, resting.Shares)

			trade := orderbookv1.Trade{
				Ticker: taker.Ticker,
				Price:  resting.Price,
				Shares: fill,
			}
			if taker.IsBuy() {
				trade.Buyer = taker.UserID
				trade.BuyOrderID = taker.ID
				trade.Seller = resting.UserID
				trade.SellOrderID = resting.ID
			} else {
				trade.Seller = taker.UserID
				trade.SellOrderID = taker.ID
				trade.Buyer = resting.UserID
				trade.BuyOrderID = resting.ID
			}

			plan.Trades = append(plan.Trades, trade)
			plan.Resting = append(plan.Resting, orderbookv1.RestingFill{
				OrderID:   resting.ID,
				Filled:    fill,
				Remaining: resting.Shares - fill,
			})
			plan.Remaining -= fill
		}
	}

	return plan
}
