package admission

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	errs "github.com/Laincy/reconnected-se/pkg/errors"
	"github.com/Laincy/reconnected-se/pkg/logger"
)

// Request is a raw order submission from the surrounding request layer.
type Request struct {
	UserID uuid.UUID        `json:"userID"`
	Ticker string           `json:"ticker"`
	Side   orderbookv1.Side `json:"side"`
	Price  decimal.Decimal  `json:"price"`
	Shares int64            `json:"shares"`
}

// Control validates order requests against ledger and registry state before
// they may enter a book. Nothing is reserved here; settlement re-validates
// inside its transaction.
type Control struct {
	ledger accountv1.LedgerRepository
	stocks marketv1.StockRepository
	logger logger.Interface
}

// NewControl creates a new admission Control.
func NewControl(ledger accountv1.LedgerRepository, stocks marketv1.StockRepository, log logger.Interface) *Control {
	return &Control{
		ledger: ledger,
		stocks: stocks,
		logger: log,
	}
}

// Validate runs the admission checks in order, short-circuiting on the first
// failure. On success it returns the parsed ticker.
func (c *Control) Validate(ctx context.Context, req Request) (marketv1.Ticker, error) {
	if req.Shares <= 0 {
		return "", errs.NewCoded("order shares must be positive", errs.ErrInvalidOrderParameters)
	}
	if !req.Price.IsPositive() || !marketv1.IsMoney(req.Price) {
		return "", errs.NewCoded("order price must be a positive amount with at most two decimal places", errs.ErrInvalidOrderParameters)
	}
	if req.Side != orderbookv1.SideBuy && req.Side != orderbookv1.SideSell {
		return "", errs.NewCoded("order side must be buy or sell", errs.ErrInvalidOrderParameters)
	}

	ticker, err := marketv1.ParseTicker(req.Ticker)
	if err != nil {
		return "", errs.NewCoded(err.Error(), errs.ErrInvalidOrderParameters)
	}

	stock, err := c.stocks.GetByTicker(ctx, ticker)
	if err != nil {
		return "", errs.TracerFromError(err)
	}
	if stock == nil {
		return "", errs.NewCoded("no such stock", errs.ErrStockNotFound)
	}
	if stock.Frozen {
		return "", errs.NewCoded("trading is halted for this stock", errs.ErrStockFrozen)
	}

	user, err := c.ledger.GetUser(ctx, req.UserID)
	if err != nil {
		return "", errs.TracerFromError(err)
	}
	if user == nil {
		return "", errs.NewCoded("no such user", errs.ErrUserNotFound)
	}
	if user.Frozen {
		return "", errs.NewCoded("account is frozen", errs.ErrAccountFrozen)
	}

	switch req.Side {
	case orderbookv1.SideBuy:
		cost := req.Price.Mul(decimal.NewFromInt(req.Shares))
		if user.Balance.LessThan(cost) {
			return "", errs.NewCoded("balance does not cover order cost", errs.ErrInsufficientFunds)
		}
	case orderbookv1.SideSell:
		held, err := c.ledger.GetHolding(ctx, req.UserID, ticker)
		if err != nil {
			return "", errs.TracerFromError(err)
		}
		if held < req.Shares {
			return "", errs.NewCoded("holding does not cover offered shares", errs.ErrInsufficientShares)
		}
	}

	return ticker, nil
}
