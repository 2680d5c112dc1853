package marketv1

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Stock is a tradable instrument. Shares is the fixed total issued at creation;
// trading never changes it. RecentPrice is the price of the last executed trade
// and is written only by settlement.
type Stock struct {
	Ticker      Ticker          `json:"ticker"`
	Shares      int64           `json:"shares"`
	RecentPrice decimal.Decimal `json:"recentPrice"`
	Frozen      bool            `json:"frozen"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StockRepository owns the stocks table.
type StockRepository interface {
	// GetByTicker returns the stock, or (nil, nil) when the ticker is unknown.
	GetByTicker(ctx context.Context, ticker Ticker) (*Stock, error)
	// List returns a page of stocks ordered by ticker, plus the total count.
	List(ctx context.Context, page Pager) ([]*Stock, int64, error)
	// Create issues a new stock with its full share count.
	Create(ctx context.Context, stock *Stock) error
	// SetRecentPrice records the price of the latest executed trade.
	SetRecentPrice(ctx context.Context, ticker Ticker, price decimal.Decimal) error
	// SetFrozen halts or resumes trading on the ticker.
	SetFrozen(ctx context.Context, ticker Ticker, frozen bool) error
}
