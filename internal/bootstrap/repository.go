package bootstrap

import (
	accountv1 "github.com/Laincy/reconnected-se/internal/domain/account/v1"
	eventv1 "github.com/Laincy/reconnected-se/internal/domain/event/v1"
	marketv1 "github.com/Laincy/reconnected-se/internal/domain/market/v1"
	orderbookv1 "github.com/Laincy/reconnected-se/internal/domain/orderbook/v1"
	"github.com/Laincy/reconnected-se/internal/infrastructure/postgresql/account"
	"github.com/Laincy/reconnected-se/internal/infrastructure/postgresql/order"
	"github.com/Laincy/reconnected-se/internal/infrastructure/postgresql/stock"
	"github.com/Laincy/reconnected-se/internal/infrastructure/postgresql/stockevent"
)

// Repository groups the Postgres repositories.
type Repository struct {
	Ledger accountv1.LedgerRepository
	Stocks marketv1.StockRepository
	Orders orderbookv1.OrderRepository
	Events eventv1.EventRepository
}

func (b *Bootstrap) registerRepository() {
	b.Repository = Repository{
		Ledger: account.NewRepository(b.DB, b.Logger),
		Stocks: stock.NewRepository(b.DB, b.Logger),
		Orders: order.NewRepository(b.DB, b.Logger),
		Events: stockevent.NewRepository(b.DB, b.Logger),
	}
}
