package bootstrap

import (
	"github.com/Laincy/reconnected-se/internal/usecase/admission"
	"github.com/Laincy/reconnected-se/internal/usecase/exchange"
	"github.com/Laincy/reconnected-se/internal/usecase/registry"
	"github.com/Laincy/reconnected-se/internal/usecase/settlement"
	"github.com/Laincy/reconnected-se/internal/usecase/tradefeed"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

// Usecase groups the wired usecases.
type Usecase struct {
	Exchange *exchange.Exchange
	Registry *registry.Service
	Feed     tradefeed.Publisher
}

func (b *Bootstrap) registerUsecase() {
	runner := postgresql.NewSerializableRunner(b.DB)

	settler := settlement.NewSettler(
		runner,
		b.Repository.Ledger,
		b.Repository.Stocks,
		b.Repository.Orders,
		b.Repository.Events,
		b.Logger,
		b.Config.Engine.SettleMaxRetries,
	)

	adm := admission.NewControl(b.Repository.Ledger, b.Repository.Stocks, b.Logger)

	var feed tradefeed.Publisher = tradefeed.NopPublisher{}
	if b.Config.TradeFeed.Enabled {
		feed = tradefeed.NewKafkaPublisher(b.Config.TradeFeed, b.Logger)
	}

	b.Usecase = Usecase{
		Exchange: exchange.New(
			adm,
			settler,
			b.Repository.Ledger,
			b.Repository.Stocks,
			b.Repository.Orders,
			b.Repository.Events,
			feed,
			b.Cache,
			exchange.CacheConfig{
				Enabled: b.Config.Engine.RecentTradesCacheEnabled,
				TTL:     b.Config.Engine.RecentTradesCacheTTL,
			},
			b.Logger,
		),
		Registry: registry.NewService(runner, b.Repository.Ledger, b.Repository.Stocks, b.Logger),
		Feed:     feed,
	}
}
