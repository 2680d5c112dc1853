package config

import (
	"fmt"
	"time"

	"github.com/Laincy/reconnected-se/pkg/postgresql"
	"github.com/Laincy/reconnected-se/pkg/redis"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	App       AppConfig         `envPrefix:"APP_"`
	Postgres  postgresql.Config `envPrefix:"POSTGRES_"`
	Redis     redis.Config      `envPrefix:"REDIS_"`
	TradeFeed TradeFeedConfig   `envPrefix:"TRADE_FEED_"`
	Engine    EngineConfig      `envPrefix:"ENGINE_"`
}

// AppConfig represents the application configuration.
type AppConfig struct {
	Name        string `env:"NAME" envDefault:"rse"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// TradeFeedConfig configures the Kafka publisher for settled trades.
type TradeFeedConfig struct {
	Enabled bool     `env:"ENABLED" envDefault:"false"`
	Brokers []string `env:"BROKERS" envSeparator:"," envDefault:"localhost:9092"`
	Topic   string   `env:"TOPIC" envDefault:"stock-events"`
}

// EngineConfig holds tunables for matching and settlement.
type EngineConfig struct {
	// SettleMaxRetries bounds retries of a settlement transaction on
	// serialization conflicts before the order is rejected.
	SettleMaxRetries int `env:"SETTLE_MAX_RETRIES" envDefault:"5"`
	// RecentTradesCacheTTL bounds staleness of the Redis recent-trades cache.
	RecentTradesCacheTTL time.Duration `env:"RECENT_TRADES_CACHE_TTL" envDefault:"5s"`
	// RecentTradesCacheEnabled toggles the Redis read-through cache.
	RecentTradesCacheEnabled bool `env:"RECENT_TRADES_CACHE_ENABLED" envDefault:"false"`
}

// Load loads the configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
