package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laincy/reconnected-se/internal/bootstrap"
	"github.com/Laincy/reconnected-se/pkg/config"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/migration"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
	"github.com/Laincy/reconnected-se/pkg/redis"
)

var cfg *config.Config
var log *logger.Logger

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		panic(err)
	}

	log, err = logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "connect_postgres"})
		return
	}
	defer db.Close()

	runner := migration.NewRunner(db, log, migration.Config{MigrationDir: "migrations"})
	if err := runner.EnsureMigrationTable(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "ensure_migration_table"})
		return
	}
	if err := runner.MigrateUp(ctx, 0); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "migrate_up"})
		return
	}

	var cache redis.Client
	if cfg.Engine.RecentTradesCacheEnabled {
		cache = redis.NewClient(log, &cfg.Redis)
		if err := cache.Connect(ctx); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "connect_redis"})
			return
		}
		defer cache.Close()
	}

	b := (&bootstrap.Bootstrap{}).Init(bootstrap.BootstrapConfig{
		Config: cfg,
		Logger: log,
		DB:     db,
		Cache:  cache,
	})

	if err := b.Usecase.Exchange.Load(ctx); err != nil {
		log.Error(err, logger.Field{Key: "action", Value: "load_order_books"})
		return
	}
	defer func() {
		if err := b.Usecase.Feed.Close(); err != nil {
			log.Error(err, logger.Field{Key: "action", Value: "close_trade_feed"})
		}
	}()

	log.Info("exchange started",
		logger.Field{Key: "database", Value: db.DatabaseName()},
		logger.Field{Key: "tradeFeed", Value: cfg.TradeFeed.Enabled},
	)

	sig := <-sigChan
	log.Info("received shutdown signal", logger.Field{Key: "signal", Value: sig.String()})

	cancel()
	_ = log.Sync()
}
