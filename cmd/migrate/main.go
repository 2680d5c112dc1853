package main

import (
	"context"
	"flag"
	stdlog "log"

	"github.com/Laincy/reconnected-se/pkg/config"
	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/migration"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "migrations", "Directory holding the migration files")
	)
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	log, err := logger.NewLogger(logger.WithLoggingLevel(logger.Level(cfg.App.LogLevel)))
	if err != nil {
		stdlog.Fatalf("Failed to create logger: %v", err)
	}

	db, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		stdlog.Fatalf("Failed to connect to postgres: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner(db, log, migration.Config{MigrationDir: *dir})

	if err := runner.EnsureMigrationTable(ctx); err != nil {
		stdlog.Fatalf("Failed to create migration table: %v", err)
	}

	switch *direction {
	case "up":
		if err := runner.MigrateUp(ctx, *steps); err != nil {
			stdlog.Fatalf("Failed to migrate up: %v", err)
		}
	case "down":
		if err := runner.MigrateDown(ctx, *steps); err != nil {
			stdlog.Fatalf("Failed to migrate down: %v", err)
		}
	default:
		stdlog.Fatalf("Invalid direction: %s. Use 'up' or 'down'", *direction)
	}

	stdlog.Printf("Migration %s completed successfully", *direction)
}
