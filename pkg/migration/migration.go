package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Laincy/reconnected-se/pkg/logger"
	"github.com/Laincy/reconnected-se/pkg/postgresql"
)

// Migration represents a single database migration.
type Migration struct {
	ID      string
	Name    string
	UpSQL   string
	DownSQL string
}

// Runner handles PostgreSQL migration execution.
type Runner struct {
	client       postgresql.PostgreSQLClient
	logger       logger.Interface
	migrationDir string
	tableName    string
}

// Config for the migration runner.
type Config struct {
	MigrationDir string
	TableName    string // migration table name (default: "schema_migrations")
}

// NewRunner creates a new migration runner.
func NewRunner(client postgresql.PostgreSQLClient, log logger.Interface, config Config) *Runner {
	if config.TableName == "" {
		config.TableName = "schema_migrations"
	}

	return &Runner{
		client:       client,
		logger:       log,
		migrationDir: config.MigrationDir,
		tableName:    config.TableName,
	}
}

// EnsureMigrationTable creates the tracking table if it doesn't exist.
func (r *Runner) EnsureMigrationTable(ctx context.Context) error {
	createTableSQL := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		);
	`, r.tableName)

	_, err := r.client.Exec(ctx, createTableSQL)
	return err
}

// AppliedMigrations returns the set of applied migration IDs.
func (r *Runner) AppliedMigrations(ctx context.Context) (map[string]bool, error) {
	applied := make(map[string]bool)

	rows, err := r.client.Query(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY applied_at", r.tableName))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}

	return applied, rows.Err()
}

// LoadMigrations loads all migration files from the migration directory.
// Files pair up as <id>.up.sql / <id>.down.sql and apply in lexical order.
func (r *Runner) LoadMigrations() ([]Migration, error) {
	upFiles, err := filepath.Glob(filepath.Join(r.migrationDir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(upFiles)

	var migrations []Migration
	for _, upFile := range upFiles {
		upContent, err := os.ReadFile(upFile)
		if err != nil {
			return nil, err
		}

		id := strings.TrimSuffix(filepath.Base(upFile), ".up.sql")
		name := id
		if parts := strings.SplitN(id, "_", 2); len(parts) == 2 {
			name = parts[1]
		}

		var downSQL string
		downFile := strings.Replace(upFile, ".up.sql", ".down.sql", 1)
		if downContent, err := os.ReadFile(downFile); err == nil {
			downSQL = strings.TrimSpace(string(downContent))
		}

		migrations = append(migrations, Migration{
			ID:      id,
			Name:    name,
			UpSQL:   strings.TrimSpace(string(upContent)),
			DownSQL: downSQL,
		})
	}

	return migrations, nil
}

// MigrateUp applies pending migrations. steps == 0 applies all of them.
func (r *Runner) MigrateUp(ctx context.Context, steps int) error {
	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toApply []Migration
	for _, migration := range migrations {
		if !applied[migration.ID] {
			toApply = append(toApply, migration)
		}
	}
	if steps > 0 && len(toApply) > steps {
		toApply = toApply[:steps]
	}

	for _, migration := range toApply {
		if migration.UpSQL == "" {
			r.logger.Warn("No UP SQL found for migration", logger.Field{Key: "id", Value: migration.ID})
			continue
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, migration.UpSQL); err != nil {
				return err
			}

			recordSQL := fmt.Sprintf("INSERT INTO %s (id, name, applied_at) VALUES ($1, $2, NOW())", r.tableName)
			_, err := r.client.Exec(txCtx, recordSQL, migration.ID, migration.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.ID, err)
		}

		r.logger.Info("Applied migration", logger.Field{Key: "id", Value: migration.ID})
	}

	return nil
}

// MigrateDown reverts the most recent applied migrations.
func (r *Runner) MigrateDown(ctx context.Context, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be greater than 0 for down migrations")
	}

	migrations, err := r.LoadMigrations()
	if err != nil {
		return err
	}

	applied, err := r.AppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var toRevert []Migration
	for i := len(migrations) - 1; i >= 0; i-- {
		if applied[migrations[i].ID] {
			toRevert = append(toRevert, migrations[i])
			if len(toRevert) >= steps {
				break
			}
		}
	}

	for _, migration := range toRevert {
		if migration.DownSQL == "" {
			return fmt.Errorf("no DOWN SQL found for migration %s - cannot revert", migration.ID)
		}

		err := postgresql.WithTx(ctx, r.client, func(txCtx context.Context) error {
			if _, err := r.client.Exec(txCtx, migration.DownSQL); err != nil {
				return err
			}

			removeSQL := fmt.Sprintf("DELETE FROM %s WHERE id = $1", r.tableName)
			_, err := r.client.Exec(txCtx, removeSQL, migration.ID)
			return err
		})
		if err != nil {
			return fmt.Errorf("failed to revert migration %s: %w", migration.ID, err)
		}

		r.logger.Info("Reverted migration", logger.Field{Key: "id", Value: migration.ID})
	}

	return nil
}
