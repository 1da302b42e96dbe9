package migrations

import (
	"context"
	"fmt"

	"backtest-lab/internal/storage/postgres"
)

// RunPostgresMigrations creates the run, trade and fill tables.
// Every file uses IF NOT EXISTS, so it is safe on an existing schema.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
