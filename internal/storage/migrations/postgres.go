package migrations

import (
	"context"

	"hypeflow/internal/storage/postgres"
)

// RunPostgresMigrations creates the archive schema.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	return pool.ApplyMigrations(ctx, PostgresFS, "postgres")
}
