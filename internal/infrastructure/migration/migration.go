package migration

import (
	"context"
	"embed"
	"log/slog"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

// RunMigrations applies every pending migration on startup.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Starting database migrations")

	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	before, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		logger.Error("Migration failed", "step", "read version", "error", err)
		return err
	}
	if err := goose.UpContext(ctx, db, "sql"); err != nil {
		logger.Error("Migration failed", "error", err)
		return err
	}
	after, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return err
	}

	logger.Info("All migrations completed successfully", "from_version", before, "to_version", after)
	return nil
}
