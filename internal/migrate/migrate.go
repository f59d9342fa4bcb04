// Package migrate applies the embedded goose migrations for the PostgreSQL
// document store and PIN limiter.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/and161185/seedvault/migrations"
)

// Up runs all pending migrations and logs the resulting schema version.
func Up(ctx context.Context, dsn string, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	return up(ctx, db, log)
}

func up(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", zap.String("source", r.Source.Path), zap.Duration("dur", r.Duration))
	}
	ver, err := p.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	log.Info("schema ready", zap.Int64("version", ver))
	return nil
}
