package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema for the given dialect. logger may be nil.
func Migrate(ctx context.Context, db *sql.DB, d Dialect, logger *log.Logger) error {
	goose.SetBaseFS(migrationFS)
	if logger != nil {
		goose.SetLogger(logger)
	}
	if err := goose.SetDialect(d.gooseName()); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
