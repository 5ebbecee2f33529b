package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/digital-twin-ingestor/internal/config"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const connectTimeout = 15 * time.Second

// Connect opens the ingestor's single Postgres connection and verifies it.
// The pool is pinned to one connection that never expires; statements run
// in auto-commit mode.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
	}
	Pin(db)
	return db, nil
}

// Pin restricts db to exactly one long-lived connection.
func Pin(db *sqlx.DB) {
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)
}
