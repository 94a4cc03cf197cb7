package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bharathbs2003/cinehack/worker/internal/config"

	_ "github.com/lib/pq"
)

const (
	// Each step consumer holds at most one connection at a time, so the
	// pool stays small even with all eight consumers busy.
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DB wraps the worker's Postgres connection pool.
type DB struct {
	*sql.DB
}

// New opens and verifies the Postgres connection described by cfg.
func New(cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.DB.Close()
}
