package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bharathbs2003/cinehack/api/internal/config"

	_ "github.com/lib/pq"
)

// DB wraps the API's Postgres connection pool.
type DB struct {
	*sql.DB
}

// New opens and verifies the Postgres connection described by cfg. The pool
// is sized for request-scoped queries; long work happens in the worker.
func New(cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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
