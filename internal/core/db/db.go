// Package db owns the SQLite connection and schema migrations backing
// the persistence layer.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"chainwatch/internal/config"
	"chainwatch/internal/logger"
)

// DB wraps a SQLite connection pool.
type DB struct {
	conn *sql.DB
	cfg  config.PersistenceConfig
	log  logger.Logger
}

// New opens the SQLite database named by cfg.DSN and verifies the
// connection.
func New(cfg config.PersistenceConfig, log logger.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("connected to database", logger.String("dsn", cfg.DSN))
	return &DB{conn: conn, cfg: cfg, log: log}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// Conn returns the underlying *sql.DB.
func (db *DB) Conn() *sql.DB { return db.conn }

// ExecuteQueryContext runs a query and returns its rows.
func (db *DB) ExecuteQueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.conn.QueryContext(ctx, query, args...)
}

// ExecuteStatementContext runs a statement and returns its result.
func (db *DB) ExecuteStatementContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}
