// Package postgres provides a pgvector-backed vector store for docharvest.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DB represents a PostgreSQL connection pool.
type DB struct {
	db  *sql.DB
	dsn string
}

// NewDB creates a new DB for the given connection string.
func NewDB(dsn string) *DB {
	return &DB{dsn: dsn}
}

// Open connects to the database and creates the shared schema.
func (db *DB) Open(ctx context.Context) error {
	conn, err := sql.Open("pgx", db.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)
	conn.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	db.db = conn

	if err := db.createSchema(ctx); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

func (db *DB) createSchema(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, `
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS docharvest_indexes (
			name TEXT PRIMARY KEY,
			dimension INTEGER NOT NULL,
			metric TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`)
	return err
}
