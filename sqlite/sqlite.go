// Package sqlite provides a SQLite-backed vector store for docharvest.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fwojciec/docharvest"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// migrations are applied in order; PRAGMA user_version records how many
// have run against a database file.
var migrations = []string{
	`CREATE TABLE indexes (
		name TEXT PRIMARY KEY,
		dimension INTEGER NOT NULL,
		metric TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE TABLE vectors (
		index_name TEXT NOT NULL REFERENCES indexes(name) ON DELETE CASCADE,
		id TEXT NOT NULL,
		embedding BLOB NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		updated_at TEXT NOT NULL,
		PRIMARY KEY (index_name, id)
	);`,
	`CREATE INDEX idx_vectors_source ON vectors(index_name, json_extract(metadata, '$.source'));`,
}

// DB is a SQLite database holding vector indexes.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB returns a DB for the file at path. ":memory:" opens a private
// in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open connects to the database and brings its schema up to date.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return docharvest.WrapError(docharvest.ESTORAGE, err, "opening %s", db.path)
	}
	// One connection: SQLite allows a single writer, and an in-memory
	// database exists per connection.
	conn.SetMaxOpenConns(1)

	pragmas := []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"}
	if db.path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return docharvest.WrapError(docharvest.ESTORAGE, err, "opening %s: %s", db.path, p)
		}
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return err
	}
	db.db = conn
	return nil
}

func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return docharvest.WrapError(docharvest.ESTORAGE, err, "reading schema version")
	}
	for i := version; i < len(migrations); i++ {
		tx, err := conn.Begin()
		if err != nil {
			return docharvest.WrapError(docharvest.ESTORAGE, err, "migrating schema")
		}
		if _, err := tx.Exec(migrations[i]); err != nil {
			tx.Rollback()
			return docharvest.WrapError(docharvest.ESTORAGE, err, "applying migration %d", i+1)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return docharvest.WrapError(docharvest.ESTORAGE, err, "recording migration %d", i+1)
		}
		if err := tx.Commit(); err != nil {
			return docharvest.WrapError(docharvest.ESTORAGE, err, "committing migration %d", i+1)
		}
	}
	return nil
}

// SchemaVersion returns the number of applied migrations.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v)
	return v, err
}

// Close closes the database.
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}
	return db.db.Close()
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}
