// Package sqlite implements the repository interfaces on an embedded
// SQLite database (modernc.org/sqlite, pure Go, no cgo).
package sqlite

import (
	"database/sql"
	"fmt"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB pool and provides the repository methods.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath (use ":memory:" in tests), applies
// the connection pragmas, and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// An in-memory database exists per connection; a second pooled
	// connection would see an empty schema.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight; foreign
	// keys are off by default in SQLite and must be enabled per
	// connection.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it
// idempotent, so it is safe on every startup.
//
// The UNIQUE index on (owner_id, page_id, start_offset, end_offset)
// enforces the dedup invariant at the store: two records with the same
// signature for the same owner collapse to one, no matter which sync
// path tried to insert the second.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS highlights (
			id             TEXT PRIMARY KEY,
			owner_id       TEXT NOT NULL,
			page_id        TEXT NOT NULL,
			text           TEXT NOT NULL,
			start_offset   INTEGER NOT NULL,
			end_offset     INTEGER NOT NULL,
			color          TEXT NOT NULL DEFAULT 'yellow',
			prefix_context TEXT NOT NULL DEFAULT '',
			suffix_context TEXT NOT NULL DEFAULT '',
			created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_highlights_owner ON highlights(owner_id);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_highlights_signature
			ON highlights(owner_id, page_id, start_offset, end_offset);
	`)
	if err != nil {
		return fmt.Errorf("creating highlights table: %w", err)
	}

	return nil
}
