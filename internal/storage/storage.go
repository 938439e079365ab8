// Package storage provides persistent storage for the ledger indexer using SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage provides persistent storage for the ledger indexer.
type Storage struct {
	db     *sql.DB
	dbPath string
}

// Config holds storage configuration.
type Config struct {
	// DataDir is used when DSN is empty: the database file is placed at
	// <DataDir>/ledger.db. Ignored when DSN is set.
	DataDir string

	// DSN is a full SQLite data source name (e.g. "/path/to/ledger.db"
	// or ":memory:"). When set, it replaces the DataDir path and DataDir is
	// ignored; withPragmas still appends the connection pragmas, and
	// ":memory:" becomes a shared-cache in-memory database.
	DSN string
}

// Queryer is satisfied by both *sql.DB and *sql.Tx. Store operations are
// written against this abstraction so the same code runs either
// auto-committing against the pool or participating in an outer
// transaction, without a bespoke wrapper type for either case.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// New creates a new Storage instance and idempotently bootstraps its schema.
func New(cfg *Config) (*Storage, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dataDir := expandPath(cfg.DataDir)
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "ledger.db")
	}

	db, err := sql.Open("sqlite3", withPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer; the engine already serializes
	// mutations through its own lock, so a single connection is the
	// natural pool size.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{db: db, dbPath: dsn}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// withPragmas appends the journal/foreign-key pragmas every connection
// needs. Foreign keys must be enabled explicitly in SQLite or the cascade
// deletes the rollback engine relies on silently do nothing.
func withPragmas(dsn string) string {
	if dsn == ":memory:" {
		return "file::memory:?cache=shared&_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	}
	return dsn + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying database handle as a Queryer (the "Pool"
// variant of the store abstraction: each call auto-commits).
func (s *Storage) DB() *sql.DB {
	return s.db
}

// BeginTx opens a write transaction (the "Transaction" variant of the
// store abstraction). The caller owns Commit/Rollback.
func (s *Storage) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, nil)
}

// initSchema creates the five relations and their indexes.
func (s *Storage) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blocks (
		id TEXT PRIMARY KEY,
		height INTEGER NOT NULL UNIQUE,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_height ON blocks(height);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		block_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (block_id) REFERENCES blocks(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_block ON transactions(block_id);

	CREATE TABLE IF NOT EXISTS outputs (
		transaction_id TEXT NOT NULL,
		output_index INTEGER NOT NULL,
		address TEXT NOT NULL,
		value INTEGER NOT NULL,
		spent INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (transaction_id, output_index),
		FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_outputs_address ON outputs(address);
	CREATE INDEX IF NOT EXISTS idx_outputs_spent ON outputs(spent);

	CREATE TABLE IF NOT EXISTS inputs (
		id TEXT PRIMARY KEY,
		transaction_id TEXT NOT NULL,
		spent_transaction_id TEXT NOT NULL,
		spent_output_index INTEGER NOT NULL,
		FOREIGN KEY (transaction_id) REFERENCES transactions(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_inputs_transaction ON inputs(transaction_id);
	CREATE INDEX IF NOT EXISTS idx_inputs_spent_output ON inputs(spent_transaction_id, spent_output_index);

	CREATE TABLE IF NOT EXISTS address_balances (
		address TEXT PRIMARY KEY,
		balance INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// expandPath expands ~ to home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[1:])
	}
	return path
}
