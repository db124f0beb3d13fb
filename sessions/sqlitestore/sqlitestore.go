// Package sqlitestore keeps the session record in a two-row key-value table.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrsteele09/go-portal-client/sessions"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver, registers "sqlite"
)

var _ sessions.Store = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS session_store (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

type Store struct {
	db *sql.DB
}

// Open creates the database file and its directory if needed.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("[sqlitestore.Open] path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (sessions.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM session_store`)
	if err != nil {
		return sessions.Record{}, fmt.Errorf("failed to load session: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string, 2)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return sessions.Record{}, fmt.Errorf("failed to scan session row: %w", err)
		}
		entries[key] = value
	}
	if err := rows.Err(); err != nil {
		return sessions.Record{}, fmt.Errorf("failed to iterate session rows: %w", err)
	}
	return sessions.RecordFromEntries(entries), nil
}

// Save replaces both rows inside one transaction.
func (s *Store) Save(ctx context.Context, record sessions.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin session write: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_store`); err != nil {
		return fmt.Errorf("failed to clear session rows: %w", err)
	}
	for key, value := range record.Entries() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO session_store (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("failed to write session key %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session write: %w", err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_store`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
