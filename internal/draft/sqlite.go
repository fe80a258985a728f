package draft

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultSlot matches the draft key the original web client used in
// localStorage, so the slot name survives the storage migration.
const DefaultSlot = "chat_draft"

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	slot string
}

// NewSQLite creates a SQLite-backed draft store at dbPath.
func NewSQLite(dbPath string) (Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps the frequent write-through saves from blocking reads.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, slot: DefaultSlot}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS drafts (
		slot TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Save overwrites the slot with data. A write that loses the lock race is
// retried once; the busy_timeout in the DSN covers the usual case.
func (s *SQLiteStore) Save(ctx context.Context, data []byte) error {
	query := `
	INSERT INTO drafts (slot, payload, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(slot) DO UPDATE SET
		payload = excluded.payload,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, s.slot, data, time.Now().Unix())
	if isSQLiteConflict(err) {
		_, err = s.db.ExecContext(ctx, query, s.slot, data, time.Now().Unix())
	}
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// isSQLiteConflict reports whether err is a SQLITE_BUSY or "database is
// locked" concurrency error, the two shapes modernc.org/sqlite surfaces them
// in.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Load returns the stored snapshot, or (nil, nil) when the slot is empty.
func (s *SQLiteStore) Load(ctx context.Context) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM drafts WHERE slot = ?`, s.slot)

	var payload []byte
	err := row.Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan draft row: %w", err)
	}
	return payload, nil
}

// Clear removes the slot contents.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE slot = ?`, s.slot); err != nil {
		return fmt.Errorf("clear draft: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
