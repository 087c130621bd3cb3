package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	_ Store[any] = (*SQLiteStore[any])(nil)
	_ Taker[any] = (*SQLiteStore[any])(nil)
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv_store (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NULL
);
CREATE INDEX IF NOT EXISTS kv_store_expires_at ON kv_store (expires_at);`

// SQLiteStore keeps JSON encoded values in a single SQLite table. Expired
// rows are deleted before every operation and filtered out of every read.
type SQLiteStore[V any] struct {
	sqlDB     *sql.DB
	now       func() time.Time
	observers Observers[V]
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption[V any] func(*SQLiteStore[V])

// WithSQLiteClock replaces time.Now (primarily for testing).
func WithSQLiteClock[V any](now func() time.Time) SQLiteOption[V] {
	return func(s *SQLiteStore[V]) {
		s.now = now
	}
}

// WithSQLiteObservers registers mutation callbacks.
func WithSQLiteObservers[V any](observers Observers[V]) SQLiteOption[V] {
	return func(s *SQLiteStore[V]) {
		s.observers = observers
	}
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore[V any](path string, options ...SQLiteOption[V]) (*SQLiteStore[V], error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", ErrBackend)
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite db: %v", ErrBackend, err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: ping sqlite db: %v", ErrBackend, err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%w: create schema: %v", ErrBackend, err)
	}

	s := &SQLiteStore[V]{
		sqlDB: sqlDB,
		now:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore[V]) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get returns the live value stored under key.
func (s *SQLiteStore[V]) Get(ctx context.Context, key Key) (V, bool, error) {
	var zero V
	if err := checkKey(key); err != nil {
		return zero, false, err
	}
	now, err := s.sweep(ctx)
	if err != nil {
		return zero, false, err
	}

	var data []byte
	err = s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM kv_store WHERE key = ? AND (expires_at IS NULL OR expires_at > ?)`,
		key.String(), now,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("%w: select: %v", ErrBackend, err)
	}
	return s.decode(data)
}

// Set upserts value under key with a fresh expiry.
func (s *SQLiteStore[V]) Set(ctx context.Context, key Key, value V, ttl time.Duration) error {
	if err := checkKey(key); err != nil {
		return err
	}
	now, err := s.sweep(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: encode value: %v", ErrBackend, err)
	}

	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: now + ttl.Milliseconds(), Valid: true}
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key.String(), data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrBackend, err)
	}
	return s.observers.set(ctx, key, value)
}

// Delete removes key if present.
func (s *SQLiteStore[V]) Delete(ctx context.Context, key Key) error {
	_, _, err := s.Take(ctx, key)
	return err
}

// Take deletes the row and returns its value in a single statement.
func (s *SQLiteStore[V]) Take(ctx context.Context, key Key) (V, bool, error) {
	var zero V
	if err := checkKey(key); err != nil {
		return zero, false, err
	}
	now, err := s.sweep(ctx)
	if err != nil {
		return zero, false, err
	}

	var data []byte
	err = s.sqlDB.QueryRowContext(ctx,
		`DELETE FROM kv_store WHERE key = ? AND (expires_at IS NULL OR expires_at > ?) RETURNING value`,
		key.String(), now,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, false, s.observers.delete(ctx, key, zero, false)
	}
	if err != nil {
		return zero, false, fmt.Errorf("%w: delete: %v", ErrBackend, err)
	}
	previous, _, err := s.decode(data)
	if err != nil {
		return zero, false, err
	}
	if err := s.observers.delete(ctx, key, previous, true); err != nil {
		return previous, true, err
	}
	return previous, true, nil
}

// IsEmpty reports whether no live rows remain.
func (s *SQLiteStore[V]) IsEmpty(ctx context.Context) (bool, error) {
	if _, err := s.sweep(ctx); err != nil {
		return false, err
	}
	var count int64
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_store`).Scan(&count); err != nil {
		return false, fmt.Errorf("%w: count: %v", ErrBackend, err)
	}
	return count == 0, nil
}

// sweep deletes every row whose expiry is at or before now and returns now
// in Unix milliseconds.
func (s *SQLiteStore[V]) sweep(ctx context.Context) (int64, error) {
	now := s.now().UnixMilli()
	if _, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM kv_store WHERE expires_at IS NOT NULL AND expires_at <= ?`, now,
	); err != nil {
		return now, fmt.Errorf("%w: sweep: %v", ErrBackend, err)
	}
	return now, nil
}

func (s *SQLiteStore[V]) decode(data []byte) (V, bool, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return value, false, fmt.Errorf("%w: decode value: %v", ErrBackend, err)
	}
	return value, true, nil
}
