package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time interface check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a persistent Store backed by SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path and
// initialises the schema. Use ":memory:" for an in-memory SQLite database.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("resman/store: open sqlite: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS resman_kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("resman/store: create table: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Get returns the stored value unless it has expired.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM resman_kv WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resman/store: get: %w", err)
	}
	if expiresAt > 0 && expiresAt <= s.now().UnixMilli() {
		return "", false, nil
	}
	return value, true, nil
}

// Set stores a value with an optional TTL.
func (s *SQLiteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO resman_kv (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, s.expiry(ttl),
	)
	if err != nil {
		return fmt.Errorf("resman/store: set: %w", err)
	}
	return nil
}

// SetMulti stores several values inside one transaction.
func (s *SQLiteStore) SetMulti(ctx context.Context, entries map[string]string, ttl time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resman/store: begin: %w", err)
	}
	defer tx.Rollback()

	expiresAt := s.expiry(ttl)
	for key, value := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO resman_kv (key, value, expires_at) VALUES (?, ?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
			key, value, expiresAt,
		); err != nil {
			return fmt.Errorf("resman/store: set multi: %w", err)
		}
	}
	return tx.Commit()
}

// Keys lists unexpired keys with the given prefix.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM resman_kv
		 WHERE key >= ? AND key < ? AND (expires_at = 0 OR expires_at > ?)`,
		prefix, prefix+"\xff", s.now().UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("resman/store: keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("resman/store: scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Del removes a key.
func (s *SQLiteStore) Del(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM resman_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("resman/store: del: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) expiry(ttl time.Duration) int64 {
	if ttl <= 0 {
		return 0
	}
	return s.now().Add(ttl).UnixMilli()
}
