package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Store persists the translation table into a single SQLite table.
type Store struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS translation_cache (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// New creates a Store with the given database path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db}, nil
}

// Load reads every persisted entry.
func (s *Store) Load(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM translation_cache`)
	if err != nil {
		return nil, fmt.Errorf("cache load: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("cache scan: %w", err)
		}
		entries[k] = v
	}
	return entries, rows.Err()
}

// Save replaces the persisted table with entries in one transaction.
func (s *Store) Save(ctx context.Context, entries map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM translation_cache`); err != nil {
		return fmt.Errorf("cache save: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO translation_cache (key, value) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	defer stmt.Close()

	for k, v := range entries {
		if _, err := stmt.ExecContext(ctx, k, v); err != nil {
			return fmt.Errorf("cache put: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	return nil
}

// Count returns the number of persisted entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translation_cache`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
