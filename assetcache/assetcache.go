// Package assetcache persists a url->local-path mapping so repeated
// exports of the same channel can reuse previously downloaded assets
// instead of re-fetching them.
package assetcache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS assets (
    url        TEXT PRIMARY KEY,
    local_path TEXT NOT NULL,
    size_bytes INTEGER NOT NULL DEFAULT 0,
    cached_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store persists the url->path cache in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the asset cache database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("assetcache: create dir: %w", err)
	}
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("assetcache: open: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("assetcache: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Lookup returns the cached local path for url, if one is recorded.
func (s *Store) Lookup(ctx context.Context, url string) (string, bool) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT local_path FROM assets WHERE url = ?`, url).Scan(&path)
	if err != nil {
		return "", false
	}
	return path, true
}

// Record stores the local path an asset was downloaded to for later reuse.
// Re-recording the same url overwrites its entry.
func (s *Store) Record(ctx context.Context, url, localPath string, sizeBytes int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (url, local_path, size_bytes) VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET local_path = excluded.local_path, size_bytes = excluded.size_bytes
	`, url, localPath, sizeBytes)
	if err != nil {
		return fmt.Errorf("assetcache: record %s: %w", url, err)
	}
	return nil
}
