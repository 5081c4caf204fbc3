package assetcache

import (
	"context"
	"database/sql"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	if _, err := db.ExecContext(context.Background(), migrationSQL); err != nil {
		db.Close()
		t.Fatalf("run migration: %v", err)
	}
	s := &Store{db: db}
	t.Cleanup(func() { db.Close() })
	return s
}

func TestLookupMissReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Lookup(context.Background(), "https://example.com/a.png"); ok {
		t.Fatal("expected miss on empty cache")
	}
}

func TestRecordThenLookupHits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.Record(ctx, "https://example.com/a.png", "/out/a.png", 1024); err != nil {
		t.Fatalf("Record: %v", err)
	}
	path, ok := s.Lookup(ctx, "https://example.com/a.png")
	if !ok || path != "/out/a.png" {
		t.Fatalf("Lookup = (%q, %v), want (/out/a.png, true)", path, ok)
	}
}

func TestRecordOverwritesExistingEntry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	url := "https://example.com/a.png"
	if err := s.Record(ctx, url, "/out/a.png", 1024); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record(ctx, url, "/out/a-renamed.png", 2048); err != nil {
		t.Fatalf("Record: %v", err)
	}
	path, ok := s.Lookup(ctx, url)
	if !ok || path != "/out/a-renamed.png" {
		t.Fatalf("Lookup = (%q, %v), want updated path", path, ok)
	}
}
