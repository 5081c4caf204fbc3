package logstore

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"
)

// newTestStore opens an in-memory SQLite logstore for testing.
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

func TestWriteAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.write(ctx, time.Now(), "INFO", "hello world", "run1", "srv1", "chan1", "")

	rows, total, err := s.List(ctx, "srv1", "", 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected total=1, got %d", total)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Msg != "hello world" {
		t.Errorf("expected msg %q, got %q", "hello world", rows[0].Msg)
	}
	if rows[0].Level != "INFO" {
		t.Errorf("expected level %q, got %q", "INFO", rows[0].Level)
	}
	if rows[0].GuildID != "srv1" {
		t.Errorf("expected guild_id %q, got %q", "srv1", rows[0].GuildID)
	}
	if rows[0].ChannelID != "chan1" {
		t.Errorf("expected channel_id %q, got %q", "chan1", rows[0].ChannelID)
	}
	if rows[0].RunID != "run1" {
		t.Errorf("expected run_id %q, got %q", "run1", rows[0].RunID)
	}
}

func TestListFiltersByGuildID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.write(ctx, time.Now(), "INFO", "msg for srv1", "run1", "srv1", "", "")
	s.write(ctx, time.Now(), "INFO", "msg for srv2", "run2", "srv2", "", "")

	rowsSrv1, total1, err := s.List(ctx, "srv1", "", 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total1 != 1 {
		t.Errorf("expected 1 row for srv1, got %d", total1)
	}
	for _, r := range rowsSrv1 {
		if r.GuildID != "srv1" {
			t.Errorf("got row with unexpected guild_id %q", r.GuildID)
		}
	}

	rowsSrv2, total2, err := s.List(ctx, "srv2", "", 10, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if total2 != 1 {
		t.Errorf("expected 1 row for srv2, got %d", total2)
	}
	for _, r := range rowsSrv2 {
		if r.GuildID != "srv2" {
			t.Errorf("got row with unexpected guild_id %q", r.GuildID)
		}
	}
}

func TestListFiltersByLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.write(ctx, time.Now(), "DEBUG", "debug msg", "run1", "srv1", "", "")
	s.write(ctx, time.Now(), "INFO", "info msg", "run1", "srv1", "", "")
	s.write(ctx, time.Now(), "WARN", "warn msg", "run1", "srv1", "", "")
	s.write(ctx, time.Now(), "ERROR", "error msg", "run1", "srv1", "", "")

	// "warn" level should return WARN and ERROR only
	rows, total, err := s.List(ctx, "srv1", "warn", 10, 0)
	if err != nil {
		t.Fatalf("List(level=warn) error: %v", err)
	}
	if total != 2 {
		t.Errorf("expected 2 rows for level>=warn, got %d", total)
	}
	for _, r := range rows {
		if r.Level != "WARN" && r.Level != "ERROR" {
			t.Errorf("unexpected level %q in warn-filtered results", r.Level)
		}
	}

	// "error" level should return ERROR only
	rows, total, err = s.List(ctx, "srv1", "error", 10, 0)
	if err != nil {
		t.Fatalf("List(level=error) error: %v", err)
	}
	if total != 1 {
		t.Errorf("expected 1 row for level>=error, got %d", total)
	}
	if len(rows) > 0 && rows[0].Level != "ERROR" {
		t.Errorf("expected ERROR level, got %q", rows[0].Level)
	}

	// "debug" level should return all 4
	rows, total, err = s.List(ctx, "srv1", "debug", 10, 0)
	if err != nil {
		t.Fatalf("List(level=debug) error: %v", err)
	}
	if total != 4 {
		t.Errorf("expected 4 rows for level>=debug, got %d", total)
	}
	_ = rows
}

func TestListDefaultLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := range 5 {
		s.write(ctx, time.Now(), "INFO", fmt.Sprintf("msg %d", i), "run1", "srv1", "", "")
	}

	// limit=0 should default to 100
	rows, total, err := s.List(ctx, "srv1", "", 0, 0)
	if err != nil {
		t.Fatalf("List(limit=0) error: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total=5, got %d", total)
	}
	if len(rows) != 5 {
		t.Errorf("expected 5 rows, got %d", len(rows))
	}
}

func TestStartRunInsertsRunRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, "srv1", "chan1")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&count); err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 runs row for %q, got %d", runID, count)
	}
}

func TestSummarizeCountsByLevel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	runID, err := s.StartRun(ctx, "srv1", "chan1")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	otherRun, err := s.StartRun(ctx, "srv1", "chan1")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	s.write(ctx, time.Now(), "INFO", "a", runID, "srv1", "chan1", "")
	s.write(ctx, time.Now(), "WARN", "b", runID, "srv1", "chan1", "")
	s.write(ctx, time.Now(), "ERROR", "c", runID, "srv1", "chan1", "")
	s.write(ctx, time.Now(), "ERROR", "d", otherRun, "srv1", "chan1", "")

	summary, err := s.Summarize(ctx, runID)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.Total != 3 {
		t.Errorf("expected total=3, got %d", summary.Total)
	}
	if summary.WarnCount != 1 {
		t.Errorf("expected warnCount=1, got %d", summary.WarnCount)
	}
	if summary.ErrorCount != 1 {
		t.Errorf("expected errorCount=1 (scoped to runID, not otherRun), got %d", summary.ErrorCount)
	}
}

func TestPruneRunsKeepsOtherChannelsAndRecentRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Create more than maxRetainedRuns runs for srv1/chan1.
	var runIDs []string
	for i := 0; i < maxRetainedRuns+5; i++ {
		runID, err := s.StartRun(ctx, "srv1", "chan1")
		if err != nil {
			t.Fatalf("StartRun: %v", err)
		}
		s.write(ctx, time.Now(), "INFO", fmt.Sprintf("msg %d", i), runID, "srv1", "chan1", "")
		runIDs = append(runIDs, runID)
		// Force distinct started_at ordering since UnixNano resolution
		// alone may collide within a tight loop on some platforms.
		time.Sleep(time.Microsecond)
	}

	// A run on a different channel must survive regardless of srv1/chan1 pruning.
	otherRunID, err := s.StartRun(ctx, "srv1", "chan2")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	s.write(ctx, time.Now(), "INFO", "other channel", otherRunID, "srv1", "chan2", "")

	var remaining int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE guild_id = ? AND channel_id = ?`, "srv1", "chan1").Scan(&remaining); err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if remaining > maxRetainedRuns {
		t.Errorf("expected at most %d retained runs for chan1, got %d", maxRetainedRuns, remaining)
	}

	var oldestSurvived int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runIDs[0]).Scan(&oldestSurvived); err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if oldestSurvived != 0 {
		t.Errorf("expected the oldest run to have been pruned")
	}

	var newestSurvived int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE run_id = ?`, runIDs[len(runIDs)-1]).Scan(&newestSurvived); err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if newestSurvived != 1 {
		t.Errorf("expected the newest run to survive pruning")
	}

	var totalChan2 int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM logs WHERE guild_id = ? AND channel_id = ?`, "srv1", "chan2").Scan(&totalChan2); err != nil {
		t.Fatalf("query logs: %v", err)
	}
	if totalChan2 == 0 {
		t.Error("expected chan2's log row to remain after pruning chan1's runs")
	}
}
