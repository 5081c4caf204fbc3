// Package logstore provides SQLite-backed persistent storage for slog
// entries and a custom slog.Handler that tees log records to an inner
// handler and to the DB. Retention and lookups are organized around one
// export run (one call to orchestrator.ExportChannel) rather than a flat
// row cap, so a run's logs can be inspected or reclaimed as a unit after
// the process exits.
package logstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id     TEXT PRIMARY KEY,
    guild_id   TEXT,
    channel_id TEXT,
    started_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS logs (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    ts         DATETIME NOT NULL,
    level      TEXT NOT NULL,
    msg        TEXT NOT NULL,
    run_id     TEXT NOT NULL,
    guild_id   TEXT,
    channel_id TEXT,
    attrs      TEXT
);
CREATE INDEX IF NOT EXISTS idx_logs_run ON logs(run_id);
CREATE INDEX IF NOT EXISTS idx_logs_guild_channel ON logs(guild_id, channel_id);
`

// maxRetainedRuns caps how many of a guild+channel pair's most recent
// export runs stay on disk; older runs are deleted whole, log rows
// included, rather than trimmed row-by-row.
const maxRetainedRuns = 20

// LogRow is a single log entry returned by List.
type LogRow struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"ts"`
	Level     string    `json:"level"`
	Msg       string    `json:"msg"`
	RunID     string    `json:"run_id,omitempty"`
	GuildID   string    `json:"guild_id,omitempty"`
	ChannelID string    `json:"channel_id,omitempty"`
	Attrs     string    `json:"attrs,omitempty"`
}

// RunSummary counts log records by level for one export run, so a caller
// can report "N errors, M warnings" without re-scanning every log row.
type RunSummary struct {
	RunID      string
	Total      int
	ErrorCount int
	WarnCount  int
}

// Store persists slog records in SQLite, scoped by export run.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the log store at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log db dir: %w", err)
	}
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open log db: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("log db migration: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun registers a new export run for guildID/channelID and returns the
// run id every log record the run produces should be tagged with. Also
// triggers retention, so a long batch driving many channels never
// accumulates unbounded run history.
func (s *Store) StartRun(ctx context.Context, guildID, channelID string) (string, error) {
	runID := fmt.Sprintf("%s-%s-%d", guildID, channelID, time.Now().UnixNano())
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, guild_id, channel_id, started_at) VALUES (?, ?, ?, ?)`,
		runID, guildID, channelID, time.Now(),
	); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	s.pruneRuns(ctx, guildID, channelID)
	return runID, nil
}

// write persists a single log entry tagged with its run. Silently discards
// errors: logging the error here would recurse back into slog.
func (s *Store) write(ctx context.Context, ts time.Time, level, msg, runID, guildID, channelID, attrsJSON string) {
	_, _ = s.db.ExecContext(ctx,
		`INSERT INTO logs (ts, level, msg, run_id, guild_id, channel_id, attrs) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts, level, msg, runID, guildID, channelID, attrsJSON,
	)
}

// pruneRuns keeps at most maxRetainedRuns runs per guild+channel,
// deleting whole runs oldest-first: trimming by raw row count would
// otherwise leave a run's log history half-deleted.
func (s *Store) pruneRuns(ctx context.Context, guildID, channelID string) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id FROM runs WHERE guild_id = ? AND channel_id = ? ORDER BY started_at DESC LIMIT -1 OFFSET ?`,
		guildID, channelID, maxRetainedRuns,
	)
	if err != nil {
		return
	}
	var stale []string
	for rows.Next() {
		var runID string
		if err := rows.Scan(&runID); err != nil {
			continue
		}
		stale = append(stale, runID)
	}
	rows.Close()

	for _, runID := range stale {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM logs WHERE run_id = ?`, runID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, runID)
	}
}

// List returns log rows for a guild, optionally filtered by minimum
// level. level may be "debug", "info", "warn", "error", or "" (no filter).
func (s *Store) List(ctx context.Context, guildID, level string, limit, offset int) ([]LogRow, int, error) {
	if limit == 0 {
		limit = 100
	}

	where := "guild_id = ?"
	args := []any{guildID}

	if level != "" {
		levels := map[string]int{"debug": -4, "info": 0, "warn": 4, "error": 8}
		if n, ok := levels[level]; ok {
			where += " AND CASE level WHEN 'DEBUG' THEN -4 WHEN 'INFO' THEN 0 WHEN 'WARN' THEN 4 WHEN 'ERROR' THEN 8 ELSE 0 END >= ?"
			args = append(args, n)
		}
	}

	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM logs WHERE "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, ts, level, msg, COALESCE(run_id,''), COALESCE(guild_id,''), COALESCE(channel_id,''), COALESCE(attrs,'') FROM logs WHERE "+where+
			" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list logs: %w", err)
	}
	defer rows.Close()

	var out []LogRow
	for rows.Next() {
		var r LogRow
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Level, &r.Msg, &r.RunID, &r.GuildID, &r.ChannelID, &r.Attrs); err != nil {
			return nil, 0, fmt.Errorf("scan log row: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Summarize aggregates log-level counts for one export run.
func (s *Store) Summarize(ctx context.Context, runID string) (RunSummary, error) {
	summary := RunSummary{RunID: runID}
	rows, err := s.db.QueryContext(ctx,
		`SELECT level, COUNT(*) FROM logs WHERE run_id = ? GROUP BY level`, runID,
	)
	if err != nil {
		return summary, fmt.Errorf("summarize run: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var level string
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return summary, fmt.Errorf("scan run summary: %w", err)
		}
		summary.Total += count
		switch level {
		case "ERROR":
			summary.ErrorCount = count
		case "WARN":
			summary.WarnCount = count
		}
	}
	return summary, rows.Err()
}

// Handler is a slog.Handler that tees records to an inner handler and to a
// Store. Attrs added via WithAttrs are accumulated so that run_id/
// guild_id/channel_id are available even when attached before the log call.
type Handler struct {
	inner    slog.Handler
	store    *Store
	preAttrs map[string]string // flat attrs accumulated via WithAttrs
}

// NewHandler wraps inner with a tee to store.
func NewHandler(inner slog.Handler, store *Store) *Handler {
	return &Handler{inner: inner, store: store, preAttrs: make(map[string]string)}
}

func (h *Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.inner.Enabled(ctx, l)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := &Handler{
		inner:    h.inner.WithAttrs(attrs),
		store:    h.store,
		preAttrs: copyMap(h.preAttrs),
	}
	for _, a := range attrs {
		// Use Value.String() for all kinds so non-string values are still captured.
		child.preAttrs[a.Key] = a.Value.String()
	}
	return child
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		inner:    h.inner.WithGroup(name),
		store:    h.store,
		preAttrs: copyMap(h.preAttrs),
	}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	runID := h.preAttrs["run_id"]
	guildID := h.preAttrs["guild_id"]
	channelID := h.preAttrs["channel_id"]

	extra := make(map[string]any)
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "run_id":
			runID = a.Value.String()
		case "guild_id":
			guildID = a.Value.String()
		case "channel_id":
			channelID = a.Value.String()
		default:
			extra[a.Key] = a.Value.Any()
		}
		return true
	})

	var attrsJSON string
	if len(extra) > 0 {
		b, _ := json.Marshal(extra)
		attrsJSON = string(b)
	}

	h.store.write(ctx, r.Time, r.Level.String(), r.Message, runID, guildID, channelID, attrsJSON)
	return nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
