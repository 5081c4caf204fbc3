package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/archiveworks/chatexport/apiclient"
	"github.com/archiveworks/chatexport/assetcache"
	"github.com/archiveworks/chatexport/config"
	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/logstore"
	"github.com/archiveworks/chatexport/orchestrator"
	"github.com/archiveworks/chatexport/ratebudget"
)

func main() {
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	configPath := flag.String("config", "", "Path to config file")
	var channelOverrides stringSliceFlag
	flag.Var(&channelOverrides, "channel", "channel id to export (repeatable; overrides the config's [[exports]])")
	flag.Parse()

	cfgPath := config.Resolve()
	if *configPath != "" {
		cfgPath = *configPath
	}

	cfgStore, err := config.NewStore(cfgPath)
	if err != nil {
		// setupLogger not yet called; write to stderr via default slog
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	cfg := cfgStore.Get()

	logsDBPath := filepath.Join(filepath.Dir(cfgPath), "chatexport-logs.db")
	ls, err := logstore.Open(logsDBPath)
	if err != nil {
		slog.Error("failed to open log store", "error", err)
		os.Exit(1)
	}
	defer ls.Close()

	setupLogger(*logLevel, *logFormat, ls)
	slog.Info("config loaded", "path", cfgPath)

	requests, err := cfg.Requests()
	if err != nil {
		slog.Error("failed to build export requests", "error", err)
		os.Exit(1)
	}
	if len(channelOverrides) > 0 {
		requests = requestsForChannels(requests[0], channelOverrides)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pref, err := ratebudget.ParsePreference(cfg.RateLimitPreference)
	if err != nil {
		slog.Error("invalid rate limit preference", "error", err)
		os.Exit(1)
	}
	client, err := apiclient.New(ctx, cfg.Token, pref)
	if err != nil {
		slog.Error("failed to authenticate client", "error", err)
		os.Exit(1)
	}

	var assets *assetcache.Store
	if cfg.ShouldReuseAssets {
		assetsDBPath := filepath.Join(filepath.Dir(cfgPath), "chatexport-assets.db")
		assets, err = assetcache.Open(assetsDBPath)
		if err != nil {
			slog.Error("failed to open asset cache", "error", err)
			os.Exit(1)
		}
		defer assets.Close()
	}

	runIDs := make([]string, len(requests))
	for i := range requests {
		requests[i].Client = client
		requests[i].Assets = assets

		runID, err := ls.StartRun(ctx, requests[i].GuildID.String(), requests[i].ChannelID.String())
		if err != nil {
			slog.Error("failed to start export run", "error", err, "channel_id", requests[i].ChannelID.String())
			os.Exit(1)
		}
		runIDs[i] = runID
	}

	slog.Info("starting export", "jobs", len(requests), "parallelism", cfg.Parallelism)
	results := orchestrator.Batch(ctx, requests, cfg.Parallelism)

	exitCode := 0
	for i, r := range results {
		runID := runIDs[i]
		logger := slog.With("guild_id", r.Request.GuildID.String(), "channel_id", r.Request.ChannelID.String(), "run_id", runID)
		var emptyErr *orchestrator.ChannelEmptyError
		switch {
		case r.Err == nil:
			logger.Info("channel export finished")
		case errors.As(r.Err, &emptyErr):
			logger.Warn("channel export produced no messages", "error", r.Err)
		default:
			logger.Error("channel export failed", "error", r.Err)
			exitCode = 1
		}

		summary, err := ls.Summarize(ctx, runID)
		if err != nil {
			logger.Warn("failed to summarize export run log history", "error", err)
			continue
		}
		logger.Info("export run log summary", "total_logs", summary.Total, "warnings", summary.WarnCount, "errors", summary.ErrorCount)
	}

	slog.Info("export run complete")
	os.Exit(exitCode)
}

// requestsForChannels repeats base once per -channel override, swapping
// in each channel id. Used to drive an ad hoc multi-channel run without
// writing an [[exports]] array into the config file.
func requestsForChannels(base orchestrator.Request, channelIDs []string) []orchestrator.Request {
	reqs := make([]orchestrator.Request, 0, len(channelIDs))
	for _, raw := range channelIDs {
		id, err := domain.ParseId(raw)
		if err != nil {
			slog.Error("invalid -channel value, skipping", "value", raw, "error", err)
			continue
		}
		req := base
		req.ChannelID = id
		reqs = append(reqs, req)
	}
	return reqs
}

type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ",") }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func setupLogger(level, format string, ls *logstore.Store) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: l}
	var h slog.Handler
	if format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	if ls != nil {
		h = logstore.NewHandler(h, ls)
	}
	slog.SetDefault(slog.New(h))
}
