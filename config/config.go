// Package config handles TOML configuration loading for the export
// engine: the single-export field surface of spec.md §6 plus an
// [[exports]] array for driving several channel exports from one file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/archiveworks/chatexport/domain"
	"github.com/archiveworks/chatexport/orchestrator"
	"github.com/archiveworks/chatexport/ratebudget"
	"github.com/archiveworks/chatexport/sink"
)

// Config is the decoded TOML document. Fields not overridden by a given
// entry in Exports fall back to these top-level defaults.
type Config struct {
	Token               string `toml:"token" json:"-"`
	RateLimitPreference string `toml:"rate_limit_preference"`

	// GuildID/ChannelID identify a single export when Exports is empty;
	// spec.md §6 enumerates no top-level guild/channel fields since a
	// bare config is meant to pair with an [[exports]] batch, but a
	// one-off export still needs somewhere to put these.
	GuildID   string `toml:"guild_id,omitempty"`
	ChannelID string `toml:"channel_id,omitempty"`

	Format        string `toml:"format"`
	After         string `toml:"after"`
	Before        string `toml:"before"`
	PartitionLimit string `toml:"partition_limit"`
	MessageFilter string `toml:"message_filter"`

	ShouldFormatMarkdown      bool   `toml:"should_format_markdown"`
	ShouldDownloadAssets      bool   `toml:"should_download_assets"`
	ShouldReuseAssets         bool   `toml:"should_reuse_assets"`
	AssetsDirPath             string `toml:"assets_dir_path"`
	Locale                    string `toml:"locale"`
	IsUTCNormalizationEnabled bool   `toml:"is_utc_normalization_enabled"`

	OutputPath  string `toml:"output_path"`
	Parallelism int    `toml:"parallelism"`

	Exports []ExportConfig `toml:"exports"`
}

// ExportConfig describes one channel-export job within an [[exports]]
// batch. Any field left zero inherits the corresponding top-level
// Config value.
type ExportConfig struct {
	GuildID    string `toml:"guild_id"`
	ChannelID  string `toml:"channel_id" json:"channel_id"`
	OutputPath string `toml:"output_path,omitempty"`

	Format        string `toml:"format,omitempty"`
	After         string `toml:"after,omitempty"`
	Before        string `toml:"before,omitempty"`
	PartitionLimit string `toml:"partition_limit,omitempty"`
	MessageFilter string `toml:"message_filter,omitempty"`
}

// Load decodes path, applies defaults, and validates required fields.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if v := os.Getenv("CHATEXPORT_TOKEN"); v != "" {
		cfg.Token = v
		slog.Info("token overridden by env var", "CHATEXPORT_TOKEN", "***")
	}

	if cfg.RateLimitPreference == "" {
		cfg.RateLimitPreference = "RespectAll"
	}
	if cfg.Format == "" {
		cfg.Format = "PlainText"
	}
	if cfg.AssetsDirPath == "" {
		cfg.AssetsDirPath = "%c_Files"
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	// shouldFormatMarkdown defaults to true (spec.md §6); TOML can't
	// distinguish "absent" from "false" for a bare bool, so this only
	// takes effect when the field key itself is missing from the file.
	if !tomlKeyPresent(path, "should_format_markdown") {
		cfg.ShouldFormatMarkdown = true
	}

	if cfg.Token == "" {
		return nil, fmt.Errorf("token is required")
	}
	if _, err := ratebudget.ParsePreference(cfg.RateLimitPreference); err != nil {
		return nil, err
	}
	if _, err := orchestrator.ParseFormat(cfg.Format); err != nil {
		return nil, err
	}
	if _, err := sink.ParseLimit(cfg.PartitionLimit); err != nil {
		return nil, fmt.Errorf("partition_limit: %w", err)
	}
	if cfg.ShouldReuseAssets && !cfg.ShouldDownloadAssets {
		return nil, fmt.Errorf("should_reuse_assets requires should_download_assets")
	}
	for i, e := range cfg.Exports {
		if e.ChannelID == "" {
			return nil, fmt.Errorf("exports[%d]: channel_id is required", i)
		}
		if e.Format != "" {
			if _, err := orchestrator.ParseFormat(e.Format); err != nil {
				return nil, fmt.Errorf("exports[%d]: %w", i, err)
			}
		}
		if e.PartitionLimit != "" {
			if _, err := sink.ParseLimit(e.PartitionLimit); err != nil {
				return nil, fmt.Errorf("exports[%d]: partition_limit: %w", i, err)
			}
		}
	}

	return &cfg, nil
}

// tomlKeyPresent does a cheap re-decode into a generic map to tell a
// present-but-false bool from an absent key, which toml.DecodeFile's
// typed decode can't distinguish on its own.
func tomlKeyPresent(path, key string) bool {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return false
	}
	_, ok := raw[key]
	return ok
}

// ExpandPath expands environment variables and a leading ~ in a
// filesystem path.
func ExpandPath(path string) string {
	path = os.ExpandEnv(path)
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	return path
}

// Resolve returns the config file path from the CHATEXPORT_CONFIG env
// var, falling back to ./chatexport.toml. The -config CLI flag is
// handled separately in main.go.
func Resolve() string {
	path := os.Getenv("CHATEXPORT_CONFIG")
	if path == "" {
		path = "chatexport.toml"
	}
	path = ExpandPath(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Store holds a reloadable Config for long-running batch drivers.
type Store struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewStoreFromConfig creates a Store from a pre-built Config, for tests.
func NewStoreFromConfig(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{cfg: cfg, path: path}, nil
}

func (s *Store) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Store) Reload() (*Config, error) {
	cfg, err := Load(s.path)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return cfg, nil
}

// Requests builds one orchestrator.Request per [[exports]] entry (or a
// single one from the top-level fields when Exports is empty), resolving
// each entry's overrides against the top-level defaults.
func (cfg *Config) Requests() ([]orchestrator.Request, error) {
	entries := cfg.Exports
	if len(entries) == 0 {
		entries = []ExportConfig{{GuildID: cfg.GuildID, ChannelID: cfg.ChannelID}}
	}
	reqs := make([]orchestrator.Request, 0, len(entries))
	for i, e := range entries {
		req, err := cfg.requestFor(e)
		if err != nil {
			return nil, fmt.Errorf("exports[%d]: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (cfg *Config) requestFor(e ExportConfig) (orchestrator.Request, error) {
	format := firstNonEmpty(e.Format, cfg.Format)
	f, err := orchestrator.ParseFormat(format)
	if err != nil {
		return orchestrator.Request{}, err
	}

	limitStr := firstNonEmpty(e.PartitionLimit, cfg.PartitionLimit)
	limit, err := sink.ParseLimit(limitStr)
	if err != nil {
		return orchestrator.Request{}, err
	}

	var guildID domain.Id
	if e.GuildID != "" {
		guildID, err = domain.ParseId(e.GuildID)
		if err != nil {
			return orchestrator.Request{}, fmt.Errorf("guild_id: %w", err)
		}
	}
	channelID, err := domain.ParseId(e.ChannelID)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("channel_id: %w", err)
	}

	after, err := parseOptionalId(firstNonEmpty(e.After, cfg.After))
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("after: %w", err)
	}
	before, err := parseOptionalId(firstNonEmpty(e.Before, cfg.Before))
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("before: %w", err)
	}

	return orchestrator.Request{
		GuildID:              guildID,
		ChannelID:            channelID,
		After:                after,
		Before:               before,
		Format:               f,
		OutputPath:           firstNonEmpty(e.OutputPath, cfg.OutputPath),
		PartitionLimit:       limit,
		MessageFilter:        firstNonEmpty(e.MessageFilter, cfg.MessageFilter),
		Locale:               cfg.Locale,
		UTCNormalize:         cfg.IsUTCNormalizationEnabled,
		ShouldDownloadAssets: cfg.ShouldDownloadAssets,
		ShouldReuseAssets:    cfg.ShouldReuseAssets,
		AssetsDirPath:        cfg.AssetsDirPath,
	}, nil
}

func parseOptionalId(s string) (*domain.Id, error) {
	if s == "" {
		return nil, nil
	}
	id, err := domain.ParseIdFlexible(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
