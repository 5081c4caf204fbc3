package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/archiveworks/chatexport/orchestrator"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "chatexport.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `token = "abc123"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimitPreference != "RespectAll" {
		t.Errorf("RateLimitPreference = %q, want RespectAll", cfg.RateLimitPreference)
	}
	if cfg.Format != "PlainText" {
		t.Errorf("Format = %q, want PlainText", cfg.Format)
	}
	if !cfg.ShouldFormatMarkdown {
		t.Error("ShouldFormatMarkdown should default true when the key is absent")
	}
	if cfg.Parallelism != 1 {
		t.Errorf("Parallelism = %d, want 1", cfg.Parallelism)
	}
}

func TestLoadRespectsExplicitFalseMarkdownFlag(t *testing.T) {
	path := writeTempConfig(t, "token = \"abc123\"\nshould_format_markdown = false\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ShouldFormatMarkdown {
		t.Error("explicit should_format_markdown = false must not be overridden by the default")
	}
}

func TestLoadRejectsMissingToken(t *testing.T) {
	path := writeTempConfig(t, `format = "Csv"`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestLoadRejectsReuseAssetsWithoutDownload(t *testing.T) {
	path := writeTempConfig(t, "token = \"abc123\"\nshould_reuse_assets = true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error: should_reuse_assets requires should_download_assets")
	}
}

func TestLoadRejectsExportWithoutChannelID(t *testing.T) {
	path := writeTempConfig(t, "token = \"abc123\"\n\n[[exports]]\nguild_id = \"1\"\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for export missing channel_id")
	}
}

func TestRequestsSingleExportInheritsTopLevelFields(t *testing.T) {
	cfg := &Config{
		Token:         "abc",
		Format:        "Json",
		PartitionLimit: "500",
		MessageFilter: "from:123",
	}
	cfg.Exports = []ExportConfig{{ChannelID: "42"}}

	reqs, err := cfg.Requests()
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.MessageFilter != "from:123" {
		t.Errorf("MessageFilter = %q, want inherited from:123", req.MessageFilter)
	}
	if req.PartitionLimit == nil {
		t.Error("expected a non-nil partition limit")
	}
}

func TestRequestsPerExportOverrideWins(t *testing.T) {
	cfg := &Config{Token: "abc", Format: "PlainText"}
	cfg.Exports = []ExportConfig{{ChannelID: "42", Format: "Csv"}}

	reqs, err := cfg.Requests()
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	want, err := orchestrator.ParseFormat("Csv")
	if err != nil {
		t.Fatalf("ParseFormat: %v", err)
	}
	if reqs[0].Format != want {
		t.Errorf("Format = %v, want the export-level Csv override", reqs[0].Format)
	}
}

func TestRequestsWithNoExportsBuildsOneFromTopLevel(t *testing.T) {
	cfg := &Config{Token: "abc", Format: "PlainText", OutputPath: "out.txt", ChannelID: "42"}
	reqs, err := cfg.Requests()
	if err != nil {
		t.Fatalf("Requests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if reqs[0].OutputPath != "out.txt" {
		t.Errorf("OutputPath = %q, want out.txt", reqs[0].OutputPath)
	}
}
