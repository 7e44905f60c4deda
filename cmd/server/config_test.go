package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte(`
addr: ":9000"
topics_dir: /srv/topics
summary_ttl: 90s
tls:
  enabled: true
  cert_file: /etc/wardstats/cert.pem
`), 0o644)

	t.Setenv("WARDSTATS_ADDR", ":9100")
	t.Setenv("WARDSTATS_TLS_KEY_FILE", "/etc/wardstats/key.pem")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9100" {
		t.Errorf("addr = %q, env should win", cfg.Addr)
	}
	if cfg.TopicsDir != "/srv/topics" || cfg.SummaryTTL != 90*time.Second {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.DBPath != "wardstats.db" || cfg.CheckInterval != 24*time.Hour {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if !cfg.TLS.Enabled || !cfg.TLS.MCP || cfg.TLS.CertFile == "" || cfg.TLS.KeyFile != "/etc/wardstats/key.pem" {
		t.Errorf("tls = %+v", cfg.TLS)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("addr: [unterminated"), 0o644)
	if _, err := loadConfig(bad); err == nil {
		t.Error("expected YAML error")
	}

	level := filepath.Join(dir, "level.yaml")
	os.WriteFile(level, []byte("log_level: chatty\n"), 0o644)
	if _, err := loadConfig(level); err == nil {
		t.Error("expected log level error")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "INFO": slog.LevelInfo, "": slog.LevelInfo,
		"warning": slog.LevelWarn, "error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := parseLevel(in)
		if err != nil || got != want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestContentText(t *testing.T) {
	if got := contentText(mcp.NewTextContent(`{"total":15}`)); got != `{"total":15}` {
		t.Errorf("text = %q", got)
	}
}
