package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// envPrefix namespaces environment overrides, e.g. WARDSTATS_ADDR.
const envPrefix = "WARDSTATS"

type config struct {
	Addr          string        `yaml:"addr" envconfig:"ADDR"`
	TopicsDir     string        `yaml:"topics_dir" envconfig:"TOPICS_DIR"`
	DBPath        string        `yaml:"db_path" envconfig:"DB_PATH"`
	SummaryTTL    time.Duration `yaml:"summary_ttl" envconfig:"SUMMARY_TTL"`
	CheckInterval time.Duration `yaml:"check_interval" envconfig:"CHECK_INTERVAL"`
	LogLevel      string        `yaml:"log_level" envconfig:"LOG_LEVEL"`
	TLS           tlsConfig     `yaml:"tls" envconfig:"TLS"`
}

// tlsConfig switches serve to the TLS + QUIC chassis.
type tlsConfig struct {
	Enabled  bool   `yaml:"enabled" envconfig:"ENABLED"`
	CertFile string `yaml:"cert_file" envconfig:"CERT_FILE"`
	KeyFile  string `yaml:"key_file" envconfig:"KEY_FILE"`
	MCP      bool   `yaml:"mcp" envconfig:"MCP"`
}

func defaultConfig() config {
	return config{
		Addr:          ":8420",
		TopicsDir:     "topics",
		DBPath:        "wardstats.db",
		SummaryTTL:    5 * time.Minute,
		CheckInterval: 24 * time.Hour,
		LogLevel:      "info",
		TLS:           tlsConfig{MCP: true},
	}
}

// loadConfig applies, in order: built-in defaults, the YAML file at path (a
// missing file is not an error), then WARDSTATS_* environment variables.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("environment: %w", err)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func newLogger(level string) *slog.Logger {
	lvl, _ := parseLevel(level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// mustLoad loads config and a logger, exiting on error.
func mustLoad(path string) (config, *slog.Logger) {
	cfg, err := loadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger
}
