// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/store"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Type != store.TypeBadger {
		t.Errorf("Store.Type = %q, want badger", cfg.Store.Type)
	}
	if cfg.Reorder.Defaults.Subtlety != reranking.SubtletyBalanced {
		t.Errorf("Reorder.Defaults.Subtlety = %q, want balanced", cfg.Reorder.Defaults.Subtlety)
	}
	if cfg.Catalog.Source != CatalogSourceStatic {
		t.Errorf("Catalog.Source = %q, want static", cfg.Catalog.Source)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"zero body cap", func(c *Config) { c.Server.MaxBodyBytes = 0 }, "max_body_bytes"},
		{"rate limit without budget", func(c *Config) { c.Server.RateLimitRequests = 0 }, "rate limit"},
		{"unknown store", func(c *Config) { c.Store.Type = "postgres" }, "store.type"},
		{"badger without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"zero bus buffer", func(c *Config) { c.Events.Buffer = 0 }, "events.buffer"},
		{"unknown subtlety", func(c *Config) { c.Reorder.Defaults.Subtlety = "loud" }, "reorder"},
		{"negative strategy weight", func(c *Config) { c.Reorder.Weights[reranking.StrategyUrgency] = -1 }, "reorder"},
		{"zero smoothing", func(c *Config) { c.Experiment.Smoothing = 0 }, "experiment"},
		{"similarity above one", func(c *Config) { c.Collaborative.MinSimilarity = 2 }, "collaborative"},
		{"bad enrichment url", func(c *Config) { c.Enrichment.SentimentURL = "not a url" }, "enrichment"},
		{"file source without path", func(c *Config) { c.Catalog.Source = CatalogSourceFile }, "catalog.path"},
		{"http source without url", func(c *Config) { c.Catalog.Source = CatalogSourceHTTP }, "base_url"},
		{"unknown source", func(c *Config) { c.Catalog.Source = "ftp" }, "catalog.source"},
		{"unknown audit store", func(c *Config) { c.Audit.Store = "s3" }, "audit"},
		{"short jwt secret", func(c *Config) { c.Auth.Mode = "jwt"; c.Auth.JWTSecret = "short" }, "auth"},
		{"negative stream cap", func(c *Config) { c.Stream.MaxClientsPerSession = -1 }, "stream"},
		{"zero job interval", func(c *Config) { c.Services.CatalogRefresh.Interval = 0 }, "catalog_refresh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_RateLimitDisabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.Server.RateLimitDisabled = true
	cfg.Server.RateLimitRequests = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled rate limit should not need a budget: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"LOG_LEVEL", "logging.level"},
		{"CATALOG_BASE_URL", "catalog.http.base_url"},
		{"REORDER_SUBTLETY", "reorder.defaults.subtlety"},
		{"MODEL_REBUILD_INTERVAL", "services.model_rebuild.interval"},
		{"AUDIT_RETENTION", "audit.retention"},
		{"JWT_SECRET", "auth.jwt_secret"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanf_Layers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9000
store:
  type: memory
reorder:
  defaults:
    subtlety: subtle
experiment:
  reallocate_interval: 30m
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("REORDER_STRATEGIES", "urgency,cross_sell")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Errorf("env should override file: port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Store.Type != store.TypeMemory {
		t.Errorf("Store.Type = %q, want memory", cfg.Store.Type)
	}
	if cfg.Reorder.Defaults.Subtlety != reranking.SubtletySubtle {
		t.Errorf("Subtlety = %q, want subtle", cfg.Reorder.Defaults.Subtlety)
	}
	if cfg.Experiment.ReallocateInterval != 30*time.Minute {
		t.Errorf("ReallocateInterval = %v, want 30m", cfg.Experiment.ReallocateInterval)
	}
	if got := cfg.Server.CORSOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", got)
	}
	if got := cfg.Reorder.Defaults.Strategies; len(got) != 2 || got[0] != reranking.StrategyUrgency {
		t.Errorf("Strategies = %v", got)
	}
	// Untouched sections keep their defaults.
	if cfg.Behavior.FlushInterval != defaultConfig().Behavior.FlushInterval {
		t.Errorf("Behavior.FlushInterval = %v, want default", cfg.Behavior.FlushInterval)
	}
}

func TestLoadWithKoanf_Invalid(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("STORE_TYPE", "memory")
	t.Setenv("HTTP_PORT", "70000")
	if _, err := LoadWithKoanf(); err == nil {
		t.Fatal("expected a validation error for an out-of-range port")
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
