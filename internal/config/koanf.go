// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/auth"
	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/enrichment"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/experiment"
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/scoring"
	"github.com/tomtom215/shopsense/internal/store"
	"github.com/tomtom215/shopsense/internal/supervisor"
	"github.com/tomtom215/shopsense/internal/supervisor/services"
	"github.com/tomtom215/shopsense/internal/websocket"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shopsense/config.yaml",
	"/etc/shopsense/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with every component's defaults.
// These are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "json",
			Caller:    false,
			Timestamp: true,
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			RequestTimeout:    10 * time.Second,
			MaxBodyBytes:      1 << 20,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
		},
		Store: store.Config{
			Type: store.TypeBadger,
			Path: "/data/shopsense",
		},
		Events:        events.DefaultConfig(),
		Behavior:      behavior.DefaultConfig(),
		Scoring:       scoring.DefaultConfig(),
		Collaborative: algorithms.DefaultCollaborativeConfig(),
		Basket:        algorithms.DefaultBasketConfig(),
		Recommend:     recommend.DefaultConfig(),
		Reorder:       reranking.DefaultConfig(),
		Experiment:    experiment.DefaultConfig(),
		Enrichment:    enrichment.DefaultConfig(),
		Catalog: CatalogConfig{
			Source: CatalogSourceStatic,
			HTTP:   catalog.DefaultHTTPConfig(),
		},
		Audit:      audit.DefaultConfig(),
		Auth:       auth.DefaultConfig(),
		Stream:     websocket.DefaultConfig(),
		Supervisor: supervisor.DefaultTreeConfig(),
		Services: ServicesConfig{
			ModelRebuild: services.PeriodicConfig{
				Interval:     time.Hour,
				RunOnStartup: true,
			},
			ScoreRecompute: services.PeriodicConfig{
				Interval: 30 * time.Second,
				Timeout:  20 * time.Second,
			},
			CatalogRefresh: services.PeriodicConfig{
				Interval:     15 * time.Minute,
				RunOnStartup: true,
				Timeout:      time.Minute,
			},
		},
	}
}

// LoadWithKoanf loads configuration using Koanf with layered sources.
//
// Priority (later overrides earlier):
//  1. Defaults (hardcoded in defaultConfig)
//  2. Config file (config.yaml, or CONFIG_PATH)
//  3. Environment variables (explicit mapping, see envTransformFunc)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns CONFIG_PATH when it exists, else the first
// existing entry of DefaultConfigPaths, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are the keys whose env values are comma-separated lists.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"reorder.defaults.strategies",
	"reorder.sale_tags",
	"scoring.trending.promo_tags",
	"recommend.boost.sale_tags",
}

// processSliceFields splits comma-separated string values into slices.
// Values that are already slices (from YAML) are left alone.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"http_idle_timeout":   "server.idle_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"request_timeout":     "server.request_timeout",
	"max_body_bytes":      "server.max_body_bytes",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	// Store
	"store_type":      "store.type",
	"store_path":      "store.path",
	"store_in_memory": "store.in_memory",

	// Events
	"events_buffer": "events.buffer",

	// Behavior
	"behavior_flush_interval": "behavior.flush_interval",
	"behavior_persist_delay":  "behavior.persist_delay",
	"behavior_idle_evict":     "behavior.idle_evict",
	"behavior_hover_timeout":  "behavior.hover_timeout",

	// Scoring
	"scoring_recompute_interval": "scoring.recompute_interval",
	"scoring_active_window":      "scoring.active_window",
	"scoring_max_sessions":       "scoring.max_sessions",

	// Models
	"collaborative_min_similarity": "collaborative.min_similarity",
	"collaborative_max_neighbors":  "collaborative.max_neighbors",
	"collaborative_workers":        "collaborative.num_workers",
	"basket_min_support":           "basket.min_support",
	"basket_min_confidence":        "basket.min_confidence",

	// Recommendations
	"recommend_cache_ttl":        "recommend.cache_ttl",
	"recommend_default_limit":    "recommend.default_limit",
	"recommend_max_limit":        "recommend.max_limit",
	"recommend_training_timeout": "recommend.training_timeout",

	// Reorder
	"reorder_subtlety":   "reorder.defaults.subtlety",
	"reorder_strategies": "reorder.defaults.strategies",
	"reorder_strength":   "reorder.defaults.personalization_strength",
	"reorder_seed":       "reorder.seed",

	// Experiments
	"experiment_reallocate_interval": "experiment.reallocate_interval",
	"experiment_smoothing":           "experiment.smoothing",
	"experiment_seed":                "experiment.seed",

	// Enrichment
	"enrichment_sentiment_url":    "enrichment.sentiment_url",
	"enrichment_segmentation_url": "enrichment.segmentation_url",
	"enrichment_forecast_url":     "enrichment.forecast_url",
	"enrichment_pattern_url":      "enrichment.pattern_url",
	"enrichment_timeout":          "enrichment.timeout",

	// Catalog
	"catalog_source":      "catalog.source",
	"catalog_path":        "catalog.path",
	"catalog_base_url":    "catalog.http.base_url",
	"catalog_timeout":     "catalog.http.timeout",
	"catalog_max_retries": "catalog.http.max_retries",

	// Audit trail
	"audit_enabled":   "audit.enabled",
	"audit_store":     "audit.store",
	"audit_retention": "audit.retention",

	// Operator authentication
	"auth_mode":     "auth.mode",
	"jwt_secret":    "auth.jwt_secret",
	"jwt_issuer":    "auth.issuer",
	"jwt_token_ttl": "auth.token_ttl",

	// Live stream
	"stream_max_clients_per_session": "stream.max_clients_per_session",

	// Supervised jobs
	"model_rebuild_interval":   "services.model_rebuild.interval",
	"score_recompute_interval": "services.score_recompute.interval",
	"catalog_refresh_interval": "services.catalog_refresh.interval",
	"supervisor_shutdown":      "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable to its koanf path.
// Unmapped variables return "" and are skipped, so unrelated environment
// never leaks into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile sets up a file watcher for hot-reload capability.
// The caller is responsible for synchronizing access to the reloaded Config.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
