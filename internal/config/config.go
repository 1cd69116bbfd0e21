// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/auth"
	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/enrichment"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/experiment"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/scoring"
	"github.com/tomtom215/shopsense/internal/store"
	"github.com/tomtom215/shopsense/internal/supervisor"
	"github.com/tomtom215/shopsense/internal/supervisor/services"
	"github.com/tomtom215/shopsense/internal/websocket"
)

// Config is the complete application configuration.
//
// Each component owns its section type and its defaults; this package only
// assembles them, layers file and environment overrides on top, and
// validates the result.
//
// Config is immutable after LoadWithKoanf and safe for concurrent reads.
type Config struct {
	Logging       LoggingConfig                  `koanf:"logging"`
	Server        ServerConfig                   `koanf:"server"`
	Store         store.Config                   `koanf:"store"`
	Events        events.Config                  `koanf:"events"`
	Behavior      behavior.Config                `koanf:"behavior"`
	Scoring       scoring.Config                 `koanf:"scoring"`
	Collaborative algorithms.CollaborativeConfig `koanf:"collaborative"`
	Basket        algorithms.BasketConfig        `koanf:"basket"`
	Recommend     recommend.Config               `koanf:"recommend"`
	Reorder       reranking.Config               `koanf:"reorder"`
	Experiment    experiment.Config              `koanf:"experiment"`
	Enrichment    enrichment.Config              `koanf:"enrichment"`
	Catalog       CatalogConfig                  `koanf:"catalog"`
	Audit         audit.Config                   `koanf:"audit"`
	Auth          auth.Config                    `koanf:"auth"`
	Stream        websocket.Config               `koanf:"stream"`
	Supervisor    supervisor.TreeConfig          `koanf:"supervisor"`
	Services      ServicesConfig                 `koanf:"services"`
}

// LoggingConfig holds logging settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: include caller file:line (default: false)
type LoggingConfig struct {
	Level     string `koanf:"level"`
	Format    string `koanf:"format"`
	Caller    bool   `koanf:"caller"`
	Timestamp bool   `koanf:"timestamp"`
}

// ToLogging converts to the logging package configuration writing to stderr.
func (c LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:     c.Level,
		Format:    c.Format,
		Caller:    c.Caller,
		Timestamp: c.Timestamp,
		Output:    os.Stderr,
	}
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT: bind address (default: 0.0.0.0:8080)
//   - CORS_ORIGINS: comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW: per-IP budget (default: 300/1m)
//   - DISABLE_RATE_LIMIT: turn limiting off (default: false)
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RequestTimeout bounds each API handler.
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// MaxBodyBytes caps inbound JSON bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Catalog source types.
const (
	CatalogSourceFile   = "file"
	CatalogSourceHTTP   = "http"
	CatalogSourceStatic = "static"
)

// CatalogConfig selects where product, collection, order, and cart data
// come from.
//
// Environment Variables:
//   - CATALOG_SOURCE: file, http, or static (default: static)
//   - CATALOG_PATH: seed JSON file for the file source
//   - CATALOG_BASE_URL: storefront API root for the http source
type CatalogConfig struct {
	Source string             `koanf:"source"`
	Path   string             `koanf:"path"`
	HTTP   catalog.HTTPConfig `koanf:"http"`
}

// ServicesConfig holds the supervised periodic jobs.
type ServicesConfig struct {
	// ModelRebuild retrains the collaborative and basket models.
	ModelRebuild services.PeriodicConfig `koanf:"model_rebuild"`

	// ScoreRecompute refreshes the scores of recently active sessions.
	ScoreRecompute services.PeriodicConfig `koanf:"score_recompute"`

	// CatalogRefresh re-fetches catalog data.
	CatalogRefresh services.PeriodicConfig `koanf:"catalog_refresh"`
}
