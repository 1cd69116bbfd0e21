// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package config

import (
	"fmt"
	"strings"

	"github.com/tomtom215/shopsense/internal/store"
	"github.com/tomtom215/shopsense/internal/supervisor/services"
	"github.com/tomtom215/shopsense/internal/validation"
)

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if c.Events.Buffer < 1 {
		return fmt.Errorf("events.buffer must be positive, got %d", c.Events.Buffer)
	}
	if err := c.validateComponents(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	return c.validateServices()
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		return fmt.Errorf("logging.level %q must be one of trace, debug, info, warn, error, disabled", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateServer() error {
	s := c.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 || s.RequestTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if s.MaxBodyBytes < 1 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", s.MaxBodyBytes)
	}
	if !s.RateLimitDisabled && (s.RateLimitRequests < 1 || s.RateLimitWindow <= 0) {
		return fmt.Errorf("server rate limit requires positive rate_limit_requests and rate_limit_window")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Type {
	case store.TypeMemory:
	case store.TypeBadger:
		if c.Store.Path == "" && !c.Store.InMemory {
			return fmt.Errorf("store.path is required for the badger store")
		}
	default:
		return fmt.Errorf("store.type %q must be memory or badger", c.Store.Type)
	}
	return nil
}

// validateComponents delegates to each component's own checks.
func (c *Config) validateComponents() error {
	checks := []struct {
		section string
		check   func() error
	}{
		{"behavior", c.Behavior.Validate},
		{"scoring", c.Scoring.Validate},
		{"recommend", c.Recommend.Validate},
		{"reorder", c.Reorder.Validate},
		{"experiment", c.Experiment.Validate},
		{"audit", c.Audit.Validate},
		{"auth", c.Auth.Validate},
		{"stream", c.Stream.Validate},
		{"collaborative", structCheck(c.Collaborative)},
		{"basket", structCheck(c.Basket)},
		{"enrichment", structCheck(c.Enrichment)},
	}
	for _, ch := range checks {
		if err := ch.check(); err != nil {
			return fmt.Errorf("%s: %w", ch.section, err)
		}
	}
	return nil
}

// structCheck adapts tag-based validation to a plain error.
func structCheck(s interface{}) func() error {
	return func() error {
		if verr := validation.ValidateStruct(s); verr != nil {
			return verr
		}
		return nil
	}
}

func (c *Config) validateCatalog() error {
	switch c.Catalog.Source {
	case CatalogSourceStatic:
	case CatalogSourceFile:
		if c.Catalog.Path == "" {
			return fmt.Errorf("catalog.path is required for the file source")
		}
	case CatalogSourceHTTP:
		if c.Catalog.HTTP.BaseURL == "" {
			return fmt.Errorf("catalog.http.base_url is required for the http source")
		}
		if verr := validation.ValidateStruct(c.Catalog.HTTP); verr != nil {
			return fmt.Errorf("catalog.http: %w", verr)
		}
	default:
		return fmt.Errorf("catalog.source %q must be file, http, or static", c.Catalog.Source)
	}
	return nil
}

func (c *Config) validateServices() error {
	jobs := map[string]services.PeriodicConfig{
		"model_rebuild":   c.Services.ModelRebuild,
		"score_recompute": c.Services.ScoreRecompute,
		"catalog_refresh": c.Services.CatalogRefresh,
	}
	for name, job := range jobs {
		if job.Interval <= 0 {
			return fmt.Errorf("services.%s.interval must be positive, got %v", name, job.Interval)
		}
		if job.Timeout < 0 {
			return fmt.Errorf("services.%s.timeout must not be negative, got %v", name, job.Timeout)
		}
	}
	return nil
}
