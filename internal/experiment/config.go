// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package experiment

import (
	"fmt"
	"time"
)

// Config contains configuration for the experiment controller.
type Config struct {
	// Experiments are registered on startup.
	Experiments []Definition `koanf:"experiments"`

	// ReallocateInterval is how often traffic weights are updated.
	ReallocateInterval time.Duration `koanf:"reallocate_interval"`

	// Smoothing is the share of a reallocation taken from the new metric
	// share: w = (1-Smoothing)·w + Smoothing·share.
	Smoothing float64 `koanf:"smoothing"`

	// AssignmentCache bounds the in-memory session assignments.
	AssignmentCache int `koanf:"assignment_cache"`

	// Seed seeds variant draws. Zero seeds from the clock.
	Seed int64 `koanf:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ReallocateInterval: time.Hour,
		Smoothing:          0.1,
		AssignmentCache:    10000,
	}
}

// DefaultDefinition fills the optional fields of d.
func DefaultDefinition(d Definition) Definition {
	if d.Metric == "" {
		d.Metric = MetricConversionRate
	}
	if d.MinSamples == 0 {
		d.MinSamples = 100
	}
	if d.Threshold == 0 {
		d.Threshold = 0.1
	}
	return d
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.ReallocateInterval <= 0 {
		return fmt.Errorf("experiment reallocate_interval must be positive, got %s", c.ReallocateInterval)
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return fmt.Errorf("experiment smoothing must be in (0, 1], got %v", c.Smoothing)
	}
	if c.AssignmentCache <= 0 {
		return fmt.Errorf("experiment assignment_cache must be positive, got %d", c.AssignmentCache)
	}
	seen := make(map[string]bool, len(c.Experiments))
	for i := range c.Experiments {
		d := DefaultDefinition(c.Experiments[i])
		if err := d.Validate(); err != nil {
			return fmt.Errorf("experiment %d: %w", i, err)
		}
		if seen[d.ID] {
			return fmt.Errorf("experiment %q declared twice", d.ID)
		}
		seen[d.ID] = true
	}
	return nil
}
