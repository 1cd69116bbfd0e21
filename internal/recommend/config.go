// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation aggregator.
type Config struct {
	// Weights defines the relative contribution of each source.
	// Weights are normalized at runtime, so they don't need to sum to 1.0.
	Weights SourceWeights `koanf:"weights"`

	// Behavior tunes the behavior source.
	Behavior BehaviorConfig `koanf:"behavior"`

	// Boost tunes the contextual boost pass.
	Boost BoostConfig `koanf:"boost"`

	// Candidates bounds how many products each source may propose.
	Candidates CandidateConfig `koanf:"candidates"`

	// DefaultLimit is the list length when a request sets none.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps the requested list length.
	MaxLimit int `koanf:"max_limit"`

	// CacheTTL is how long a list is reused for identical requests.
	CacheTTL time.Duration `koanf:"cache_ttl"`

	// CacheEntries bounds the list cache.
	CacheEntries int `koanf:"cache_entries"`

	// TrainingTimeout bounds one model rebuild.
	TrainingTimeout time.Duration `koanf:"training_timeout"`
}

// SourceWeights defines the relative contribution of each source.
type SourceWeights struct {
	Collaborative float64 `koanf:"collaborative"`
	Basket        float64 `koanf:"basket"`
	Behavior      float64 `koanf:"behavior"`
}

// Normalize returns a copy with weights normalized to sum to 1.0.
func (w SourceWeights) Normalize() SourceWeights {
	sum := w.Collaborative + w.Basket + w.Behavior
	if sum <= 0 {
		const equalWeight = 1.0 / 3.0
		return SourceWeights{Collaborative: equalWeight, Basket: equalWeight, Behavior: equalWeight}
	}
	return SourceWeights{
		Collaborative: w.Collaborative / sum,
		Basket:        w.Basket / sum,
		Behavior:      w.Behavior / sum,
	}
}

// ToMap returns weights keyed by source name.
func (w SourceWeights) ToMap() map[string]float64 {
	return map[string]float64{
		SourceCollaborative: w.Collaborative,
		SourceBasket:        w.Basket,
		SourceBehavior:      w.Behavior,
	}
}

// BehaviorConfig tunes the behavior source. The source is half the
// predicted-action strength plus half the product's total score relative
// to the session's best, plus flat bonuses, clamped to [0,1].
type BehaviorConfig struct {
	WishlistBonus float64 `koanf:"wishlist_bonus"`
	CartBonus     float64 `koanf:"cart_bonus"`
}

// BoostConfig holds the contextual multipliers.
type BoostConfig struct {
	// LowStockMax is the highest positive inventory counted as low stock.
	LowStockMax int     `koanf:"low_stock_max"`
	LowStock    float64 `koanf:"low_stock"`
	Sale        float64 `koanf:"sale"`
	// SaleTags mark a product as on sale regardless of its compare-at price.
	SaleTags     []string `koanf:"sale_tags"`
	CartCategory float64  `koanf:"cart_category"`
	SharedTag    float64  `koanf:"shared_tag"`
	PriceBand    float64  `koanf:"price_band"`
	// PriceBands are ascending upper bounds; a product's band is the
	// number of bounds at or below its price.
	PriceBands []float64 `koanf:"price_bands"`
}

// CandidateConfig bounds candidate generation.
type CandidateConfig struct {
	// RecentSeeds is how many recently viewed products seed the lookups.
	RecentSeeds int `koanf:"recent_seeds"`

	// NeighborsPerSeed caps collaborative neighbors per seed.
	NeighborsPerSeed int `koanf:"neighbors_per_seed"`

	// RulesPerSeed caps basket rules per seed.
	RulesPerSeed int `koanf:"rules_per_seed"`

	// TopScored is how many top-scored products join as category picks.
	TopScored int `koanf:"top_scored"`

	// Popular is how many best sellers join as cold-start fallback.
	Popular int `koanf:"popular"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Weights: SourceWeights{
			Collaborative: 0.4,
			Basket:        0.3,
			Behavior:      0.3,
		},
		Behavior: BehaviorConfig{
			WishlistBonus: 0.3,
			CartBonus:     0.2,
		},
		Boost: BoostConfig{
			LowStockMax:  5,
			LowStock:     1.10,
			Sale:         1.10,
			SaleTags:     []string{"sale", "clearance"},
			CartCategory: 1.15,
			SharedTag:    1.05,
			PriceBand:    1.05,
			PriceBands:   []float64{25, 75, 150, 400},
		},
		Candidates: CandidateConfig{
			RecentSeeds:      5,
			NeighborsPerSeed: 20,
			RulesPerSeed:     20,
			TopScored:        20,
			Popular:          10,
		},
		DefaultLimit:    8,
		MaxLimit:        50,
		CacheTTL:        30 * time.Second,
		CacheEntries:    5000,
		TrainingTimeout: 5 * time.Minute,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	w := c.Weights
	if w.Collaborative < 0 || w.Basket < 0 || w.Behavior < 0 {
		return fmt.Errorf("recommend weights must be non-negative, got %+v", w)
	}
	if c.Behavior.WishlistBonus < 0 || c.Behavior.CartBonus < 0 {
		return fmt.Errorf("recommend behavior bonuses must be non-negative")
	}
	for name, m := range map[string]float64{
		"low_stock":     c.Boost.LowStock,
		"sale":          c.Boost.Sale,
		"cart_category": c.Boost.CartCategory,
		"shared_tag":    c.Boost.SharedTag,
		"price_band":    c.Boost.PriceBand,
	} {
		if m < 1 {
			return fmt.Errorf("recommend boost.%s must be >= 1, got %v", name, m)
		}
	}
	for i := 1; i < len(c.Boost.PriceBands); i++ {
		if c.Boost.PriceBands[i] <= c.Boost.PriceBands[i-1] {
			return fmt.Errorf("recommend boost.price_bands must be ascending")
		}
	}
	if c.DefaultLimit < 1 {
		return fmt.Errorf("recommend default_limit must be positive, got %d", c.DefaultLimit)
	}
	if c.MaxLimit < c.DefaultLimit {
		return fmt.Errorf("recommend max_limit must be >= default_limit, got %d < %d", c.MaxLimit, c.DefaultLimit)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("recommend cache_ttl must be positive, got %v", c.CacheTTL)
	}
	if c.CacheEntries < 1 {
		return fmt.Errorf("recommend cache_entries must be positive, got %d", c.CacheEntries)
	}
	if c.TrainingTimeout <= 0 {
		return fmt.Errorf("recommend training_timeout must be positive, got %v", c.TrainingTimeout)
	}
	return nil
}
