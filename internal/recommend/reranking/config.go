// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import "fmt"

// SegmentRules are the thresholds of the rule-based segmentation.
type SegmentRules struct {
	HighValueCart        int `koanf:"high_value_cart"`
	HighValueCombined    int `koanf:"high_value_combined"`
	LoyalWishlist        int `koanf:"loyal_wishlist"`
	LoyalPredictions     int `koanf:"loyal_predictions"`
	ReturningSearches    int `koanf:"returning_searches"`
	ReturningPredictions int `koanf:"returning_predictions"`
}

// Config contains configuration for the reorder engine.
type Config struct {
	// Defaults are the settings used when no experiment variant applies.
	Defaults Settings `koanf:"defaults"`

	// Weights are the base blend weights per strategy.
	Weights map[string]float64 `koanf:"weights"`

	// Segments are the segmentation thresholds.
	Segments SegmentRules `koanf:"segments"`

	// CriticalStock and LowStock are the urgency stock bands.
	CriticalStock int `koanf:"critical_stock"`
	LowStock      int `koanf:"low_stock"`

	// SaleTags mark a product as on sale for the urgency strategy.
	SaleTags []string `koanf:"sale_tags"`

	// CrossSellPerItem caps the related products looked up per cart item.
	CrossSellPerItem int `koanf:"cross_sell_per_item"`

	// Seed seeds the blend randomness. Zero seeds from the clock.
	Seed int64 `koanf:"seed"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Defaults: Settings{
			Subtlety:                SubtletyBalanced,
			PersonalizationStrength: 1,
		},
		Weights: map[string]float64{
			StrategyPersonalization: 0.8,
			StrategyUrgency:         0.5,
			StrategyInventory:       0.4,
			StrategyMargin:          0.3,
			StrategyTrending:        0.5,
			StrategyCrossSell:       0.6,
		},
		Segments: SegmentRules{
			HighValueCart:        3,
			HighValueCombined:    5,
			LoyalWishlist:        2,
			LoyalPredictions:     3,
			ReturningSearches:    2,
			ReturningPredictions: 3,
		},
		CriticalStock:    3,
		LowStock:         10,
		SaleTags:         []string{"sale", "clearance", "limited"},
		CrossSellPerItem: 10,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if !c.Defaults.Subtlety.Valid() {
		return fmt.Errorf("reorder defaults.subtlety %q is not one of subtle, balanced, bold", c.Defaults.Subtlety)
	}
	if c.Defaults.PersonalizationStrength < 0 || c.Defaults.PersonalizationStrength > 1 {
		return fmt.Errorf("reorder defaults.personalization_strength must be in [0, 1], got %v", c.Defaults.PersonalizationStrength)
	}
	for _, name := range c.Defaults.Strategies {
		if _, ok := strategyByName(name); !ok {
			return fmt.Errorf("reorder defaults.strategies: unknown strategy %q", name)
		}
	}
	for name, w := range c.Weights {
		if _, ok := strategyByName(name); !ok {
			return fmt.Errorf("reorder weights: unknown strategy %q", name)
		}
		if w < 0 || w > 1 {
			return fmt.Errorf("reorder weights.%s must be in [0, 1], got %v", name, w)
		}
	}
	if c.CriticalStock < 1 || c.LowStock < c.CriticalStock {
		return fmt.Errorf("reorder stock bands must satisfy 1 <= critical_stock <= low_stock")
	}
	if c.CrossSellPerItem < 1 {
		return fmt.Errorf("reorder cross_sell_per_item must be positive, got %d", c.CrossSellPerItem)
	}
	return nil
}
