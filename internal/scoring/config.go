// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package scoring

import (
	"fmt"
	"time"
)

// PersonalizedRules tune the personalized sub-score.
type PersonalizedRules struct {
	CategoryScale   float64 `koanf:"category_scale"`
	CategoryCap     float64 `koanf:"category_cap"`
	WishlistBonus   float64 `koanf:"wishlist_bonus"`
	CartBonus       float64 `koanf:"cart_bonus"`
	PriceRangeBonus float64 `koanf:"price_range_bonus"`
}

// TrendingRules tune the trending sub-score.
type TrendingRules struct {
	NewListingWindow time.Duration `koanf:"new_listing_window"`
	NewListingBonus  float64       `koanf:"new_listing_bonus"`
	HighIntentBonus  float64       `koanf:"high_intent_bonus"`
	PerformanceTags  []string      `koanf:"performance_tags"`
	PerformanceBonus float64       `koanf:"performance_bonus"`
	PromoTags        []string      `koanf:"promo_tags"`
	PromoBonus       float64       `koanf:"promo_bonus"`
	ForecastScale    float64       `koanf:"forecast_scale"`
}

// InventoryRules tune the inventory sub-score.
type InventoryRules struct {
	PurchasableBonus   float64 `koanf:"purchasable_bonus"`
	CriticalStock      int     `koanf:"critical_stock"`
	CriticalBonus      float64 `koanf:"critical_bonus"`
	LowStock           int     `koanf:"low_stock"`
	LowBonus           float64 `koanf:"low_bonus"`
	UnavailablePenalty float64 `koanf:"unavailable_penalty"`
}

// MarginRules tune the margin sub-score and the margin estimate.
type MarginRules struct {
	Scale                float64  `koanf:"scale"`
	BaseRatio            float64  `koanf:"base_ratio"`
	PremiumPrice         float64  `koanf:"premium_price"`
	PremiumRatio         float64  `koanf:"premium_ratio"`
	MidPrice             float64  `koanf:"mid_price"`
	MidRatio             float64  `koanf:"mid_ratio"`
	LowRatio             float64  `koanf:"low_ratio"`
	HighMarginCategories []string `koanf:"high_margin_categories"`
	CategoryBonus        float64  `koanf:"category_bonus"`
}

// ConversionRules tune the conversion sub-score.
type ConversionRules struct {
	ProbabilityScale float64  `koanf:"probability_scale"`
	IntentBonus      float64  `koanf:"intent_bonus"`
	BundleTags       []string `koanf:"bundle_tags"`
	BundleBonus      float64  `koanf:"bundle_bonus"`
	SentimentScale   float64  `koanf:"sentiment_scale"`
}

// MultiplierRules tune the business multiplier.
type MultiplierRules struct {
	PremiumPriceBoost float64 `koanf:"premium_price_boost"`
	MidPriceBoost     float64 `koanf:"mid_price_boost"`
	HighMarginRatio   float64 `koanf:"high_margin_ratio"`
	HighMarginBoost   float64 `koanf:"high_margin_boost"`
	MidMarginRatio    float64 `koanf:"mid_margin_ratio"`
	MidMarginBoost    float64 `koanf:"mid_margin_boost"`
}

// Config holds the scoring rules and engine timings.
type Config struct {
	Personalized PersonalizedRules `koanf:"personalized"`
	Trending     TrendingRules     `koanf:"trending"`
	Inventory    InventoryRules    `koanf:"inventory"`
	Margin       MarginRules       `koanf:"margin"`
	Conversion   ConversionRules   `koanf:"conversion"`
	Multiplier   MultiplierRules   `koanf:"multiplier"`

	// RecomputeInterval is how long a session's scores stay cached.
	RecomputeInterval time.Duration `koanf:"recompute_interval"`

	// InvalidateDelay is the debounce window for Invalidate.
	InvalidateDelay time.Duration `koanf:"invalidate_delay"`

	// ActiveWindow bounds which sessions RefreshActive recomputes.
	ActiveWindow time.Duration `koanf:"active_window"`

	// SentimentTTL is how long a product's sentiment is reused.
	SentimentTTL time.Duration `koanf:"sentiment_ttl"`

	// MaxSessions bounds the per-session score cache.
	MaxSessions int `koanf:"max_sessions"`
}

// DefaultConfig returns the default scoring rules.
func DefaultConfig() Config {
	return Config{
		Personalized: PersonalizedRules{
			CategoryScale:   2,
			CategoryCap:     40,
			WishlistBonus:   25,
			CartBonus:       30,
			PriceRangeBonus: 10,
		},
		Trending: TrendingRules{
			NewListingWindow: 30 * 24 * time.Hour,
			NewListingBonus:  15,
			HighIntentBonus:  20,
			PerformanceTags:  []string{"bestseller", "featured", "trending", "popular"},
			PerformanceBonus: 10,
			PromoTags:        []string{"sale", "limited", "exclusive", "clearance", "new"},
			PromoBonus:       8,
			ForecastScale:    10,
		},
		Inventory: InventoryRules{
			PurchasableBonus:   10,
			CriticalStock:      3,
			CriticalBonus:      15,
			LowStock:           10,
			LowBonus:           8,
			UnavailablePenalty: 20,
		},
		Margin: MarginRules{
			Scale:                40,
			BaseRatio:            0.5,
			PremiumPrice:         200,
			PremiumRatio:         0.45,
			MidPrice:             50,
			MidRatio:             0.35,
			LowRatio:             0.25,
			HighMarginCategories: []string{"Accessories", "Jewelry", "Beauty", "Apparel"},
			CategoryBonus:        10,
		},
		Conversion: ConversionRules{
			ProbabilityScale: 30,
			IntentBonus:      15,
			BundleTags:       []string{"bundle", "set", "kit"},
			BundleBonus:      5,
			SentimentScale:   5,
		},
		Multiplier: MultiplierRules{
			PremiumPriceBoost: 0.15,
			MidPriceBoost:     0.05,
			HighMarginRatio:   0.4,
			HighMarginBoost:   0.10,
			MidMarginRatio:    0.3,
			MidMarginBoost:    0.05,
		},
		RecomputeInterval: 30 * time.Second,
		InvalidateDelay:   time.Second,
		ActiveWindow:      10 * time.Minute,
		SentimentTTL:      15 * time.Minute,
		MaxSessions:       2000,
	}
}

// Validate rejects impossible settings.
func (c Config) Validate() error {
	if c.RecomputeInterval <= 0 {
		return fmt.Errorf("scoring recompute_interval must be positive")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("scoring max_sessions must be positive")
	}
	if c.Inventory.CriticalStock < 1 || c.Inventory.LowStock < c.Inventory.CriticalStock {
		return fmt.Errorf("scoring inventory bands must satisfy 1 <= critical_stock <= low_stock")
	}
	if c.Margin.MidPrice > c.Margin.PremiumPrice {
		return fmt.Errorf("scoring margin mid_price must not exceed premium_price")
	}
	for name, v := range map[string]float64{
		"category_scale":  c.Personalized.CategoryScale,
		"wishlist_bonus":  c.Personalized.WishlistBonus,
		"cart_bonus":      c.Personalized.CartBonus,
		"margin_scale":    c.Margin.Scale,
		"probability":     c.Conversion.ProbabilityScale,
		"forecast_scale":  c.Trending.ForecastScale,
		"sentiment_scale": c.Conversion.SentimentScale,
	} {
		if v < 0 {
			return fmt.Errorf("scoring %s must be non-negative, got %v", name, v)
		}
	}
	return nil
}
