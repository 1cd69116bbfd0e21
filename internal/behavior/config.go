// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"fmt"
	"time"
)

// Weights is the per-event score contribution table.
type Weights struct {
	View             float64 `koanf:"view"`
	Hover            float64 `koanf:"hover"`
	HoverPerSecond   float64 `koanf:"hover_per_second"`
	SearchAppearance float64 `koanf:"search_appearance"`
	Wishlist         float64 `koanf:"wishlist"`
	Cart             float64 `koanf:"cart"`
	Purchase         float64 `koanf:"purchase"`
}

// Thresholds are the ascending score levels for each predicted action.
type Thresholds struct {
	View     float64 `koanf:"view"`
	Wishlist float64 `koanf:"wishlist"`
	Cart     float64 `koanf:"cart"`
	Purchase float64 `koanf:"purchase"`
}

// For returns the threshold of a.
func (t Thresholds) For(a Action) float64 {
	switch a {
	case ActionView:
		return t.View
	case ActionWishlist:
		return t.Wishlist
	case ActionCart:
		return t.Cart
	case ActionPurchase:
		return t.Purchase
	}
	return 0
}

// Config tunes the tracker.
type Config struct {
	Weights    Weights    `koanf:"weights"`
	Thresholds Thresholds `koanf:"thresholds"`

	// Confidence decay after inactivity.
	StaleAfter    time.Duration `koanf:"stale_after"`
	StaleFactor   float64       `koanf:"stale_factor"`
	ExpiredAfter  time.Duration `koanf:"expired_after"`
	ExpiredFactor float64       `koanf:"expired_factor"`

	// PreferenceFactor scales event weight into category/brand/feature weight.
	PreferenceFactor float64 `koanf:"preference_factor"`

	// SearchIntentWeight is added to each category a query matches.
	SearchIntentWeight float64 `koanf:"search_intent_weight"`

	SearchHistoryLimit int           `koanf:"search_history_limit"`
	ZeroResultLimit    int           `koanf:"zero_result_limit"`
	ViewThrottle       time.Duration `koanf:"view_throttle"`
	HoverTimeout       time.Duration `koanf:"hover_timeout"`
	PersistDelay       time.Duration `koanf:"persist_delay"`
	FlushInterval      time.Duration `koanf:"flush_interval"`
	IdleEvict          time.Duration `koanf:"idle_evict"`

	Keywords             map[string]string `koanf:"keywords"`
	ComparativeMarkers   []string          `koanf:"comparative_markers"`
	InstructionalMarkers []string          `koanf:"instructional_markers"`
}

// DefaultConfig returns the default weight table and timings.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			View:             1,
			Hover:            2,
			HoverPerSecond:   1,
			SearchAppearance: 0.5,
			Wishlist:         10,
			Cart:             20,
			Purchase:         50,
		},
		Thresholds: Thresholds{
			View:     1,
			Wishlist: 8,
			Cart:     18,
			Purchase: 40,
		},
		StaleAfter:           24 * time.Hour,
		StaleFactor:          0.7,
		ExpiredAfter:         72 * time.Hour,
		ExpiredFactor:        0.4,
		PreferenceFactor:     0.5,
		SearchIntentWeight:   2,
		SearchHistoryLimit:   20,
		ZeroResultLimit:      500,
		ViewThrottle:         2 * time.Second,
		HoverTimeout:         5 * time.Minute,
		PersistDelay:         5 * time.Second,
		FlushInterval:        30 * time.Second,
		IdleEvict:            time.Hour,
		Keywords:             DefaultKeywords(),
		ComparativeMarkers:   []string{"vs", "versus", "compare", "comparison", "better", "best", "difference"},
		InstructionalMarkers: []string{"how to", "guide", "tutorial", "size chart", "sizing", "instructions", "care"},
	}
}

// DefaultKeywords maps common query terms to product types.
func DefaultKeywords() map[string]string {
	return map[string]string{
		"shoe":      "Shoes",
		"sneaker":   "Shoes",
		"boot":      "Shoes",
		"sandal":    "Shoes",
		"shirt":     "Apparel",
		"dress":     "Apparel",
		"jacket":    "Apparel",
		"jeans":     "Apparel",
		"hoodie":    "Apparel",
		"bag":       "Accessories",
		"backpack":  "Accessories",
		"wallet":    "Accessories",
		"watch":     "Accessories",
		"laptop":    "Electronics",
		"phone":     "Electronics",
		"headphone": "Electronics",
		"camera":    "Electronics",
		"sofa":      "Home",
		"lamp":      "Home",
		"mug":       "Home",
	}
}

// Validate rejects impossible settings.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"view": w.View, "hover": w.Hover, "hover_per_second": w.HoverPerSecond,
		"search_appearance": w.SearchAppearance, "wishlist": w.Wishlist,
		"cart": w.Cart, "purchase": w.Purchase,
	} {
		if v < 0 {
			return fmt.Errorf("behavior weight %s must be non-negative, got %v", name, v)
		}
	}
	t := c.Thresholds
	if !(t.View > 0 && t.View < t.Wishlist && t.Wishlist < t.Cart && t.Cart < t.Purchase) {
		return fmt.Errorf("behavior thresholds must be positive and ascending (view < wishlist < cart < purchase)")
	}
	if c.StaleFactor < 0 || c.StaleFactor > 1 || c.ExpiredFactor < 0 || c.ExpiredFactor > 1 {
		return fmt.Errorf("behavior decay factors must be within [0,1]")
	}
	if c.ExpiredAfter < c.StaleAfter {
		return fmt.Errorf("behavior expired_after must not be shorter than stale_after")
	}
	if c.SearchHistoryLimit <= 0 {
		return fmt.Errorf("behavior search_history_limit must be positive")
	}
	return nil
}
