// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package scoring

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
)

// Sub-score bounds.
const (
	personalizedMax = 100.0
	trendingMax     = 60.0
	inventoryMin    = -20.0
	inventoryMax    = 30.0
	marginMax       = 50.0
	conversionMax   = 50.0
)

// ProductScore is the explainable score of one product for one session.
type ProductScore struct {
	ProductID string `json:"product_id"`

	Personalized float64 `json:"personalized"`
	Trending     float64 `json:"trending"`
	Inventory    float64 `json:"inventory"`
	Margin       float64 `json:"margin"`
	Conversion   float64 `json:"conversion"`

	MarginRatio         float64 `json:"margin_ratio"`
	PurchaseProbability float64 `json:"purchase_probability"`
	BusinessMultiplier  float64 `json:"business_multiplier"`
	TotalScore          float64 `json:"total_score"`

	Reasons  []string `json:"reasons"`
	Boosters []string `json:"boosters"`
}

// Sum returns the unscaled sum of the sub-scores.
func (s ProductScore) Sum() float64 {
	return s.Personalized + s.Trending + s.Inventory + s.Margin + s.Conversion
}

// HasBooster reports whether the named rule fired.
func (s ProductScore) HasBooster(name string) bool {
	for _, b := range s.Boosters {
		if b == name {
			return true
		}
	}
	return false
}

// Signals are the per-session inputs of ScoreProduct. Enrichment maps are
// optional; a missing entry means the deterministic fallback applies.
type Signals struct {
	Profile *behavior.Profile
	Now     time.Time

	Sentiment           map[string]float64
	Forecast            map[string]float64
	PurchaseProbability map[string]float64
}

// explain accumulates reasons and boosters for one product.
type explain struct {
	reasons  []string
	boosters []string
}

func (e *explain) add(booster, format string, args ...any) {
	e.boosters = append(e.boosters, booster)
	e.reasons = append(e.reasons, fmt.Sprintf(format, args...))
}

// ScoreProduct computes the score of p under sig. It has no side effects.
func (c *Config) ScoreProduct(p catalog.Product, sig Signals) ProductScore {
	profile := sig.Profile
	if profile == nil {
		profile = behavior.NewProfile("", sig.Now)
	}
	var bs behavior.BehaviorScore
	if s, ok := profile.Scores[p.ID]; ok && s != nil {
		bs = *s
	}

	var ex explain
	out := ProductScore{ProductID: p.ID}

	out.Personalized = c.personalized(p, profile, &ex)
	out.Trending = c.trending(p, bs, sig, &ex)
	out.Inventory = c.inventory(p, &ex)
	out.MarginRatio = c.marginRatio(p)
	out.Margin = c.margin(p, out.MarginRatio, &ex)
	out.PurchaseProbability = c.purchaseProbability(p.ID, bs, sig)
	out.Conversion = c.conversion(p, bs, out.PurchaseProbability, sig, &ex)
	out.BusinessMultiplier = c.multiplier(p.Price, out.MarginRatio)
	out.TotalScore = out.Sum() * out.BusinessMultiplier

	out.Reasons = ex.reasons
	out.Boosters = ex.boosters
	return out
}

func (c *Config) personalized(p catalog.Product, profile *behavior.Profile, ex *explain) float64 {
	r := c.Personalized
	var v float64
	if w := profile.CategoryPrefs[p.ProductType]; w > 0 && p.ProductType != "" {
		bonus := math.Min(w*r.CategoryScale, r.CategoryCap)
		v += bonus
		ex.add("category_preference", "matches preferred category %s (+%.1f)", p.ProductType, bonus)
	}
	if profile.Wishlist.Contains(p.ID) {
		v += r.WishlistBonus
		ex.add("wishlist", "saved to wishlist (+%.0f)", r.WishlistBonus)
	}
	if profile.Cart.Contains(p.ID) {
		v += r.CartBonus
		ex.add("cart", "in cart (+%.0f)", r.CartBonus)
	}
	if profile.PriceRange.Contains(p.Price) {
		v += r.PriceRangeBonus
		ex.add("price_range", "within usual price range (+%.0f)", r.PriceRangeBonus)
	}
	return clamp(v, 0, personalizedMax)
}

func (c *Config) trending(p catalog.Product, bs behavior.BehaviorScore, sig Signals, ex *explain) float64 {
	r := c.Trending
	var v float64
	if !p.CreatedAt.IsZero() {
		if age := sig.Now.Sub(p.CreatedAt); age >= 0 && age <= r.NewListingWindow {
			v += r.NewListingBonus
			ex.add("new_listing", "listed %d days ago (+%.0f)", int(age.Hours()/24), r.NewListingBonus)
		}
	}
	if bs.PredictedAction >= behavior.ActionWishlist {
		v += r.HighIntentBonus
		ex.add("high_intent", "high predicted intent: %s (+%.0f)", bs.PredictedAction, r.HighIntentBonus)
	}
	for _, tag := range r.PerformanceTags {
		if p.HasTag(tag) {
			v += r.PerformanceBonus
			ex.add("performance_tag", "tagged %s (+%.0f)", strings.ToLower(tag), r.PerformanceBonus)
		}
	}
	for _, tag := range r.PromoTags {
		if p.HasTag(tag) {
			v += r.PromoBonus
			ex.add("promo_tag", "promotion %s (+%.0f)", strings.ToLower(tag), r.PromoBonus)
		}
	}
	if f, ok := sig.Forecast[p.ID]; ok && f > 0 {
		bonus := clamp(f, 0, 1) * r.ForecastScale
		v += bonus
		ex.add("demand_forecast", "forecast demand %.2f (+%.1f)", f, bonus)
	}
	return clamp(v, 0, trendingMax)
}

func (c *Config) inventory(p catalog.Product, ex *explain) float64 {
	r := c.Inventory
	if !p.Purchasable() {
		ex.add("unavailable", "unavailable (-%.0f)", r.UnavailablePenalty)
		return clamp(-r.UnavailablePenalty, inventoryMin, inventoryMax)
	}
	v := r.PurchasableBonus
	switch {
	case p.Inventory <= r.CriticalStock:
		v += r.CriticalBonus
		ex.add("critical_stock", "only %d left (+%.0f)", p.Inventory, r.CriticalBonus)
	case p.Inventory <= r.LowStock:
		v += r.LowBonus
		ex.add("low_stock", "low stock: %d left (+%.0f)", p.Inventory, r.LowBonus)
	}
	return clamp(v, inventoryMin, inventoryMax)
}

// marginRatio estimates the product's margin: discount depth eats into a
// base margin when a compare-at price exists, otherwise the price tier
// decides.
func (c *Config) marginRatio(p catalog.Product) float64 {
	r := c.Margin
	if p.OnSale() {
		return math.Max(0, r.BaseRatio-p.Discount())
	}
	switch {
	case p.Price >= r.PremiumPrice:
		return r.PremiumRatio
	case p.Price >= r.MidPrice:
		return r.MidRatio
	default:
		return r.LowRatio
	}
}

func (c *Config) margin(p catalog.Product, ratio float64, ex *explain) float64 {
	r := c.Margin
	v := ratio * r.Scale
	if p.ProductType != "" {
		for _, cat := range r.HighMarginCategories {
			if strings.EqualFold(cat, p.ProductType) {
				v += r.CategoryBonus
				ex.add("high_margin_category", "high-margin category %s (+%.0f)", p.ProductType, r.CategoryBonus)
				break
			}
		}
	}
	return clamp(v, 0, marginMax)
}

// purchaseProbability prefers the behavior-pattern enrichment and falls
// back to confidence/100 × rank(action)/4.
func (c *Config) purchaseProbability(id string, bs behavior.BehaviorScore, sig Signals) float64 {
	if p, ok := sig.PurchaseProbability[id]; ok {
		return clamp(p, 0, 1)
	}
	return clamp(bs.Confidence/100*float64(bs.PredictedAction)/float64(behavior.ActionPurchase), 0, 1)
}

func (c *Config) conversion(p catalog.Product, bs behavior.BehaviorScore, prob float64, sig Signals, ex *explain) float64 {
	r := c.Conversion
	v := prob * r.ProbabilityScale
	if prob > 0 {
		ex.add("purchase_probability", "purchase probability %.0f%%", prob*100)
	}
	if bs.PredictedAction == behavior.ActionCart || bs.PredictedAction == behavior.ActionPurchase {
		v += r.IntentBonus
		ex.add("conversion_intent", "likely to %s (+%.0f)", bs.PredictedAction, r.IntentBonus)
	}
	for _, tag := range r.BundleTags {
		if p.HasTag(tag) {
			v += r.BundleBonus
			ex.add("bundle", "bundle offer (+%.0f)", r.BundleBonus)
			break
		}
	}
	if s, ok := sig.Sentiment[p.ID]; ok && s > 0 {
		bonus := clamp(s, 0, 1) * r.SentimentScale
		v += bonus
		ex.add("sentiment", "positive reviews (+%.1f)", bonus)
	}
	return clamp(v, 0, conversionMax)
}

func (c *Config) multiplier(price, ratio float64) float64 {
	r := c.Multiplier
	m := 1.0
	switch {
	case price >= c.Margin.PremiumPrice:
		m += r.PremiumPriceBoost
	case price >= c.Margin.MidPrice:
		m += r.MidPriceBoost
	}
	switch {
	case ratio >= r.HighMarginRatio:
		m += r.HighMarginBoost
	case ratio >= r.MidMarginRatio:
		m += r.MidMarginBoost
	}
	return m
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
