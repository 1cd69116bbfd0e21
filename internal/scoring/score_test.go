// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package scoring

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestScoreProduct_WishlistAndHoverScenario(t *testing.T) {
	sched := schedule.NewManual(epoch)
	snap := catalog.NewSnapshot(catalog.Data{Products: []catalog.Product{
		{ID: "P1", Price: 40, ProductType: "Shoes", Available: true, Inventory: 20},
	}}, epoch)
	tracker := behavior.NewTracker(behavior.DefaultConfig(), store.NewMemoryKV(), staticCatalog{snap}, nil, sched, zerolog.Nop())
	ctx := context.Background()

	tracker.Track(ctx, behavior.Event{SessionID: "s1", ProductID: "P1", Kind: behavior.KindWishlistAdd})
	for i := 0; i < 3; i++ {
		tracker.HoverStart("s1", "P1", sched.Now())
		sched.Advance(600 * time.Millisecond)
		tracker.HoverEnd(ctx, "s1", "P1", sched.Now())
	}

	profile := tracker.Profile(ctx, "s1")
	if got := profile.Scores["P1"].PredictedAction; got < behavior.ActionWishlist {
		t.Fatalf("predicted action = %v, want at least wishlist", got)
	}

	cfg := DefaultConfig()
	p, _ := snap.Product("P1")
	score := cfg.ScoreProduct(p, Signals{Profile: profile, Now: sched.Now()})

	if !score.HasBooster("wishlist") {
		t.Errorf("boosters = %v, want wishlist", score.Boosters)
	}
	if score.Personalized < cfg.Personalized.WishlistBonus {
		t.Errorf("personalized = %v, want at least the wishlist bonus %v", score.Personalized, cfg.Personalized.WishlistBonus)
	}
	if !score.HasBooster("high_intent") {
		t.Errorf("boosters = %v, want high_intent", score.Boosters)
	}
	if len(score.Reasons) != len(score.Boosters) {
		t.Errorf("reasons (%d) and boosters (%d) out of step", len(score.Reasons), len(score.Boosters))
	}
}

type staticCatalog struct{ snap *catalog.Snapshot }

func (s staticCatalog) Snapshot() *catalog.Snapshot { return s.snap }

func TestScoreProduct_Inventory(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name    string
		product catalog.Product
		want    float64
		booster string
	}{
		{"unavailable", catalog.Product{ID: "a", Available: false, Inventory: 5}, -20, "unavailable"},
		{"sold out", catalog.Product{ID: "b", Available: true, Inventory: 0}, -20, "unavailable"},
		{"critical", catalog.Product{ID: "c", Available: true, Inventory: 2}, 25, "critical_stock"},
		{"critical edge", catalog.Product{ID: "d", Available: true, Inventory: 3}, 25, "critical_stock"},
		{"low", catalog.Product{ID: "e", Available: true, Inventory: 7}, 18, "low_stock"},
		{"plenty", catalog.Product{ID: "f", Available: true, Inventory: 50}, 10, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cfg.ScoreProduct(tt.product, Signals{Now: epoch})
			if !approx(s.Inventory, tt.want) {
				t.Errorf("inventory = %v, want %v", s.Inventory, tt.want)
			}
			if tt.booster != "" && !s.HasBooster(tt.booster) {
				t.Errorf("boosters = %v, want %s", s.Boosters, tt.booster)
			}
		})
	}
}

func TestScoreProduct_MarginAndMultiplier(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name       string
		product    catalog.Product
		wantRatio  float64
		wantMargin float64
		wantMult   float64
	}{
		{"discounted", catalog.Product{ID: "a", Price: 80, CompareAtPrice: 100}, 0.3, 12, 1.10},
		{"deep discount", catalog.Product{ID: "b", Price: 20, CompareAtPrice: 100}, 0, 0, 1},
		{"premium tier", catalog.Product{ID: "c", Price: 250}, 0.45, 18, 1.25},
		{"mid tier", catalog.Product{ID: "d", Price: 60}, 0.35, 14, 1.10},
		{"low tier", catalog.Product{ID: "e", Price: 10}, 0.25, 10, 1},
		{"high margin category", catalog.Product{ID: "f", Price: 10, ProductType: "apparel"}, 0.25, 20, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cfg.ScoreProduct(tt.product, Signals{Now: epoch})
			if !approx(s.MarginRatio, tt.wantRatio) {
				t.Errorf("ratio = %v, want %v", s.MarginRatio, tt.wantRatio)
			}
			if !approx(s.Margin, tt.wantMargin) {
				t.Errorf("margin = %v, want %v", s.Margin, tt.wantMargin)
			}
			if !approx(s.BusinessMultiplier, tt.wantMult) {
				t.Errorf("multiplier = %v, want %v", s.BusinessMultiplier, tt.wantMult)
			}
			if !approx(s.TotalScore, s.Sum()*s.BusinessMultiplier) {
				t.Errorf("total = %v, want sum×multiplier = %v", s.TotalScore, s.Sum()*s.BusinessMultiplier)
			}
		})
	}
}

func TestScoreProduct_Conversion(t *testing.T) {
	cfg := DefaultConfig()
	product := catalog.Product{ID: "P1", Price: 30, Available: true, Inventory: 20}

	withScore := func(action behavior.Action, confidence float64) *behavior.Profile {
		p := behavior.NewProfile("s1", epoch)
		p.Scores["P1"] = &behavior.BehaviorScore{ProductID: "P1", PredictedAction: action, Confidence: confidence, Score: 10}
		return p
	}

	tests := []struct {
		name     string
		sig      Signals
		wantProb float64
		want     float64
	}{
		{"no behavior", Signals{Now: epoch}, 0, 0},
		{"fallback wishlist", Signals{Now: epoch, Profile: withScore(behavior.ActionWishlist, 75)}, 0.375, 11.25},
		{"fallback cart", Signals{Now: epoch, Profile: withScore(behavior.ActionCart, 100)}, 0.75, 22.5 + 15},
		{
			"enrichment probability",
			Signals{Now: epoch, Profile: withScore(behavior.ActionView, 50), PurchaseProbability: map[string]float64{"P1": 0.8}},
			0.8, 24,
		},
		{
			"positive sentiment",
			Signals{Now: epoch, Sentiment: map[string]float64{"P1": 0.5}},
			0, 2.5,
		},
		{
			"negative sentiment ignored",
			Signals{Now: epoch, Sentiment: map[string]float64{"P1": -0.9}},
			0, 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cfg.ScoreProduct(product, tt.sig)
			if !approx(s.PurchaseProbability, tt.wantProb) {
				t.Errorf("probability = %v, want %v", s.PurchaseProbability, tt.wantProb)
			}
			if !approx(s.Conversion, tt.want) {
				t.Errorf("conversion = %v, want %v", s.Conversion, tt.want)
			}
		})
	}

	bundle := product
	bundle.Tags = []string{"Bundle"}
	if s := cfg.ScoreProduct(bundle, Signals{Now: epoch}); !approx(s.Conversion, 5) {
		t.Errorf("bundle conversion = %v, want 5", s.Conversion)
	}
}

func TestScoreProduct_TrendingAndPersonalized(t *testing.T) {
	cfg := DefaultConfig()

	fresh := catalog.Product{ID: "a", CreatedAt: epoch.Add(-5 * 24 * time.Hour), Tags: []string{"Bestseller", "sale"}}
	if s := cfg.ScoreProduct(fresh, Signals{Now: epoch}); !approx(s.Trending, 15+10+8) {
		t.Errorf("trending = %v, want 33", s.Trending)
	}

	old := catalog.Product{ID: "b", CreatedAt: epoch.Add(-90 * 24 * time.Hour)}
	if s := cfg.ScoreProduct(old, Signals{Now: epoch, Forecast: map[string]float64{"b": 0.5}}); !approx(s.Trending, 5) {
		t.Errorf("trending = %v, want 5 from forecast only", s.Trending)
	}

	loaded := catalog.Product{ID: "c", CreatedAt: epoch, Tags: []string{"bestseller", "featured", "trending", "popular", "sale", "limited"}}
	if s := cfg.ScoreProduct(loaded, Signals{Now: epoch}); s.Trending != trendingMax {
		t.Errorf("trending = %v, want capped at %v", s.Trending, trendingMax)
	}

	profile := behavior.NewProfile("s1", epoch)
	profile.CategoryPrefs["Shoes"] = 30
	profile.Cart.Add("d")
	profile.PriceRange = behavior.PriceRange{Min: 20, Max: 60, Set: true}
	shoe := catalog.Product{ID: "d", ProductType: "Shoes", Price: 40}
	s := cfg.ScoreProduct(shoe, Signals{Now: epoch, Profile: profile})
	if want := 40.0 + 30 + 10; !approx(s.Personalized, want) {
		t.Errorf("personalized = %v, want %v (category capped at 40)", s.Personalized, want)
	}
}

func TestScoreProduct_Bounds(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	tags := []string{"bestseller", "featured", "trending", "popular", "sale", "limited", "exclusive", "clearance", "new", "bundle"}

	for i := 0; i < 500; i++ {
		p := catalog.Product{
			ID:             "p",
			Price:          rng.Float64() * 400,
			CompareAtPrice: rng.Float64() * 500,
			Inventory:      rng.Intn(30) - 5,
			Available:      rng.Intn(4) > 0,
			ProductType:    []string{"Shoes", "Apparel", ""}[rng.Intn(3)],
			CreatedAt:      epoch.Add(-time.Duration(rng.Intn(60*24)) * time.Hour),
		}
		for _, tag := range tags {
			if rng.Intn(2) == 0 {
				p.Tags = append(p.Tags, tag)
			}
		}
		p = catalog.Sanitize(p)

		profile := behavior.NewProfile("s", epoch)
		profile.CategoryPrefs[p.ProductType] = rng.Float64() * 100
		if rng.Intn(2) == 0 {
			profile.Wishlist.Add("p")
		}
		if rng.Intn(2) == 0 {
			profile.Cart.Add("p")
		}
		profile.Scores["p"] = &behavior.BehaviorScore{
			ProductID:       "p",
			PredictedAction: behavior.Action(rng.Intn(5)),
			Confidence:      rng.Float64() * 100,
		}
		sig := Signals{
			Profile:             profile,
			Now:                 epoch,
			Forecast:            map[string]float64{"p": rng.Float64()},
			Sentiment:           map[string]float64{"p": rng.Float64()*2 - 1},
			PurchaseProbability: map[string]float64{"p": rng.Float64()},
		}

		s := cfg.ScoreProduct(p, sig)
		checks := []struct {
			name   string
			v      float64
			lo, hi float64
		}{
			{"personalized", s.Personalized, 0, personalizedMax},
			{"trending", s.Trending, 0, trendingMax},
			{"inventory", s.Inventory, inventoryMin, inventoryMax},
			{"margin", s.Margin, 0, marginMax},
			{"conversion", s.Conversion, 0, conversionMax},
		}
		for _, c := range checks {
			if c.v < c.lo || c.v > c.hi {
				t.Fatalf("iteration %d: %s = %v outside [%v,%v]", i, c.name, c.v, c.lo, c.hi)
			}
		}
		if s.BusinessMultiplier < 1 || s.BusinessMultiplier > 1.25+1e-9 {
			t.Fatalf("iteration %d: multiplier = %v", i, s.BusinessMultiplier)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero recompute", func(c *Config) { c.RecomputeInterval = 0 }, true},
		{"no sessions", func(c *Config) { c.MaxSessions = 0 }, true},
		{"inverted stock bands", func(c *Config) { c.Inventory.LowStock = 2 }, true},
		{"negative scale", func(c *Config) { c.Margin.Scale = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
