// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestPredict_Ladder(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		score      float64
		action     Action
		confidence float64
	}{
		{0, ActionNone, 0},
		{0.5, ActionNone, 0},
		{1, ActionView, 50},
		{4, ActionView, 100},
		{8, ActionWishlist, 50},
		{12, ActionWishlist, 75},
		{18, ActionCart, 50},
		{40, ActionPurchase, 50},
		{500, ActionPurchase, 100},
	}
	for _, tt := range tests {
		a, c := cfg.predict(tt.score, epoch, epoch)
		if a != tt.action || math.Abs(c-tt.confidence) > 1e-9 {
			t.Errorf("predict(%v) = (%v, %v), want (%v, %v)", tt.score, a, c, tt.action, tt.confidence)
		}
	}
}

func TestPredict_Decay(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		age  time.Duration
		want float64
	}{
		{time.Hour, 50},
		{25 * time.Hour, 35},
		{73 * time.Hour, 20},
	}
	for _, tt := range tests {
		_, c := cfg.predict(8, epoch, epoch.Add(tt.age))
		if math.Abs(c-tt.want) > 1e-9 {
			t.Errorf("age %v confidence = %v, want %v", tt.age, c, tt.want)
		}
	}
}

func TestApply_RemovalsSubtractExactlyAndFloorAtZero(t *testing.T) {
	cfg := DefaultConfig()
	var s BehaviorScore

	cfg.apply(&s, KindView, 0, epoch)
	cfg.apply(&s, KindWishlistAdd, 0, epoch)
	if s.Score != 11 || !s.Wishlisted {
		t.Fatalf("after view+wishlist score = %v", s.Score)
	}

	cfg.apply(&s, KindWishlistRemove, 0, epoch)
	if s.Score != 1 || s.Wishlisted {
		t.Errorf("after remove score = %v, want 1", s.Score)
	}

	// A second remove has no matching membership and is a no-op.
	cfg.apply(&s, KindWishlistRemove, 0, epoch)
	if s.Score != 1 {
		t.Errorf("unmatched remove changed score to %v", s.Score)
	}

	// Floor at zero when the score was lowered below the add weight.
	low := BehaviorScore{Score: 5, InCart: true}
	cfg.apply(&low, KindCartRemove, 0, epoch)
	if low.Score != 0 {
		t.Errorf("floored score = %v, want 0", low.Score)
	}
}

func TestApply_HoverWeight(t *testing.T) {
	cfg := DefaultConfig()
	var s BehaviorScore
	added := cfg.apply(&s, KindHover, 600*time.Millisecond, epoch)
	if math.Abs(added-2.6) > 1e-9 {
		t.Errorf("hover added %v, want 2.6", added)
	}
	if s.Hovers != 1 || s.HoverDuration != 600*time.Millisecond {
		t.Errorf("hover counters = %d, %v", s.Hovers, s.HoverDuration)
	}
}

func TestApply_MonotoneProperty(t *testing.T) {
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))
	kinds := []Kind{KindView, KindHover, KindSearchAppearance, KindWishlistAdd, KindWishlistRemove, KindCartAdd, KindCartRemove, KindPurchase}

	for trial := 0; trial < 200; trial++ {
		var s BehaviorScore
		prevAction := ActionNone
		for step := 0; step < 30; step++ {
			kind := kinds[rng.Intn(len(kinds))]
			before := s
			cfg.apply(&s, kind, time.Duration(rng.Intn(3000))*time.Millisecond, epoch)

			switch kind {
			case KindWishlistRemove:
				if before.Wishlisted && s.Score != math.Max(0, before.Score-cfg.Weights.Wishlist) {
					t.Fatalf("wishlist remove: %v -> %v", before.Score, s.Score)
				}
			case KindCartRemove:
				if before.InCart && s.Score != math.Max(0, before.Score-cfg.Weights.Cart) {
					t.Fatalf("cart remove: %v -> %v", before.Score, s.Score)
				}
			default:
				if s.Score < before.Score {
					t.Fatalf("%s decreased score %v -> %v", kind, before.Score, s.Score)
				}
				if s.PredictedAction < prevAction {
					t.Fatalf("%s lowered action %v -> %v", kind, prevAction, s.PredictedAction)
				}
			}
			if s.Score < 0 || s.Confidence < 0 || s.Confidence > 100 {
				t.Fatalf("out of range: score %v confidence %v", s.Score, s.Confidence)
			}
			prevAction = s.PredictedAction
		}
	}
}

func TestActionText(t *testing.T) {
	for a := ActionNone; a <= ActionPurchase; a++ {
		b, _ := a.MarshalText()
		var back Action
		if err := back.UnmarshalText(b); err != nil || back != a {
			t.Errorf("round trip %v -> %s -> %v (%v)", a, b, back, err)
		}
	}
	if _, err := ParseAction("teleport"); err == nil {
		t.Error("ParseAction should reject unknown names")
	}
}
