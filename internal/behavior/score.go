// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"math"
	"time"
)

// apply folds one product event into s and returns the weight it added (0
// for removals and no-ops). Removals subtract exactly the add weight and
// floor the score at zero; a removal without matching membership does
// nothing.
func (c *Config) apply(s *BehaviorScore, kind Kind, d time.Duration, at time.Time) float64 {
	w := c.Weights
	var added float64

	switch kind {
	case KindView:
		s.Views++
		added = w.View
	case KindHover:
		s.Hovers++
		s.HoverDuration += d
		added = w.Hover + w.HoverPerSecond*d.Seconds()
	case KindSearchAppearance:
		s.SearchAppearances++
		added = w.SearchAppearance
	case KindWishlistAdd:
		if !s.Wishlisted {
			s.Wishlisted = true
			added = w.Wishlist
		}
	case KindCartAdd:
		if !s.InCart {
			s.InCart = true
			added = w.Cart
		}
	case KindPurchase:
		s.Purchased = true
		added = w.Purchase
	case KindWishlistRemove:
		if s.Wishlisted {
			s.Wishlisted = false
			s.Score = math.Max(0, s.Score-w.Wishlist)
		}
	case KindCartRemove:
		if s.InCart {
			s.InCart = false
			s.Score = math.Max(0, s.Score-w.Cart)
		}
	}

	s.Score += added
	s.LastInteraction = at
	s.PredictedAction, s.Confidence = c.predict(s.Score, s.LastInteraction, at)
	return added
}

// predict maps a cumulative score to the highest action whose threshold it
// reaches, with confidence min(100, score/threshold*50) discounted for
// inactivity since last.
func (c *Config) predict(score float64, last, now time.Time) (Action, float64) {
	t := c.Thresholds
	action := ActionNone
	switch {
	case score >= t.Purchase:
		action = ActionPurchase
	case score >= t.Cart:
		action = ActionCart
	case score >= t.Wishlist:
		action = ActionWishlist
	case score >= t.View:
		action = ActionView
	}
	if action == ActionNone {
		return ActionNone, 0
	}

	confidence := math.Min(100, score/t.For(action)*50)
	switch age := now.Sub(last); {
	case age > c.ExpiredAfter:
		confidence *= c.ExpiredFactor
	case age > c.StaleAfter:
		confidence *= c.StaleFactor
	}
	return action, clamp(confidence, 0, 100)
}

// decayed returns a copy of s with confidence evaluated at now.
func (c *Config) decayed(s BehaviorScore, now time.Time) BehaviorScore {
	s.PredictedAction, s.Confidence = c.predict(s.Score, s.LastInteraction, now)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
