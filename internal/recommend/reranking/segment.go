// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import "github.com/tomtom215/shopsense/internal/behavior"

// Classify derives the rule-based segment of a profile. Rules are checked
// from the most to the least engaged segment.
func (r SegmentRules) Classify(p *behavior.Profile) Segment {
	if p == nil {
		return SegmentNew
	}
	cart := p.Cart.Cardinality()
	wishlist := p.Wishlist.Cardinality()

	switch {
	case cart >= r.HighValueCart || cart+wishlist >= r.HighValueCombined:
		return SegmentHighValue
	case wishlist >= r.LoyalWishlist || len(p.Predictions(behavior.ActionWishlist)) >= r.LoyalPredictions:
		return SegmentLoyal
	case len(p.SearchHistory) >= r.ReturningSearches || len(p.Predictions(behavior.ActionView)) >= r.ReturningPredictions:
		return SegmentReturning
	default:
		return SegmentNew
	}
}
