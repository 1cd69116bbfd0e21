// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package scoring computes a multi-factor ProductScore for every catalog
// product from a session's behavior profile and the product's attributes.
//
// Five sub-scores are computed independently and each is clamped to its own
// range:
//
//	personalized  [0,100]  category preference, wishlist, cart, price range
//	trending      [0,60]   new listing, high intent, performance/promo tags, demand forecast
//	inventory     [-20,30] purchasable, low-stock urgency, unavailable penalty
//	margin        [0,50]   discount depth or price tier, high-margin category
//	conversion    [0,50]   purchase probability, cart/purchase intent, bundle tags, sentiment
//
// TotalScore is the sum of the sub-scores times a business multiplier that
// grows with price tier and estimated margin. Every rule that fires adds a
// human-readable reason and a booster name, so a score can be explained.
//
// ScoreProduct is pure. Engine wraps it with per-session memoization,
// enrichment lookups and debounced invalidation on high-impact events.
package scoring
