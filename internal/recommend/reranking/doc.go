// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package reranking reorders storefront product lists for a session.
//
// A list arrives in its natural order (a collection page, search results).
// Each enabled strategy that applies to the session's segment proposes its
// own order, and Blend merges the proposal into the current list position
// by position: with probability w the next item comes from the proposal,
// otherwise from the current order. Strategies run one after another, each
// blending into the previous result.
//
// # Strategies
//
//	personalization  moderate    segment != new       scoring personalized sub-score
//	urgency          subtle      always               critical/low stock, on sale
//	inventory        subtle      always               scoring inventory sub-score
//	margin           subtle      returning and above  scoring margin sub-score
//	trending         moderate    new, returning       scoring trending sub-score
//	cross_sell       aggressive  cart not empty       relation to cart items
//
// The blend weight of a strategy is
//
//	clamp(base × subtlety × class, 0, 1)
//
// where subtlety is 0.4, 0.7 or 1.0 for subtle, balanced and bold, and the
// class multiplier is 0.5, 0.75 or 1.0. The personalization weight is also
// scaled by the session's personalization strength.
//
// # Segments
//
// SegmentRules.Classify derives new, returning, loyal or high-value from
// cart, wishlist, search and prediction counts. When the segmentation
// enrichment is configured and answers with a known segment, its answer
// wins.
//
// # Experiments
//
// A Variants implementation (the experiment controller) may supply the
// session's settings. Results then carry the experiment and variant ids and
// the recommendation.applied event is attributed to them.
//
// # Guarantees
//
// The output is always a permutation of the de-duplicated input. Reorder
// never fails; with no applicable strategy it returns the input order.
package reranking
