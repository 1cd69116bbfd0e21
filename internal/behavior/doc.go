// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package behavior records storefront interaction events per session and
derives per-product intent.

Each session owns a Profile: search history, category/brand/feature
preference weights, the observed price range, wishlist/cart/purchase sets,
and a BehaviorScore per product. Every event adds its weight from the
configured table to the product's cumulative score; removals subtract the
matching add weight, never below zero. The score is then placed on the
ascending threshold ladder view < wishlist < cart < purchase to yield a
PredictedAction with a confidence in [0,100] that decays after 24h and 72h
without interaction.

# Search

TrackSearch normalizes the query, pushes it onto a bounded,
most-recent-first history, and runs it through a keyword automaton that maps
terms to product types and flags comparative ("vs", "best") and
instructional ("how to", "size chart") intent. Searches with no results go
to a global gap log.

# Persistence

Profiles load lazily from the store. Wishlist, cart, and purchase changes
persist immediately; everything else is coalesced per session by a
cache.Batcher and swept by the periodic flush. Unreadable records are
discarded and the profile starts empty.

Every tracked event publishes events.BehaviorTracked.
*/
package behavior
