// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package store is the key/value persistence layer for behavior profiles,
// search history, and experiment state.
//
// Two backends implement KV: BadgerKV (github.com/dgraph-io/badger/v4, on
// disk or in memory) and MemoryKV (a map, for tests and ephemeral runs).
// Values are JSON documents encoded with github.com/goccy/go-json through
// GetJSON and SetJSON.
//
// Key layout:
//
//	profile:<session>          behavior profile and per-product scores
//	search_history:<session>   recent normalized queries
//	ab_assignments:<session>   experiment id -> variant id
//	ab_results                 per-experiment variant counters and weights
package store
