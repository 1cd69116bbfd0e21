// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package algorithms implements the transaction-trained models used by the
// recommendation aggregator.
//
// # Models
//
//   - Collaborative: item-item cosine similarity over the binary
//     customer × product purchase matrix ("customers who bought X also bought Y").
//   - Basket: a two-item Apriori pass producing directional association
//     rules with support, confidence and lift ("frequently bought with X").
//
// Both are rebuilt from the full order history on every Train call; there
// is no incremental update. Between rebuilds they may lag the live behavior
// store, and the aggregator treats that lag as acceptable.
//
// # Thread Safety
//
// All models are safe for concurrent use. Training builds the new model
// without holding the lock and swaps it in under an exclusive lock, so
// queries keep answering from the previous model while a rebuild runs.
package algorithms
