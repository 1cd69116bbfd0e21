// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package enrichment calls the optional remote scoring endpoints: sentiment,
// segmentation, demand forecast and behavior pattern.
//
// Every call is a single JSON POST with a per-call timeout and no retries.
// Each endpoint sits behind its own gobreaker circuit breaker, so a failing
// endpoint stops receiving traffic until its cooldown elapses. Non-2xx
// responses, undecodable bodies and bodies that fail validator tags all
// count as failures.
//
// Callers never see an error: each method returns ok=false when the value
// is unavailable and the caller falls back to its deterministic rule. An
// endpoint without a configured URL is unavailable without a network call,
// and a nil *Client has every endpoint unavailable.
package enrichment
