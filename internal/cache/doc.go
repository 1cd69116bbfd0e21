// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package cache provides the in-process memoization and rate-shaping
primitives shared by the scoring, recommendation, and behavior components.

# Memo

Memo is a generic TTL map with least-recently-used trimming and request
de-duplication:

	scores := cache.NewMemo[[]scoring.ProductScore]("scores", cache.DefaultConfig(), clock)
	scores.Open(scheduler)
	defer scores.Close()

	out, err := scores.Memoize(ctx, "scores:"+sessionID, 30*time.Second, compute)

Concurrent Memoize calls for the same key wait on one computation
(golang.org/x/sync/singleflight). A periodic Sweep drops entries older than
Config.MaxAge and then trims the oldest-accessed entries while the map holds
more than Config.MaxEntries.

# Batcher, Throttle, Debouncer

  - Batcher defers keyed work; resubmitting within the window replaces the
    work without extending the window.
  - Throttle admits one call per interval per key using golang.org/x/time/rate.
  - Debouncer runs keyed work after a quiet period, or on the leading edge
    in immediate mode. A new Trigger supersedes the pending one.

# AhoCorasick

AhoCorasick matches many patterns in one pass. NewWordMatcher only reports
whole words (plurals allowed); each pattern carries caller Data returned
with its matches. Behavior uses it for search intent keywords.

All timers come from a schedule.Scheduler so tests drive them with
schedule.Manual.

# Thread Safety

Every type in this package is safe for concurrent use.
*/
package cache
