// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package schedule abstracts wall-clock time and timers so periodic work
// (cache sweeps, score recomputation, persistence flushes, bandit
// reallocation) can be driven deterministically in tests.
//
// Production code uses CronScheduler. Tests use Manual and call Advance.
package schedule

import (
	"sync"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// Cancel stops a scheduled task. Calling it more than once is a no-op.
type Cancel func()

// Scheduler runs functions periodically or once after a delay.
type Scheduler interface {
	Clock

	// Every runs fn every d until canceled.
	Every(d time.Duration, fn func()) Cancel

	// After runs fn once after d unless canceled first.
	After(d time.Duration, fn func()) Cancel
}

// SystemClock is the real wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// once wraps a cancel so repeated calls are harmless.
func once(fn func()) Cancel {
	var o sync.Once
	return func() { o.Do(fn) }
}

// Noop is a Cancel that does nothing.
func Noop() {}
