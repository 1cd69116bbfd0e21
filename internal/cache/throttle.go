// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package cache

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/shopsense/internal/schedule"
)

// Throttle allows at most one call per interval for each key.
type Throttle struct {
	interval time.Duration
	clock    schedule.Clock

	mu       sync.Mutex
	limiters map[string]*throttleEntry
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewThrottle creates a keyed throttle. A non-positive interval disables it.
func NewThrottle(interval time.Duration, clock schedule.Clock) *Throttle {
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	return &Throttle{
		interval: interval,
		clock:    clock,
		limiters: make(map[string]*throttleEntry),
	}
}

// Allow reports whether a call for key may proceed now.
func (t *Throttle) Allow(key string) bool {
	if t.interval <= 0 {
		return true
	}
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.limiters[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(rate.Every(t.interval), 1)}
		t.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Prune drops limiters for keys not seen within idle and returns the count.
func (t *Throttle) Prune(idle time.Duration) int {
	cutoff := t.clock.Now().Add(-idle)

	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, e := range t.limiters {
		if e.lastSeen.Before(cutoff) {
			delete(t.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (t *Throttle) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.limiters)
}

// Wrap returns fn limited to one call per interval. Suppressed calls are
// dropped.
func Wrap(fn func(), interval time.Duration, clock schedule.Clock) func() bool {
	t := NewThrottle(interval, clock)
	return func() bool {
		if !t.Allow("") {
			return false
		}
		fn()
		return true
	}
}
