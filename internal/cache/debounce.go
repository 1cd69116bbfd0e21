// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package cache

import (
	"sync"
	"time"

	"github.com/tomtom215/shopsense/internal/schedule"
)

// Debouncer delays keyed calls until delay has passed without a new call.
//
// In trailing mode a Trigger cancels any pending call for the key and
// schedules fn after delay. In immediate mode the first Trigger runs fn at
// once and later Triggers are suppressed until delay of quiet has passed.
type Debouncer struct {
	sched     schedule.Scheduler
	delay     time.Duration
	immediate bool

	mu      sync.Mutex
	pending map[string]*debounceEntry
}

type debounceEntry struct {
	cancel schedule.Cancel
}

// NewDebouncer creates a Debouncer on s.
func NewDebouncer(s schedule.Scheduler, delay time.Duration, immediate bool) *Debouncer {
	return &Debouncer{
		sched:     s,
		delay:     delay,
		immediate: immediate,
		pending:   make(map[string]*debounceEntry),
	}
}

// Trigger submits fn for key. It reports whether fn ran synchronously.
func (d *Debouncer) Trigger(key string, fn func()) bool {
	d.mu.Lock()
	prev, busy := d.pending[key]
	if busy {
		prev.cancel()
	}
	e := &debounceEntry{}
	d.pending[key] = e

	runNow := d.immediate && !busy
	e.cancel = d.sched.After(d.delay, func() {
		d.mu.Lock()
		if d.pending[key] != e {
			d.mu.Unlock()
			return
		}
		delete(d.pending, key)
		d.mu.Unlock()
		if !d.immediate {
			fn()
		}
	})
	d.mu.Unlock()

	if runNow {
		fn()
	}
	return runNow
}

// Pending reports whether key has a pending call or suppression window.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Cancel drops the pending call for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.pending[key]; ok {
		e.cancel()
		delete(d.pending, key)
	}
}

// Close cancels every pending call.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, e := range d.pending {
		e.cancel()
		delete(d.pending, key)
	}
}
