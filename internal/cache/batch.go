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

// Batcher coalesces repeated work for a key into one deferred execution.
//
// The first Batch call for an idle key schedules execution after delay.
// Calls that arrive before it runs replace the pending work without moving
// the deadline, so the latest submitted work is what runs.
type Batcher struct {
	sched schedule.Scheduler

	mu      sync.Mutex
	pending map[string]*batchEntry
	closed  bool
}

type batchEntry struct {
	work   func()
	cancel schedule.Cancel
}

// NewBatcher creates a Batcher that defers work on s.
func NewBatcher(s schedule.Scheduler) *Batcher {
	return &Batcher{sched: s, pending: make(map[string]*batchEntry)}
}

// Batch submits work for key. It reports whether a new window was opened.
func (b *Batcher) Batch(key string, work func(), delay time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	if e, ok := b.pending[key]; ok {
		e.work = work
		return false
	}
	e := &batchEntry{work: work}
	b.pending[key] = e
	e.cancel = b.sched.After(delay, func() { b.run(key, e) })
	return true
}

func (b *Batcher) run(key string, e *batchEntry) {
	b.mu.Lock()
	if cur, ok := b.pending[key]; !ok || cur != e {
		b.mu.Unlock()
		return
	}
	delete(b.pending, key)
	work := e.work
	b.mu.Unlock()

	work()
}

// Pending returns the number of keys awaiting execution.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Flush runs all pending work now, on the calling goroutine.
func (b *Batcher) Flush() {
	b.mu.Lock()
	works := make([]func(), 0, len(b.pending))
	for key, e := range b.pending {
		e.cancel()
		works = append(works, e.work)
		delete(b.pending, key)
	}
	b.mu.Unlock()

	for _, w := range works {
		w()
	}
}

// Close cancels all pending work and rejects further submissions.
func (b *Batcher) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for key, e := range b.pending {
		e.cancel()
		delete(b.pending, key)
	}
}
