// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package schedule

import (
	"sync"
	"time"
)

// Manual is a Scheduler whose clock only moves when Advance or Set is called.
// Tasks fire synchronously inside Advance, in due-time order, without the
// internal lock held, so tasks may schedule or cancel other tasks.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks map[uint64]*manualTask
}

type manualTask struct {
	id     uint64
	due    time.Time
	period time.Duration
	fn     func()
}

// NewManual creates a manual scheduler starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start, tasks: make(map[uint64]*manualTask)}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers a periodic task first due at Now()+d.
func (m *Manual) Every(d time.Duration, fn func()) Cancel {
	if d <= 0 {
		return Noop
	}
	return m.add(d, d, fn)
}

// After registers a one-shot task due at Now()+d.
func (m *Manual) After(d time.Duration, fn func()) Cancel {
	if d < 0 {
		d = 0
	}
	return m.add(d, 0, fn)
}

func (m *Manual) add(delay, period time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := m.seq
	m.tasks[id] = &manualTask{id: id, due: m.now.Add(delay), period: period, fn: fn}
	return once(func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	})
}

// Advance moves the clock forward by d, firing every task that comes due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()
	m.runUntil(target)
}

// Set moves the clock to t (never backwards), firing due tasks.
func (m *Manual) Set(t time.Time) {
	m.runUntil(t)
}

func (m *Manual) runUntil(target time.Time) {
	for {
		m.mu.Lock()
		next := m.nextDue(target)
		if next == nil {
			if target.After(m.now) {
				m.now = target
			}
			m.mu.Unlock()
			return
		}
		if next.due.After(m.now) {
			m.now = next.due
		}
		fn := next.fn
		if next.period > 0 {
			next.due = next.due.Add(next.period)
		} else {
			delete(m.tasks, next.id)
		}
		m.mu.Unlock()

		fn()
	}
}

// nextDue returns the earliest task due at or before target. Ties go to the
// task registered first. Must be called with mu held.
func (m *Manual) nextDue(target time.Time) *manualTask {
	var best *manualTask
	for _, t := range m.tasks {
		if t.due.After(target) {
			continue
		}
		if best == nil || t.due.Before(best.due) || (t.due.Equal(best.due) && t.id < best.id) {
			best = t
		}
	}
	return best
}

// Pending returns the number of registered tasks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
