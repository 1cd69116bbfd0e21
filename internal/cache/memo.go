// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// Config bounds a Memo.
type Config struct {
	// MaxAge is the age past which Sweep drops an entry regardless of use.
	MaxAge time.Duration

	// MaxEntries is the entry count above which least-recently-accessed
	// entries are evicted.
	MaxEntries int

	// SweepInterval is how often Open schedules Sweep. Zero disables it.
	SweepInterval time.Duration
}

// DefaultConfig returns the bounds used by the recommendation caches.
func DefaultConfig() Config {
	return Config{
		MaxAge:        10 * time.Minute,
		MaxEntries:    5000,
		SweepInterval: time.Minute,
	}
}

// Entry is a cached payload with its bookkeeping.
type Entry[V any] struct {
	Value      V
	WrittenAt  time.Time
	LastAccess time.Time
	Hits       int64
	Size       int
}

// node is an Entry threaded on the recency list. head.next is the most
// recently accessed entry, tail.prev the least.
type node[V any] struct {
	key   string
	entry Entry[V]
	prev  *node[V]
	next  *node[V]
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits         int64
	Misses       int64
	Evictions    int64
	Entries      int
	Bytes        int
	LastSweep    time.Time
	Deduplicated int64
}

// Memo is a bounded TTL+LRU map with request de-duplication.
//
// Memoize returns a cached value younger than the caller's ttl, otherwise it
// computes one. Concurrent Memoize calls for the same key share a single
// computation. Sweep removes entries older than MaxAge and then trims the
// least-recently-accessed entries while the map exceeds MaxEntries.
type Memo[V any] struct {
	name   string
	cfg    Config
	clock  schedule.Clock
	sizeOf func(V) int

	mu    sync.Mutex
	items map[string]*node[V]
	head  *node[V]
	tail  *node[V]
	stats Stats

	group  singleflight.Group
	cancel schedule.Cancel
}

// NewMemo creates a Memo. name labels its metrics.
func NewMemo[V any](name string, cfg Config, clock schedule.Clock) *Memo[V] {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultConfig().MaxEntries
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultConfig().MaxAge
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	m := &Memo[V]{
		name:   name,
		cfg:    cfg,
		clock:  clock,
		items:  make(map[string]*node[V]),
		head:   &node[V]{},
		tail:   &node[V]{},
		cancel: schedule.Noop,
	}
	m.head.next = m.tail
	m.tail.prev = m.head
	return m
}

// WithSizeFunc sets the serialized-size estimator recorded on each entry.
func (m *Memo[V]) WithSizeFunc(fn func(V) int) *Memo[V] {
	m.sizeOf = fn
	return m
}

// Open schedules the periodic sweep.
func (m *Memo[V]) Open(s schedule.Scheduler) {
	if m.cfg.SweepInterval <= 0 || s == nil {
		return
	}
	m.mu.Lock()
	m.cancel()
	m.cancel = s.Every(m.cfg.SweepInterval, func() { m.Sweep(s.Now()) })
	m.mu.Unlock()
}

// Close cancels the periodic sweep. Entries stay readable.
func (m *Memo[V]) Close() {
	m.mu.Lock()
	m.cancel()
	m.cancel = schedule.Noop
	m.mu.Unlock()
}

// Memoize returns the value cached under key if it was written less than ttl
// ago; otherwise it runs compute, stores a successful result, and returns it.
// Errors from compute are returned and not cached.
func (m *Memo[V]) Memoize(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	if v, ok := m.getFresh(key, ttl); ok {
		return v, nil
	}

	res, err, shared := m.group.Do(key, func() (interface{}, error) {
		// Another flight may have filled the key between our miss and Do.
		if v, ok := m.peekFresh(key, ttl); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		m.Set(key, v)
		return v, nil
	})
	if shared {
		m.mu.Lock()
		m.stats.Deduplicated++
		m.mu.Unlock()
	}
	if err != nil {
		var zero V
		if v, ok := res.(V); ok {
			return v, fmt.Errorf("memoize %s: %w", key, err)
		}
		return zero, fmt.Errorf("memoize %s: %w", key, err)
	}
	return res.(V), nil
}

// Get returns a cached value of any age, refreshing its recency.
func (m *Memo[V]) Get(key string) (V, bool) {
	return m.getFresh(key, 0)
}

// Entry returns a copy of the bookkeeping for key without touching recency.
func (m *Memo[V]) Entry(key string) (Entry[V], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[key]
	if !ok {
		return Entry[V]{}, false
	}
	return n.entry, true
}

// getFresh looks key up, treating entries older than ttl as misses. ttl <= 0
// accepts any age.
func (m *Memo[V]) getFresh(key string, ttl time.Duration) (V, bool) {
	now := m.clock.Now()

	m.mu.Lock()
	n, ok := m.items[key]
	if !ok || (ttl > 0 && now.Sub(n.entry.WrittenAt) >= ttl) {
		m.stats.Misses++
		m.mu.Unlock()
		metrics.RecordCacheMiss(m.name)
		var zero V
		return zero, false
	}
	n.entry.Hits++
	n.entry.LastAccess = now
	m.moveToFront(n)
	m.stats.Hits++
	v := n.entry.Value
	m.mu.Unlock()

	metrics.RecordCacheHit(m.name)
	return v, true
}

// peekFresh is getFresh without stats or recency updates.
func (m *Memo[V]) peekFresh(key string, ttl time.Duration) (V, bool) {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.items[key]
	if !ok || (ttl > 0 && now.Sub(n.entry.WrittenAt) >= ttl) {
		var zero V
		return zero, false
	}
	return n.entry.Value, true
}

// Set stores value under key and trims the map if it grew past MaxEntries.
func (m *Memo[V]) Set(key string, value V) {
	now := m.clock.Now()
	size := 0
	if m.sizeOf != nil {
		size = m.sizeOf(value)
	}

	m.mu.Lock()
	if n, ok := m.items[key]; ok {
		m.stats.Bytes += size - n.entry.Size
		n.entry.Value = value
		n.entry.WrittenAt = now
		n.entry.LastAccess = now
		n.entry.Size = size
		m.moveToFront(n)
	} else {
		n := &node[V]{key: key, entry: Entry[V]{Value: value, WrittenAt: now, LastAccess: now, Size: size}}
		m.items[key] = n
		m.addToFront(n)
		m.stats.Bytes += size
	}
	evicted := m.trimLocked()
	entries := len(m.items)
	m.mu.Unlock()

	if evicted > 0 {
		metrics.RecordCacheEvictions(m.name, "lru", evicted)
	}
	metrics.SetCacheEntries(m.name, entries)
}

// Delete removes key.
func (m *Memo[V]) Delete(key string) {
	m.mu.Lock()
	if n, ok := m.items[key]; ok {
		m.removeLocked(n)
	}
	m.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and returns the count.
func (m *Memo[V]) DeletePrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, n := range m.items {
		if strings.HasPrefix(key, prefix) {
			m.removeLocked(n)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries.
func (m *Memo[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats returns a snapshot of cache statistics.
func (m *Memo[V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Entries = len(m.items)
	return s
}

// Sweep drops entries written more than MaxAge before now, then evicts
// least-recently-accessed entries until the map fits MaxEntries. It returns
// the number of entries removed.
func (m *Memo[V]) Sweep(now time.Time) int {
	m.mu.Lock()
	expired := 0
	for n := m.tail.prev; n != m.head; {
		prev := n.prev
		if now.Sub(n.entry.WrittenAt) > m.cfg.MaxAge {
			m.removeLocked(n)
			expired++
		}
		n = prev
	}
	m.stats.Evictions += int64(expired)
	trimmed := m.trimLocked()
	m.stats.LastSweep = now
	entries := len(m.items)
	m.mu.Unlock()

	if expired > 0 {
		metrics.RecordCacheEvictions(m.name, "expired", expired)
	}
	if trimmed > 0 {
		metrics.RecordCacheEvictions(m.name, "lru", trimmed)
	}
	metrics.SetCacheEntries(m.name, entries)
	return expired + trimmed
}

// trimLocked evicts from the tail while over capacity. Must hold mu.
func (m *Memo[V]) trimLocked() int {
	evicted := 0
	for len(m.items) > m.cfg.MaxEntries {
		lru := m.tail.prev
		if lru == m.head {
			break
		}
		m.removeLocked(lru)
		evicted++
	}
	m.stats.Evictions += int64(evicted)
	return evicted
}

func (m *Memo[V]) removeLocked(n *node[V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
	delete(m.items, n.key)
	m.stats.Bytes -= n.entry.Size
}

func (m *Memo[V]) addToFront(n *node[V]) {
	n.prev = m.head
	n.next = m.head.next
	m.head.next.prev = n
	m.head.next = n
}

func (m *Memo[V]) moveToFront(n *node[V]) {
	n.prev.next = n.next
	n.next.prev = n.prev
	m.addToFront(n)
}
