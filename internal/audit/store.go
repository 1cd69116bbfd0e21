// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shopsense/internal/store"
)

// MemoryStore is a bounded in-memory audit store. When full, the oldest
// tenth of the events is discarded.
type MemoryStore struct {
	events []Event
	mu     sync.RWMutex
	maxLen int
}

// NewMemoryStore creates a memory store holding at most maxLen events.
func NewMemoryStore(maxLen int) *MemoryStore {
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &MemoryStore{
		events: make([]Event, 0, maxLen),
		maxLen: maxLen,
	}
}

// Save appends an event.
func (s *MemoryStore) Save(ctx context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		removeCount := s.maxLen / 10
		if removeCount < 1 {
			removeCount = 1
		}
		s.events = s.events[removeCount:]
	}
	s.events = append(s.events, *event)
	return nil
}

// Query returns matching events, most recent first.
func (s *MemoryStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Event, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if !filter.matches(&s.events[i]) {
			continue
		}
		results = append(results, s.events[i])
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

// DeleteBefore removes events older than cutoff.
func (s *MemoryStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	for i := range s.events {
		if !s.events[i].Timestamp.Before(cutoff) {
			kept = append(kept, s.events[i])
		}
	}
	deleted := len(s.events) - len(kept)
	s.events = kept
	return deleted, nil
}

// Len returns the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

const kvPrefix = "audit:"

// KVStore persists audit events in the key/value store next to profiles,
// so the trail survives restarts when the store is Badger.
type KVStore struct {
	kv store.KV
}

// NewKVStore wraps kv.
func NewKVStore(kv store.KV) *KVStore {
	return &KVStore{kv: kv}
}

// eventKey orders keys by time: a zero-padded nanosecond timestamp sorts
// lexicographically in the same order as the instants it encodes.
func eventKey(event *Event) string {
	return fmt.Sprintf("%s%020d:%s", kvPrefix, event.Timestamp.UnixNano(), event.ID)
}

// Save persists one event.
func (s *KVStore) Save(ctx context.Context, event *Event) error {
	if err := store.SetJSON(ctx, s.kv, eventKey(event), event); err != nil {
		return fmt.Errorf("save audit event: %w", err)
	}
	return nil
}

// Query scans the trail and returns matching events, most recent first.
func (s *KVStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var all []Event
	err := s.kv.Scan(ctx, kvPrefix, func(key string, value []byte) error {
		var ev Event
		if err := json.Unmarshal(value, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		if filter.matches(&ev) {
			all = append(all, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}

	results := make([]Event, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		results = append(results, all[i])
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results, nil
}

// DeleteBefore removes events older than cutoff.
func (s *KVStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	bound := fmt.Sprintf("%s%020d", kvPrefix, cutoff.UnixNano())
	var stale []string
	err := s.kv.Scan(ctx, kvPrefix, func(key string, _ []byte) error {
		if key < bound {
			stale = append(stale, key)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan audit events: %w", err)
	}
	for i, key := range stale {
		if err := s.kv.Delete(ctx, key); err != nil {
			return i, fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return len(stale), nil
}
