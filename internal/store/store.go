// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Key prefixes.
const (
	profilePrefix       = "profile:"
	searchHistoryPrefix = "search_history:"
	assignmentsPrefix   = "ab_assignments:"
	resultsKey          = "ab_results"
)

// MaxValueSize bounds a single stored value.
const MaxValueSize = 2 << 20

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("store: key not found")

	// ErrValueTooLarge is returned when a value exceeds MaxValueSize.
	ErrValueTooLarge = errors.New("store: value too large")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store: closed")
)

// KV is a byte-oriented key/value store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error
	Close() error
}

// ProfileKey is the key of a session's behavior profile.
func ProfileKey(session string) string { return profilePrefix + session }

// SearchHistoryKey is the key of a session's search history.
func SearchHistoryKey(session string) string { return searchHistoryPrefix + session }

// AssignmentsKey is the key of a session's experiment assignments.
func AssignmentsKey(session string) string { return assignmentsPrefix + session }

// ResultsKey is the key of the experiment results document.
func ResultsKey() string { return resultsKey }

// SessionKeys lists every key owned by a session.
func SessionKeys(session string) []string {
	return []string{ProfileKey(session), SearchHistoryKey(session), AssignmentsKey(session)}
}

// GetJSON loads key into out.
func GetJSON(ctx context.Context, kv KV, key string, out any) error {
	data, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON stores v under key.
func SetJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}

func checkSize(key string, value []byte) error {
	if len(value) > MaxValueSize {
		return fmt.Errorf("%s (%d bytes): %w", key, len(value), ErrValueTooLarge)
	}
	return nil
}
