// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package store

import "fmt"

// Type selects a KV backend.
type Type string

const (
	// TypeMemory keeps state in process memory only.
	TypeMemory Type = "memory"

	// TypeBadger persists state in BadgerDB.
	TypeBadger Type = "badger"
)

// Config selects and configures the backend.
type Config struct {
	Type     Type   `koanf:"type"`
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`
}

// Open creates the configured KV. An empty Type selects memory.
func Open(cfg Config) (KV, error) {
	switch cfg.Type {
	case TypeMemory, "":
		return NewMemoryKV(), nil
	case TypeBadger:
		if cfg.Path == "" && !cfg.InMemory {
			return nil, fmt.Errorf("store: badger requires a path")
		}
		return OpenBadger(cfg.Path, cfg.InMemory)
	default:
		return nil, fmt.Errorf("store: unknown type %q", cfg.Type)
	}
}
