// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// Catalog holds the current Snapshot and refreshes it from a Source.
type Catalog struct {
	source    Source
	carts     CartSource
	publisher events.Publisher
	clock     schedule.Clock
	logger    zerolog.Logger

	current atomic.Pointer[Snapshot]
}

// New creates a Catalog with an empty snapshot. carts may be nil when the
// source has no cart API.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(source Source, carts CartSource, publisher events.Publisher, clock schedule.Clock, logger zerolog.Logger) *Catalog {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}
	c := &Catalog{
		source:    source,
		carts:     carts,
		publisher: publisher,
		clock:     clock,
		logger:    logger.With().Str("component", "catalog").Logger(),
	}
	c.current.Store(Empty())
	return c
}

// Snapshot returns the current snapshot. It is never nil.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Refresh fetches and installs a new snapshot. On failure the previous
// snapshot stays in place and the error is returned.
func (c *Catalog) Refresh(ctx context.Context) error {
	d, err := c.source.Fetch(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Int("kept_products", c.Snapshot().Len()).Msg("catalog refresh failed, keeping previous snapshot")
		return fmt.Errorf("refresh catalog: %w", err)
	}
	snap := NewSnapshot(d, c.clock.Now())
	c.current.Store(snap)
	metrics.SetCatalogProducts(snap.Len())

	c.logger.Debug().
		Int("products", snap.Len()).
		Int("collections", len(snap.Collections())).
		Int("orders", len(snap.Orders())).
		Msg("catalog refreshed")

	c.publisher.Publish(ctx, events.CatalogRefreshed{
		Products:    snap.Len(),
		Collections: len(snap.Collections()),
		Orders:      len(snap.Orders()),
		At:          snap.FetchedAt(),
	})
	return nil
}

// Cart returns a session's cart. An unavailable cart reads as empty.
func (c *Catalog) Cart(ctx context.Context, sessionID string) CartState {
	if c.carts == nil {
		return CartState{SessionID: sessionID}
	}
	cart, err := c.carts.Cart(ctx, sessionID)
	if err != nil {
		c.logger.Debug().Err(err).Str("session_id", sessionID).Msg("cart read failed")
		return CartState{SessionID: sessionID}
	}
	return cart
}

// AddToCart mutates the cart. Errors are surfaced for user-facing retry.
func (c *Catalog) AddToCart(ctx context.Context, sessionID, productID string, quantity int) (CartState, error) {
	if c.carts == nil {
		return CartState{}, ErrNoCart
	}
	return c.carts.AddToCart(ctx, sessionID, productID, quantity)
}

// RemoveFromCart mutates the cart. Errors are surfaced for user-facing retry.
func (c *Catalog) RemoveFromCart(ctx context.Context, sessionID, productID string) (CartState, error) {
	if c.carts == nil {
		return CartState{}, ErrNoCart
	}
	return c.carts.RemoveFromCart(ctx, sessionID, productID)
}
