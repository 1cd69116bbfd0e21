// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-json"
)

var (
	// ErrCartUnavailable wraps cart mutation failures surfaced to callers.
	ErrCartUnavailable = errors.New("catalog: cart unavailable")

	// ErrNoCart is returned by sources that do not manage carts.
	ErrNoCart = errors.New("catalog: source has no cart")
)

// Source fetches collaborator data.
type Source interface {
	Fetch(ctx context.Context) (Data, error)
}

// CartSource reads and mutates session carts.
type CartSource interface {
	Cart(ctx context.Context, sessionID string) (CartState, error)
	AddToCart(ctx context.Context, sessionID, productID string, quantity int) (CartState, error)
	RemoveFromCart(ctx context.Context, sessionID, productID string) (CartState, error)
}

// FileSource reads Data from a JSON file on every fetch.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (f FileSource) Fetch(ctx context.Context) (Data, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return Data{}, fmt.Errorf("read catalog seed %s: %w", f.Path, err)
	}
	var d Data
	if err := json.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("decode catalog seed %s: %w", f.Path, err)
	}
	return d, nil
}

// StaticSource serves fixed data and an in-memory cart.
type StaticSource struct {
	mu    sync.Mutex
	data  Data
	err   error
	carts map[string]CartState
}

// NewStaticSource creates a StaticSource serving d.
func NewStaticSource(d Data) *StaticSource {
	return &StaticSource{data: d, carts: make(map[string]CartState)}
}

// Set replaces the served data.
func (s *StaticSource) Set(d Data) {
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
}

// FailWith makes Fetch return err until cleared with nil.
func (s *StaticSource) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Fetch implements Source.
func (s *StaticSource) Fetch(ctx context.Context) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return Data{}, s.err
	}
	return s.data, nil
}

// Cart implements CartSource.
func (s *StaticSource) Cart(_ context.Context, sessionID string) (CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.carts[sessionID]
	c.SessionID = sessionID
	return c, nil
}

// AddToCart implements CartSource.
func (s *StaticSource) AddToCart(_ context.Context, sessionID, productID string, quantity int) (CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return CartState{}, fmt.Errorf("add %s: %w", productID, ErrCartUnavailable)
	}
	quantity = Count(quantity)
	price := 0.0
	for _, p := range s.data.Products {
		if p.ID == productID {
			price = Number(p.Price)
		}
	}
	c := s.carts[sessionID]
	c.SessionID = sessionID
	merged := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += quantity
			merged = true
		}
	}
	if !merged {
		c.Items = append(c.Items, LineItem{ProductID: productID, Quantity: quantity, Price: price})
	}
	c.Total = cartTotal(c.Items)
	s.carts[sessionID] = c
	return c, nil
}

// RemoveFromCart implements CartSource.
func (s *StaticSource) RemoveFromCart(_ context.Context, sessionID, productID string) (CartState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return CartState{}, fmt.Errorf("remove %s: %w", productID, ErrCartUnavailable)
	}
	c := s.carts[sessionID]
	c.SessionID = sessionID
	kept := c.Items[:0]
	for _, li := range c.Items {
		if li.ProductID != productID {
			kept = append(kept, li)
		}
	}
	c.Items = kept
	c.Total = cartTotal(c.Items)
	s.carts[sessionID] = c
	return c, nil
}

func cartTotal(items []LineItem) float64 {
	var total float64
	for _, li := range items {
		total += li.Price * float64(li.Quantity)
	}
	return total
}
