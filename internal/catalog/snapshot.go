// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import "time"

// Snapshot is an immutable, sanitized, indexed copy of collaborator data.
// Callers must not modify the slices it returns.
type Snapshot struct {
	products    []Product
	byID        map[string]int
	collections []Collection
	orders      []Order
	fetchedAt   time.Time
}

// NewSnapshot sanitizes d and indexes its products. Products without an id
// are dropped; a repeated id keeps the last record.
func NewSnapshot(d Data, fetchedAt time.Time) *Snapshot {
	s := &Snapshot{
		products:    make([]Product, 0, len(d.Products)),
		byID:        make(map[string]int, len(d.Products)),
		collections: append([]Collection(nil), d.Collections...),
		orders:      make([]Order, 0, len(d.Orders)),
		fetchedAt:   fetchedAt,
	}
	for _, p := range d.Products {
		if p.ID == "" {
			continue
		}
		p = Sanitize(p)
		if i, ok := s.byID[p.ID]; ok {
			s.products[i] = p
			continue
		}
		s.byID[p.ID] = len(s.products)
		s.products = append(s.products, p)
	}
	for _, o := range d.Orders {
		if o = SanitizeOrder(o); len(o.Items) > 0 {
			s.orders = append(s.orders, o)
		}
	}
	return s
}

// Empty returns a snapshot with no data.
func Empty() *Snapshot {
	return NewSnapshot(Data{}, time.Time{})
}

// Product looks up a product by id.
func (s *Snapshot) Product(id string) (Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.products[i], true
}

// Products returns all products in collaborator order.
func (s *Snapshot) Products() []Product { return s.products }

// Collections returns all collections.
func (s *Snapshot) Collections() []Collection { return s.collections }

// Collection looks up a collection by id or handle.
func (s *Snapshot) Collection(idOrHandle string) (Collection, bool) {
	for _, c := range s.collections {
		if c.ID == idOrHandle || c.Handle == idOrHandle {
			return c, true
		}
	}
	return Collection{}, false
}

// Orders returns the transaction history.
func (s *Snapshot) Orders() []Order { return s.orders }

// Len returns the number of products.
func (s *Snapshot) Len() int { return len(s.products) }

// FetchedAt is when the underlying data was fetched.
func (s *Snapshot) FetchedAt() time.Time { return s.fetchedAt }
