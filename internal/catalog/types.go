// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import (
	"strings"
	"time"
)

// Product is a catalog item as supplied by the collaborator.
type Product struct {
	ID             string    `json:"id"`
	Handle         string    `json:"handle"`
	Title          string    `json:"title"`
	Price          float64   `json:"price"`
	CompareAtPrice float64   `json:"compare_at_price,omitempty"`
	Inventory      int       `json:"inventory"`
	Available      bool      `json:"available"`
	Tags           []string  `json:"tags,omitempty"`
	Vendor         string    `json:"vendor,omitempty"`
	ProductType    string    `json:"product_type,omitempty"`
	Images         []string  `json:"images,omitempty"`
	Collections    []string  `json:"collections,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// OnSale reports whether the product is discounted from its compare-at price.
func (p Product) OnSale() bool {
	return p.CompareAtPrice > p.Price && p.Price > 0
}

// Discount returns the fractional discount from the compare-at price, or 0.
func (p Product) Discount() float64 {
	if !p.OnSale() {
		return 0
	}
	return (p.CompareAtPrice - p.Price) / p.CompareAtPrice
}

// HasTag reports whether the product carries tag, ignoring case.
func (p Product) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Purchasable reports whether the product can be bought now.
func (p Product) Purchasable() bool {
	return p.Available && p.Inventory > 0
}

// Collection groups products.
type Collection struct {
	ID         string   `json:"id"`
	Handle     string   `json:"handle"`
	Title      string   `json:"title"`
	ProductIDs []string `json:"product_ids"`
}

// LineItem is one product line in an order or cart.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is a completed transaction.
type Order struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id,omitempty"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
}

// Customer identifies the purchaser. Guest orders fall back to the order id.
func (o Order) Customer() string {
	if o.UserID != "" {
		return o.UserID
	}
	return "order:" + o.ID
}

// Total returns the order value.
func (o Order) Total() float64 {
	var total float64
	for _, li := range o.Items {
		total += li.Price * float64(li.Quantity)
	}
	return total
}

// CartState is the collaborator's view of a session's cart.
type CartState struct {
	SessionID string     `json:"session_id"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
}

// ProductIDs returns the ids of the cart lines.
func (c CartState) ProductIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, li := range c.Items {
		ids = append(ids, li.ProductID)
	}
	return ids
}

// Data is one fetch of collaborator data.
type Data struct {
	Products    []Product    `json:"products"`
	Collections []Collection `json:"collections"`
	Orders      []Order      `json:"orders"`
}
