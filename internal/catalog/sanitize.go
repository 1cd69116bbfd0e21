// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import (
	"math"
	"strings"
)

// Number coerces NaN, infinite, and negative values to zero.
func Number(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// Count coerces negative counts to zero.
func Count(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Sanitize returns p with numeric fields coerced and tags trimmed.
func Sanitize(p Product) Product {
	p.Price = Number(p.Price)
	p.CompareAtPrice = Number(p.CompareAtPrice)
	p.Inventory = Count(p.Inventory)
	tags := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	p.Tags = tags
	return p
}

// SanitizeOrder returns o with invalid lines dropped and numbers coerced.
func SanitizeOrder(o Order) Order {
	items := make([]LineItem, 0, len(o.Items))
	for _, li := range o.Items {
		li.Quantity = Count(li.Quantity)
		li.Price = Number(li.Price)
		if li.ProductID == "" || li.Quantity == 0 {
			continue
		}
		items = append(items, li)
	}
	o.Items = items
	return o
}
