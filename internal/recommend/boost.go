// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package recommend

import (
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Boost names.
const (
	BoostLowStock     = "low_stock"
	BoostSale         = "sale"
	BoostCartCategory = "cart_category"
	BoostSharedTag    = "shared_tag"
	BoostPriceBand    = "price_band"
)

// cartContext is what the cart contributes to the boost pass.
type cartContext struct {
	categories mapset.Set[string]
	tags       mapset.Set[string]
	bands      mapset.Set[int]
}

func (e *Engine) cartContext(v *sessionView) cartContext {
	cc := cartContext{
		categories: mapset.NewThreadUnsafeSet[string](),
		tags:       mapset.NewThreadUnsafeSet[string](),
		bands:      mapset.NewThreadUnsafeSet[int](),
	}
	v.profile.Cart.Each(func(id string) bool {
		p, ok := v.snap.Product(id)
		if !ok {
			return false
		}
		if p.ProductType != "" {
			cc.categories.Add(p.ProductType)
		}
		for _, t := range p.Tags {
			cc.tags.Add(strings.ToLower(t))
		}
		cc.bands.Add(e.priceBand(p.Price))
		return false
	})
	return cc
}

// priceBand returns the number of configured band bounds at or below price.
func (e *Engine) priceBand(price float64) int {
	band := 0
	for _, bound := range e.cfg.Boost.PriceBands {
		if price >= bound {
			band++
		}
	}
	return band
}

// boost multiplies each item's score by the contextual multipliers that
// apply to it. Callers re-sort afterwards.
func (e *Engine) boost(v *sessionView, items []Recommendation) {
	cfg := e.cfg.Boost
	cc := e.cartContext(v)
	hasCart := cc.bands.Cardinality() > 0

	for i := range items {
		p, ok := v.snap.Product(items[i].ProductID)
		if !ok {
			continue
		}
		mult := 1.0
		var boosts []string
		apply := func(name string, m float64) {
			mult *= m
			boosts = append(boosts, name)
		}

		if p.Inventory >= 1 && p.Inventory <= cfg.LowStockMax {
			apply(BoostLowStock, cfg.LowStock)
		}
		if p.OnSale() || hasAnyTag(p.Tags, cfg.SaleTags) {
			apply(BoostSale, cfg.Sale)
		}
		if hasCart {
			if p.ProductType != "" && cc.categories.Contains(p.ProductType) {
				apply(BoostCartCategory, cfg.CartCategory)
			}
			for _, t := range p.Tags {
				if cc.tags.Contains(strings.ToLower(t)) {
					apply(BoostSharedTag, cfg.SharedTag)
					break
				}
			}
			if cc.bands.Contains(e.priceBand(p.Price)) {
				apply(BoostPriceBand, cfg.PriceBand)
			}
		}

		items[i].Score = items[i].BaseScore * mult
		items[i].Boosts = boosts
	}
}

func hasAnyTag(tags, want []string) bool {
	for _, t := range tags {
		for _, w := range want {
			if strings.EqualFold(t, w) {
				return true
			}
		}
	}
	return false
}
