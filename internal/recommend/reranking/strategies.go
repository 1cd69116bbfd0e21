// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import (
	"sort"
	"strings"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/scoring"
)

// Strategy names.
const (
	StrategyPersonalization = "personalization"
	StrategyUrgency         = "urgency"
	StrategyInventory       = "inventory"
	StrategyMargin          = "margin"
	StrategyTrending        = "trending"
	StrategyCrossSell       = "cross_sell"
)

// Inputs is everything a strategy may read.
type Inputs struct {
	Snapshot *catalog.Snapshot
	Scores   *scoring.Result
	Profile  *behavior.Profile
	Segment  Segment

	// Related maps products to their strongest relation to the cart.
	Related map[string]float64

	criticalStock int
	lowStock      int
	saleTags      []string
}

// Strategy proposes an order for a product list.
type Strategy struct {
	Name    string
	Class   Class
	Applies func(in *Inputs) bool
	Order   func(products []string, in *Inputs) []string
}

// Strategies returns the strategies in the order they are applied.
func Strategies() []Strategy {
	return []Strategy{
		{
			Name:    StrategyPersonalization,
			Class:   ClassModerate,
			Applies: func(in *Inputs) bool { return in.Segment != SegmentNew },
			Order: byKey(func(id string, in *Inputs) float64 {
				s, _ := in.Scores.Get(id)
				return s.Personalized
			}),
		},
		{
			Name:    StrategyUrgency,
			Class:   ClassSubtle,
			Applies: func(*Inputs) bool { return true },
			Order:   byKey(urgency),
		},
		{
			Name:    StrategyInventory,
			Class:   ClassSubtle,
			Applies: func(*Inputs) bool { return true },
			Order: byKey(func(id string, in *Inputs) float64 {
				s, _ := in.Scores.Get(id)
				return s.Inventory
			}),
		},
		{
			Name:  StrategyMargin,
			Class: ClassSubtle,
			Applies: func(in *Inputs) bool {
				return in.Segment == SegmentReturning || in.Segment == SegmentLoyal || in.Segment == SegmentHighValue
			},
			Order: byKey(func(id string, in *Inputs) float64 {
				s, _ := in.Scores.Get(id)
				return s.Margin
			}),
		},
		{
			Name:  StrategyTrending,
			Class: ClassModerate,
			Applies: func(in *Inputs) bool {
				return in.Segment == SegmentNew || in.Segment == SegmentReturning
			},
			Order: byKey(func(id string, in *Inputs) float64 {
				s, _ := in.Scores.Get(id)
				return s.Trending
			}),
		},
		{
			Name:  StrategyCrossSell,
			Class: ClassAggressive,
			Applies: func(in *Inputs) bool {
				return in.Profile != nil && in.Profile.Cart.Cardinality() > 0
			},
			Order: byKey(func(id string, in *Inputs) float64 { return in.Related[id] }),
		},
	}
}

func strategyByName(name string) (Strategy, bool) {
	for _, s := range Strategies() {
		if s.Name == name {
			return s, true
		}
	}
	return Strategy{}, false
}

// byKey orders products by key descending, keeping the input order among
// equal keys.
func byKey(key func(id string, in *Inputs) float64) func([]string, *Inputs) []string {
	return func(products []string, in *Inputs) []string {
		keys := make(map[string]float64, len(products))
		for _, id := range products {
			keys[id] = key(id, in)
		}
		out := append([]string(nil), products...)
		sort.SliceStable(out, func(i, j int) bool { return keys[out[i]] > keys[out[j]] })
		return out
	}
}

// urgency ranks scarce and discounted products first: 2 for critical
// stock, 1 for low stock, plus 1 when on sale.
func urgency(id string, in *Inputs) float64 {
	p, ok := in.Snapshot.Product(id)
	if !ok || !p.Purchasable() {
		return 0
	}
	var u float64
	switch {
	case p.Inventory <= in.criticalStock:
		u = 2
	case p.Inventory <= in.lowStock:
		u = 1
	}
	if p.OnSale() {
		return u + 1
	}
	for _, t := range p.Tags {
		for _, s := range in.saleTags {
			if strings.EqualFold(t, s) {
				return u + 1
			}
		}
	}
	return u
}
