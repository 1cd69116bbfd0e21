// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package algorithms

import (
	"context"
	"sort"
	"time"

	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// BasketConfig contains configuration for the market-basket miner.
type BasketConfig struct {
	// MinSupport is the minimum fraction of orders containing both products.
	MinSupport float64 `koanf:"min_support" validate:"gte=0,lte=1"`

	// MinConfidence is the minimum P(consequent | antecedent).
	MinConfidence float64 `koanf:"min_confidence" validate:"gte=0,lte=1"`
}

// DefaultBasketConfig returns the default thresholds.
func DefaultBasketConfig() BasketConfig {
	return BasketConfig{
		MinSupport:    0.01,
		MinConfidence: 0.1,
	}
}

// Rule is a directional association rule between two products.
type Rule struct {
	Antecedent string  `json:"antecedent"`
	Consequent string  `json:"consequent"`
	Count      int     `json:"count"`
	Support    float64 `json:"support"`
	Confidence float64 `json:"confidence"`
	Lift       float64 `json:"lift"`
}

// Basket mines two-item association rules from order history.
//
// With N orders, n(X) orders containing X and n(A,B) orders containing both:
//
//	support(A→B)    = n(A,B) / N
//	confidence(A→B) = n(A,B) / n(A)
//	lift(A→B)       = confidence(A→B) / (n(B) / N)
//
// Pairs below MinSupport are skipped; each direction is kept only when its
// confidence reaches MinConfidence.
type Basket struct {
	BaseAlgorithm
	config BasketConfig

	byAntecedent map[string][]Rule
	rules        []Rule
	total        int
	maxLift      float64
}

// NewBasket creates a new market-basket miner.
func NewBasket(cfg BasketConfig, clock schedule.Clock) *Basket {
	return &Basket{
		BaseAlgorithm: NewBaseAlgorithm("basket", clock),
		config:        cfg,
		byAntecedent:  make(map[string][]Rule),
	}
}

// Train rebuilds the rule set from orders. Products are deduplicated
// within each order.
func (b *Basket) Train(ctx context.Context, orders []catalog.Order) error {
	start := time.Now()
	txs := baskets(orders)
	total := len(txs)

	single := make(map[string]int)
	pair := make(map[[2]string]int)
	for _, items := range txs {
		if ContextCancelled(ctx) {
			return ctx.Err()
		}
		for _, id := range items {
			single[id]++
		}
		for i := 0; i < len(items); i++ {
			for j := i + 1; j < len(items); j++ {
				a, c := items[i], items[j]
				if a > c {
					a, c = c, a
				}
				pair[[2]string{a, c}]++
			}
		}
	}

	var rules []Rule
	for key, n := range pair {
		support := float64(n) / float64(total)
		if support < b.config.MinSupport {
			continue
		}
		for _, dir := range [][2]string{{key[0], key[1]}, {key[1], key[0]}} {
			ante, cons := dir[0], dir[1]
			confidence := float64(n) / float64(single[ante])
			if confidence < b.config.MinConfidence {
				continue
			}
			rules = append(rules, Rule{
				Antecedent: ante,
				Consequent: cons,
				Count:      n,
				Support:    support,
				Confidence: confidence,
				Lift:       confidence / (float64(single[cons]) / float64(total)),
			})
		}
	}

	sortRules(rules)
	byAntecedent := make(map[string][]Rule)
	maxLift := 0.0
	for _, r := range rules {
		byAntecedent[r.Antecedent] = append(byAntecedent[r.Antecedent], r)
		if r.Lift > maxLift {
			maxLift = r.Lift
		}
	}

	b.acquireTrainLock()
	b.byAntecedent = byAntecedent
	b.rules = rules
	b.total = total
	b.maxLift = maxLift
	b.markTrained()
	b.releaseTrainLock()

	metrics.RecordModelRebuild(b.Name(), time.Since(start), len(rules))
	return nil
}

// sortRules orders by lift, then confidence (both descending), then
// antecedent and consequent.
func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		a, c := rules[i], rules[j]
		if a.Lift != c.Lift {
			return a.Lift > c.Lift
		}
		if a.Confidence != c.Confidence {
			return a.Confidence > c.Confidence
		}
		if a.Antecedent != c.Antecedent {
			return a.Antecedent < c.Antecedent
		}
		return a.Consequent < c.Consequent
	})
}

// RulesFor returns up to k rules with the given antecedent, strongest lift
// first. k <= 0 returns all of them.
func (b *Basket) RulesFor(antecedent string, k int) []Rule {
	b.acquirePredictLock()
	defer b.releasePredictLock()

	list := b.byAntecedent[antecedent]
	if k > 0 && len(list) > k {
		list = list[:k]
	}
	return append([]Rule(nil), list...)
}

// Rule returns the rule antecedent→consequent if it was retained.
func (b *Basket) Rule(antecedent, consequent string) (Rule, bool) {
	b.acquirePredictLock()
	defer b.releasePredictLock()

	for _, r := range b.byAntecedent[antecedent] {
		if r.Consequent == consequent {
			return r, true
		}
	}
	return Rule{}, false
}

// Rules returns every retained rule in lift order.
func (b *Basket) Rules() []Rule {
	b.acquirePredictLock()
	defer b.releasePredictLock()
	return append([]Rule(nil), b.rules...)
}

// MaxLift returns the largest lift among the retained rules.
func (b *Basket) MaxLift() float64 {
	b.acquirePredictLock()
	defer b.releasePredictLock()
	return b.maxLift
}

// Transactions returns the number of non-empty orders mined.
func (b *Basket) Transactions() int {
	b.acquirePredictLock()
	defer b.releasePredictLock()
	return b.total
}

// Size returns the number of retained rules.
func (b *Basket) Size() int {
	b.acquirePredictLock()
	defer b.releasePredictLock()
	return len(b.rules)
}

// Ensure both models implement Model.
var (
	_ Model = (*Collaborative)(nil)
	_ Model = (*Basket)(nil)
)
