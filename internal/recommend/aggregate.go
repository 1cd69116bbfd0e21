// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package recommend

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/scoring"
)

// candidate accumulates the source scores of one product.
type candidate struct {
	id            string
	collaborative float64
	collabSeed    string
	basket        float64
	basketSeed    string
	popular       bool
}

type candidateSet struct {
	byID  map[string]*candidate
	order []string
}

func newCandidateSet() *candidateSet {
	return &candidateSet{byID: make(map[string]*candidate)}
}

func (s *candidateSet) get(id string) *candidate {
	c, ok := s.byID[id]
	if !ok {
		c = &candidate{id: id}
		s.byID[id] = c
		s.order = append(s.order, id)
	}
	return c
}

// sessionView is what one computation knows about the session.
type sessionView struct {
	req      Request
	snap     *catalog.Snapshot
	profile  *behavior.Profile
	scored   *scoring.Result
	maxTotal float64
	allowed  map[string]struct{} // nil means no collection restriction
}

// compute builds the list for one request.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) compute(ctx context.Context, req Request) *Response {
	now := e.sched.Now()
	v := &sessionView{
		req:     req,
		snap:    e.catalog.Snapshot(),
		profile: e.profiles.Profile(ctx, req.SessionID),
		scored:  e.scores.Result(ctx, req.SessionID),
	}
	if len(v.scored.Scores) > 0 && v.scored.Scores[0].TotalScore > 0 {
		v.maxTotal = v.scored.Scores[0].TotalScore
	}
	if req.Page == PageCollection && req.CollectionID != "" {
		if col, ok := v.snap.Collection(req.CollectionID); ok {
			v.allowed = lo.SliceToMap(col.ProductIDs, func(id string) (string, struct{}) {
				return id, struct{}{}
			})
		} else {
			e.logger.Debug().Str("collection", req.CollectionID).Msg("unknown collection, not restricting")
		}
	}

	seeds := e.seeds(v)
	cands := e.gather(v, seeds)

	items := make([]Recommendation, 0, len(cands.order))
	for _, id := range cands.order {
		if e.excluded(v, id) {
			continue
		}
		rec, ok := e.score(v, cands.byID[id])
		if !ok {
			continue
		}
		items = append(items, rec)
	}
	total := len(items)

	e.boost(v, items)
	sortRecommendations(items)
	if len(items) > req.Limit {
		items = items[:req.Limit]
	}

	return &Response{
		Items:           items,
		TotalCandidates: total,
		Metadata: ResponseMetadata{
			SessionID:    req.SessionID,
			Page:         req.Page,
			Seeds:        seeds,
			ModelVersion: e.models.Collaborative.Version(),
			TrainedAt:    e.models.Collaborative.LastTrainedAt(),
			ComputedAt:   now,
		},
	}
}

// seeds are the products neighbors and rules are looked up from: the
// current product, then cart items, then recently viewed products.
func (e *Engine) seeds(v *sessionView) []string {
	cart := v.profile.Cart.ToSlice()
	sort.Strings(cart)

	seeds := make([]string, 0, 1+len(cart)+e.cfg.Candidates.RecentSeeds)
	seeds = append(seeds, v.req.ProductID)
	seeds = append(seeds, cart...)
	seeds = append(seeds, v.profile.RecentlyViewed(e.cfg.Candidates.RecentSeeds)...)
	return lo.Uniq(lo.Compact(seeds))
}

// gather collects candidates from every source and records the
// collaborative and basket components as it goes.
func (e *Engine) gather(v *sessionView, seeds []string) *candidateSet {
	cands := newCandidateSet()
	lim := e.cfg.Candidates

	for _, seed := range seeds {
		for _, n := range e.models.Collaborative.Neighbors(seed, lim.NeighborsPerSeed) {
			c := cands.get(n.ProductID)
			if n.Similarity > c.collaborative {
				c.collaborative = clamp01(n.Similarity)
				c.collabSeed = seed
			}
		}
	}

	if maxLift := e.models.Basket.MaxLift(); maxLift > 0 {
		for _, seed := range seeds {
			for _, r := range e.models.Basket.RulesFor(seed, lim.RulesPerSeed) {
				c := cands.get(r.Consequent)
				if s := clamp01(r.Lift / maxLift); s > c.basket {
					c.basket = s
					c.basketSeed = seed
				}
			}
		}
	}

	for _, s := range v.profile.Predictions(behavior.ActionView) {
		cands.get(s.ProductID)
	}
	resident := append(v.profile.Wishlist.ToSlice(), v.profile.Cart.ToSlice()...)
	sort.Strings(resident)
	for _, id := range resident {
		cands.get(id)
	}
	for _, s := range lo.Slice(v.scored.Scores, 0, lim.TopScored) {
		cands.get(s.ProductID)
	}
	if len(v.profile.Scores) == 0 {
		for _, id := range e.models.Collaborative.Popular(lim.Popular) {
			cands.get(id).popular = true
		}
	}
	return cands
}

// excluded reports whether id must not be recommended in this context.
func (e *Engine) excluded(v *sessionView, id string) bool {
	if id == v.req.ProductID {
		return true
	}
	if v.profile.Purchased.Contains(id) {
		return true
	}
	if v.req.Page.hidesCart() && v.profile.Cart.Contains(id) {
		return true
	}
	if v.allowed != nil {
		if _, ok := v.allowed[id]; !ok {
			return true
		}
	}
	p, ok := v.snap.Product(id)
	return !ok || !p.Purchasable()
}

// behaviorComponent is half the predicted-action strength plus half the
// total score relative to the session's best, plus wishlist and cart
// bonuses, clamped to [0,1].
func (e *Engine) behaviorComponent(v *sessionView, id string) float64 {
	var strength float64
	if bs, ok := v.profile.Scores[id]; ok {
		strength = float64(bs.PredictedAction) / float64(behavior.ActionPurchase) * bs.Confidence / 100
	}
	var relative float64
	if ps, ok := v.scored.Get(id); ok && v.maxTotal > 0 {
		relative = clamp01(ps.TotalScore / v.maxTotal)
	}
	score := 0.5*clamp01(strength) + 0.5*relative
	if v.profile.Wishlist.Contains(id) {
		score += e.cfg.Behavior.WishlistBonus
	}
	if v.profile.Cart.Contains(id) {
		score += e.cfg.Behavior.CartBonus
	}
	return clamp01(score)
}

// score combines the components of c. ok is false when nothing supports it.
func (e *Engine) score(v *sessionView, c *candidate) (Recommendation, bool) {
	behav := e.behaviorComponent(v, c.id)
	w := e.weights
	base := w.Collaborative*c.collaborative + w.Basket*c.basket + w.Behavior*behav
	if base <= 0 {
		return Recommendation{}, false
	}

	type reason struct {
		weight float64
		text   string
	}
	reasons := make([]reason, 0, 3)
	if c.collaborative > 0 {
		reasons = append(reasons, reason{w.Collaborative * c.collaborative,
			fmt.Sprintf("Customers who bought %s also bought this", e.title(v, c.collabSeed))})
	}
	if c.basket > 0 {
		reasons = append(reasons, reason{w.Basket * c.basket,
			fmt.Sprintf("Frequently bought together with %s", e.title(v, c.basketSeed))})
	}
	if behav > 0 {
		reasons = append(reasons, reason{w.Behavior * behav, e.behaviorReason(v, c)})
	}
	sort.SliceStable(reasons, func(i, j int) bool { return reasons[i].weight > reasons[j].weight })

	return Recommendation{
		ProductID: c.id,
		Score:     base,
		BaseScore: base,
		Components: map[string]float64{
			SourceCollaborative: c.collaborative,
			SourceBasket:        c.basket,
			SourceBehavior:      behav,
		},
		Reasons: lo.Map(reasons, func(r reason, _ int) string { return r.text }),
	}, true
}

func (e *Engine) behaviorReason(v *sessionView, c *candidate) string {
	switch {
	case v.profile.Cart.Contains(c.id):
		return "Already in your cart"
	case v.profile.Wishlist.Contains(c.id):
		return "On your wishlist"
	}
	if bs, ok := v.profile.Scores[c.id]; ok && bs.PredictedAction >= behavior.ActionView {
		return "Based on your recent browsing"
	}
	if p, ok := v.snap.Product(c.id); ok && v.profile.CategoryPrefs[p.ProductType] > 0 {
		return fmt.Sprintf("Popular in %s, a category you like", p.ProductType)
	}
	if c.popular {
		return "Popular with other shoppers"
	}
	return "Recommended for you"
}

// title names a product for reason strings, falling back to its id.
func (e *Engine) title(v *sessionView, id string) string {
	if p, ok := v.snap.Product(id); ok && p.Title != "" {
		return p.Title
	}
	return id
}

func sortRecommendations(items []Recommendation) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ProductID < items[j].ProductID
	})
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
