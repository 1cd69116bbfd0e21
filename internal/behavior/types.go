// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"fmt"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tomtom215/shopsense/internal/validation"
)

func init() {
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	validation.RegisterEnum("event_kind", names...)
}

// Kind is an interaction event type.
type Kind string

// Interaction kinds.
const (
	KindView             Kind = "view"
	KindHover            Kind = "hover"
	KindWishlistAdd      Kind = "wishlist_add"
	KindWishlistRemove   Kind = "wishlist_remove"
	KindCartAdd          Kind = "cart_add"
	KindCartRemove       Kind = "cart_remove"
	KindPurchase         Kind = "purchase"
	KindSearch           Kind = "search"
	KindSearchAppearance Kind = "search_appearance"
	KindEngagement       Kind = "engagement"
)

// Kinds lists every valid Kind.
var Kinds = []Kind{
	KindView, KindHover, KindWishlistAdd, KindWishlistRemove, KindCartAdd,
	KindCartRemove, KindPurchase, KindSearch, KindSearchAppearance, KindEngagement,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// HighImpact reports whether k changes wishlist, cart, or purchase state.
// These persist immediately and trigger score recomputation.
func (k Kind) HighImpact() bool {
	switch k {
	case KindWishlistAdd, KindWishlistRemove, KindCartAdd, KindCartRemove, KindPurchase:
		return true
	}
	return false
}

// Action is the predicted next funnel step. Values are ordered.
type Action int

// Actions in funnel order.
const (
	ActionNone Action = iota
	ActionView
	ActionWishlist
	ActionCart
	ActionPurchase
)

var actionNames = [...]string{"none", "view", "wishlist", "cart", "purchase"}

func (a Action) String() string {
	if a < ActionNone || a > ActionPurchase {
		return "none"
	}
	return actionNames[a]
}

// ParseAction parses an action name.
func ParseAction(s string) (Action, error) {
	for i, n := range actionNames {
		if n == s {
			return Action(i), nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Event is one interaction.
type Event struct {
	SessionID string
	UserID    string
	ProductID string
	Kind      Kind
	Page      string
	Duration  time.Duration // hover and engagement
	Value     float64       // order value for purchases
	At        time.Time
}

// Search is one search submission.
type Search struct {
	SessionID string
	Query     string
	Results   []string // product ids shown
	At        time.Time
}

// BehaviorScore is the accumulated intent signal for one product.
type BehaviorScore struct {
	ProductID         string        `json:"product_id"`
	Score             float64       `json:"score"`
	Views             int           `json:"views"`
	Hovers            int           `json:"hovers"`
	HoverDuration     time.Duration `json:"hover_duration"`
	Wishlisted        bool          `json:"wishlisted"`
	InCart            bool          `json:"in_cart"`
	Purchased         bool          `json:"purchased"`
	SearchAppearances int           `json:"search_appearances"`
	LastInteraction   time.Time     `json:"last_interaction"`
	PredictedAction   Action        `json:"predicted_action"`
	Confidence        float64       `json:"confidence"`
}

// PriceRange is the observed [Min, Max] of interacted product prices.
type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Set bool    `json:"set"`
}

// Contains reports whether price lies in the range.
func (r PriceRange) Contains(price float64) bool {
	return r.Set && price >= r.Min && price <= r.Max
}

func (r *PriceRange) widen(price float64) {
	if price <= 0 {
		return
	}
	if !r.Set {
		r.Min, r.Max, r.Set = price, price, true
		return
	}
	if price < r.Min {
		r.Min = price
	}
	if price > r.Max {
		r.Max = price
	}
}

// Profile is the per-session behavior state.
type Profile struct {
	SessionID             string
	UserID                string
	SearchHistory         []string
	CategoryPrefs         map[string]float64
	BrandPrefs            map[string]float64
	FeaturePrefs          map[string]float64
	PriceRange            PriceRange
	Wishlist              mapset.Set[string]
	Cart                  mapset.Set[string]
	Purchased             mapset.Set[string]
	Scores                map[string]*BehaviorScore
	ComparativeSearches   int
	InstructionalSearches int
	Engagement            time.Duration
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewProfile creates an empty profile.
func NewProfile(sessionID string, now time.Time) *Profile {
	return &Profile{
		SessionID:     sessionID,
		CategoryPrefs: make(map[string]float64),
		BrandPrefs:    make(map[string]float64),
		FeaturePrefs:  make(map[string]float64),
		Wishlist:      mapset.NewThreadUnsafeSet[string](),
		Cart:          mapset.NewThreadUnsafeSet[string](),
		Purchased:     mapset.NewThreadUnsafeSet[string](),
		Scores:        make(map[string]*BehaviorScore),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone returns a deep copy.
func (p *Profile) Clone() *Profile {
	c := *p
	c.SearchHistory = append([]string(nil), p.SearchHistory...)
	c.CategoryPrefs = cloneWeights(p.CategoryPrefs)
	c.BrandPrefs = cloneWeights(p.BrandPrefs)
	c.FeaturePrefs = cloneWeights(p.FeaturePrefs)
	c.Wishlist = p.Wishlist.Clone()
	c.Cart = p.Cart.Clone()
	c.Purchased = p.Purchased.Clone()
	c.Scores = make(map[string]*BehaviorScore, len(p.Scores))
	for id, s := range p.Scores {
		cp := *s
		c.Scores[id] = &cp
	}
	return &c
}

// Predictions returns scores with an action of at least min, ordered by
// action, then confidence, then product id.
func (p *Profile) Predictions(min Action) []BehaviorScore {
	out := make([]BehaviorScore, 0)
	for _, s := range p.Scores {
		if s.PredictedAction >= min && s.PredictedAction > ActionNone {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PredictedAction != out[j].PredictedAction {
			return out[i].PredictedAction > out[j].PredictedAction
		}
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}

// RecentlyViewed returns up to n product ids ordered by last interaction.
func (p *Profile) RecentlyViewed(n int) []string {
	all := make([]*BehaviorScore, 0, len(p.Scores))
	for _, s := range p.Scores {
		if s.Views > 0 || s.Hovers > 0 {
			all = append(all, s)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastInteraction.Equal(all[j].LastInteraction) {
			return all[i].LastInteraction.After(all[j].LastInteraction)
		}
		return all[i].ProductID < all[j].ProductID
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	ids := make([]string, len(all))
	for i, s := range all {
		ids[i] = s.ProductID
	}
	return ids
}

// MaxScore returns the largest cumulative score in the profile.
func (p *Profile) MaxScore() float64 {
	var max float64
	for _, s := range p.Scores {
		if s.Score > max {
			max = s.Score
		}
	}
	return max
}

func cloneWeights(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// ZeroResult is a search that returned nothing.
type ZeroResult struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastSeen time.Time `json:"last_seen"`
}
