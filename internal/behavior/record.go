// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// recordVersion is bumped when the persisted layout changes incompatibly.
const recordVersion = 1

// WeightedKey is one entry of a persisted preference map.
type WeightedKey struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
}

// profileRecord is the persisted form of a Profile. Maps are stored as
// ordered pair lists and sets as sorted lists.
type profileRecord struct {
	Version               int             `json:"version"`
	SessionID             string          `json:"session_id"`
	UserID                string          `json:"user_id,omitempty"`
	CategoryPrefs         []WeightedKey   `json:"category_prefs"`
	BrandPrefs            []WeightedKey   `json:"brand_prefs"`
	FeaturePrefs          []WeightedKey   `json:"feature_prefs"`
	PriceRange            PriceRange      `json:"price_range"`
	Wishlist              []string        `json:"wishlist"`
	Cart                  []string        `json:"cart"`
	Purchased             []string        `json:"purchased"`
	Scores                []BehaviorScore `json:"scores"`
	ComparativeSearches   int             `json:"comparative_searches"`
	InstructionalSearches int             `json:"instructional_searches"`
	Engagement            time.Duration   `json:"engagement"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// SortedWeights converts a weight map to a list ordered by weight
// descending, then key.
func SortedWeights(m map[string]float64) []WeightedKey {
	out := make([]WeightedKey, 0, len(m))
	for k, v := range m {
		out = append(out, WeightedKey{Key: k, Weight: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func weightsFromList(list []WeightedKey) map[string]float64 {
	m := make(map[string]float64, len(list))
	for _, wk := range list {
		if wk.Key == "" {
			continue
		}
		m[wk.Key] = clamp(wk.Weight, 0, 1e12)
	}
	return m
}

func sortedSet(s mapset.Set[string]) []string {
	out := s.ToSlice()
	sort.Strings(out)
	return out
}

func toRecord(p *Profile) profileRecord {
	scores := make([]BehaviorScore, 0, len(p.Scores))
	for _, s := range p.Scores {
		scores = append(scores, *s)
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].ProductID < scores[j].ProductID })

	return profileRecord{
		Version:               recordVersion,
		SessionID:             p.SessionID,
		UserID:                p.UserID,
		CategoryPrefs:         SortedWeights(p.CategoryPrefs),
		BrandPrefs:            SortedWeights(p.BrandPrefs),
		FeaturePrefs:          SortedWeights(p.FeaturePrefs),
		PriceRange:            p.PriceRange,
		Wishlist:              sortedSet(p.Wishlist),
		Cart:                  sortedSet(p.Cart),
		Purchased:             sortedSet(p.Purchased),
		Scores:                scores,
		ComparativeSearches:   p.ComparativeSearches,
		InstructionalSearches: p.InstructionalSearches,
		Engagement:            p.Engagement,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

// fromRecord rebuilds a profile. ok is false when the record is unusable.
func fromRecord(r profileRecord, sessionID string, history []string) (*Profile, bool) {
	if r.Version != recordVersion || r.SessionID != sessionID {
		return nil, false
	}
	p := NewProfile(sessionID, r.CreatedAt)
	p.UserID = r.UserID
	p.CategoryPrefs = weightsFromList(r.CategoryPrefs)
	p.BrandPrefs = weightsFromList(r.BrandPrefs)
	p.FeaturePrefs = weightsFromList(r.FeaturePrefs)
	p.PriceRange = r.PriceRange
	p.Wishlist = mapset.NewThreadUnsafeSet(r.Wishlist...)
	p.Cart = mapset.NewThreadUnsafeSet(r.Cart...)
	p.Purchased = mapset.NewThreadUnsafeSet(r.Purchased...)
	for i := range r.Scores {
		s := r.Scores[i]
		if s.ProductID == "" {
			continue
		}
		s.Score = clamp(s.Score, 0, 1e12)
		p.Scores[s.ProductID] = &s
	}
	p.ComparativeSearches = r.ComparativeSearches
	p.InstructionalSearches = r.InstructionalSearches
	if r.Engagement > 0 {
		p.Engagement = r.Engagement
	}
	p.UpdatedAt = r.UpdatedAt
	p.SearchHistory = history
	return p, true
}
