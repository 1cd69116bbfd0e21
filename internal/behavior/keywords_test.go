// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"reflect"
	"testing"
)

func TestKeywordMatcher_Extract(t *testing.T) {
	cfg := DefaultConfig()
	m := newKeywordMatcher(cfg.Keywords, cfg.ComparativeMarkers, cfg.InstructionalMarkers)

	tests := []struct {
		name          string
		query         string
		categories    []string
		comparative   bool
		instructional bool
	}{
		{"single category", "red running shoes", []string{"Shoes"}, false, false},
		{"two categories", "laptop bag", []string{"Electronics", "Accessories"}, false, false},
		{"comparative", "sneaker vs boot", []string{"Shoes"}, true, false},
		{"instructional phrase", "how to clean a leather jacket", []string{"Apparel"}, false, true},
		{"size chart", "dress size chart", []string{"Apparel"}, false, true},
		{"no substring matches", "bagel shoelace canvas", nil, false, false},
		{"nothing", "gift ideas", nil, false, false},
		{"best is comparative", "best headphones", []string{"Electronics"}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Extract(normalizeQuery(tt.query))
			if !reflect.DeepEqual(got.Categories, tt.categories) {
				t.Errorf("Categories = %v, want %v", got.Categories, tt.categories)
			}
			if got.Comparative != tt.comparative {
				t.Errorf("Comparative = %v, want %v", got.Comparative, tt.comparative)
			}
			if got.Instructional != tt.instructional {
				t.Errorf("Instructional = %v, want %v", got.Instructional, tt.instructional)
			}
		})
	}
}

func TestKeywordMatcher_OverlappingPatterns(t *testing.T) {
	m := newKeywordMatcher(map[string]string{"bag": "Accessories", "backpack": "Accessories", "pack": "Outdoor"}, nil, nil)

	got := m.Extract("hiking backpack")
	if !reflect.DeepEqual(got.Categories, []string{"Accessories"}) {
		t.Errorf("Categories = %v; the inner word pack is not on a boundary", got.Categories)
	}

	got = m.Extract("pack and bag")
	if !reflect.DeepEqual(got.Categories, []string{"Outdoor", "Accessories"}) {
		t.Errorf("Categories = %v", got.Categories)
	}
}

func TestNormalizeQuery(t *testing.T) {
	tests := map[string]string{
		"  Red   Shoes ": "red shoes",
		"":               "",
		"\tA\nB":         "a b",
	}
	for in, want := range tests {
		if got := normalizeQuery(in); got != want {
			t.Errorf("normalizeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}
