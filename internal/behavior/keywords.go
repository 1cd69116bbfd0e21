// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"sort"
	"strings"

	"github.com/tomtom215/shopsense/internal/cache"
)

// markerKind tags what a keyword pattern signals.
type markerKind int

const (
	markerCategory markerKind = iota
	markerComparative
	markerInstructional
)

// marker is the data attached to each keyword pattern.
type marker struct {
	kind     markerKind
	category string
}

// keywordMatcher finds every keyword in a query in a single pass over a
// whole-word Aho-Corasick automaton, so "vs" does not match inside "canvas"
// and "shoe" matches "shoes". It is immutable after construction.
type keywordMatcher struct {
	ac *cache.AhoCorasick
}

// Intent is what a search query reveals beyond its literal text.
type Intent struct {
	Categories    []string `json:"categories,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	Comparative   bool     `json:"comparative"`
	Instructional bool     `json:"instructional"`
}

// newKeywordMatcher builds the automaton from keyword->category pairs and
// the comparative and instructional marker lists.
func newKeywordMatcher(categories map[string]string, comparative, instructional []string) *keywordMatcher {
	ac := cache.NewWordMatcher()

	words := make([]string, 0, len(categories))
	for w := range categories {
		words = append(words, w)
	}
	sort.Strings(words)
	for _, w := range words {
		ac.AddPattern(normalizeQuery(w), marker{kind: markerCategory, category: categories[w]})
	}
	for _, w := range comparative {
		ac.AddPattern(normalizeQuery(w), marker{kind: markerComparative})
	}
	for _, w := range instructional {
		ac.AddPattern(normalizeQuery(w), marker{kind: markerInstructional})
	}
	ac.Build()
	return &keywordMatcher{ac: ac}
}

// Extract scans a normalized query and reports the matched intent.
// Categories and keywords are de-duplicated and returned in match order.
func (m *keywordMatcher) Extract(query string) Intent {
	var intent Intent
	seenCat := make(map[string]bool)
	seenKw := make(map[string]bool)

	for _, match := range m.ac.Search(query) {
		mk, ok := match.Data.(marker)
		if !ok {
			continue
		}
		if !seenKw[match.Pattern] {
			seenKw[match.Pattern] = true
			intent.Keywords = append(intent.Keywords, match.Pattern)
		}
		switch mk.kind {
		case markerCategory:
			if !seenCat[mk.category] {
				seenCat[mk.category] = true
				intent.Categories = append(intent.Categories, mk.category)
			}
		case markerComparative:
			intent.Comparative = true
		case markerInstructional:
			intent.Instructional = true
		}
	}
	return intent
}

// normalizeQuery lowercases, trims, and collapses internal whitespace.
func normalizeQuery(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
