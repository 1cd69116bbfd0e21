// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package cache

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// AhoCorasick finds every occurrence of a set of patterns in one pass over
// the text, in O(n + m + z) for text length n, total pattern length m and
// z matches. Matching is case-insensitive.
//
// In whole-word mode a match must be delimited by non-letter, non-digit
// characters or the ends of the text, and a trailing plural "s" or "es" is
// accepted, so "shoe" matches "shoes" but "vs" does not match "canvas".
//
// Example:
//
//	ac := NewWordMatcher()
//	ac.AddPattern("sofa", "Furniture")
//	ac.AddPattern("vs", nil)
//	ac.Build()
//
//	ac.Search("leather sofas vs chairs")
//	// [{Pattern: "sofa", Data: "Furniture", Start: 8, End: 12}, {Pattern: "vs", Start: 14, End: 16}]
type AhoCorasick struct {
	mu         sync.RWMutex
	root       *acNode
	patterns   []Pattern
	built      bool
	wholeWords bool
}

type acNode struct {
	children map[rune]*acNode
	failure  *acNode // longest proper suffix that is also a trie path
	output   []int   // indices of patterns ending here
}

// Pattern is a search pattern with caller data returned on every match.
type Pattern struct {
	Text string
	Data any
}

// Match is one occurrence of a pattern. Start and End are byte offsets in
// the lowercased text, End exclusive and before any plural suffix.
type Match struct {
	Pattern string
	Data    any
	Start   int
	End     int
}

// NewAhoCorasick creates a substring automaton.
func NewAhoCorasick() *AhoCorasick {
	return &AhoCorasick{root: newACNode()}
}

// NewWordMatcher creates a whole-word automaton.
func NewWordMatcher() *AhoCorasick {
	return &AhoCorasick{root: newACNode(), wholeWords: true}
}

func newACNode() *acNode {
	return &acNode{children: make(map[rune]*acNode)}
}

// AddPattern adds a pattern. Empty patterns are ignored. Adding after Build
// requires another Build.
func (ac *AhoCorasick) AddPattern(text string, data any) {
	text = strings.ToLower(text)
	if text == "" {
		return
	}
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.built = false
	ac.patterns = append(ac.patterns, Pattern{Text: text, Data: data})
}

// Build constructs the trie and its failure links.
func (ac *AhoCorasick) Build() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	if ac.built {
		return
	}

	ac.root = newACNode()
	for i, p := range ac.patterns {
		node := ac.root
		for _, ch := range p.Text {
			next := node.children[ch]
			if next == nil {
				next = newACNode()
				node.children[ch] = next
			}
			node = next
		}
		node.output = append(node.output, i)
	}
	ac.buildFailureLinks()
	ac.built = true
}

// buildFailureLinks wires failure transitions breadth-first.
func (ac *AhoCorasick) buildFailureLinks() {
	queue := make([]*acNode, 0, len(ac.root.children))
	for _, child := range ac.root.children {
		child.failure = ac.root
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for ch, child := range current.children {
			queue = append(queue, child)

			fail := current.failure
			for fail != nil && fail.children[ch] == nil {
				fail = fail.failure
			}
			if fail == nil {
				child.failure = ac.root
			} else {
				child.failure = fail.children[ch]
				child.output = append(child.output, child.failure.output...)
			}
		}
	}
}

// Search returns every match in text ordered by end position. An unbuilt
// automaton matches nothing.
func (ac *AhoCorasick) Search(text string) []Match {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	if !ac.built || len(ac.patterns) == 0 {
		return nil
	}

	text = strings.ToLower(text)
	var matches []Match
	node := ac.root
	for i, ch := range text {
		for node != ac.root && node.children[ch] == nil {
			node = node.failure
		}
		if next := node.children[ch]; next != nil {
			node = next
		}

		end := i + utf8.RuneLen(ch)
		for _, idx := range node.output {
			p := ac.patterns[idx]
			start := end - len(p.Text)
			if ac.wholeWords && !isWordMatch(text, start, end) {
				continue
			}
			matches = append(matches, Match{Pattern: p.Text, Data: p.Data, Start: start, End: end})
		}
	}
	return matches
}

// Contains reports whether any pattern occurs in text.
func (ac *AhoCorasick) Contains(text string) bool {
	return len(ac.Search(text)) > 0
}

// PatternCount returns the number of patterns added.
func (ac *AhoCorasick) PatternCount() int {
	ac.mu.RLock()
	defer ac.mu.RUnlock()
	return len(ac.patterns)
}

// isWordMatch reports whether text[start:end] stands as a word, optionally
// followed by a plural "s" or "es".
func isWordMatch(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if followedByBoundary(text[end:]) {
		return true
	}
	for _, suffix := range []string{"es", "s"} {
		if rest, ok := strings.CutPrefix(text[end:], suffix); ok && followedByBoundary(rest) {
			return true
		}
	}
	return false
}

func followedByBoundary(rest string) bool {
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
