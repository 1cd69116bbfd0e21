// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import "math/rand"

// Blend merges proposed into current. At each position it takes the next
// unplaced item from proposed with probability w, otherwise the next
// unplaced item from current; when the chosen list is exhausted it takes
// from the other. Every item of current appears exactly once in the
// output. Items of proposed that are not in current are ignored.
//
// w <= 0 returns current unchanged and w >= 1 returns proposed (restricted
// to current's items, with any omitted ones appended in current order),
// in both cases without drawing from rng. It also returns how many
// positions were taken from proposed.
func Blend(current, proposed []string, w float64, rng *rand.Rand) ([]string, int) {
	out := make([]string, 0, len(current))
	if w <= 0 || len(current) == 0 {
		return append(out, current...), 0
	}

	members := make(map[string]struct{}, len(current))
	for _, id := range current {
		members[id] = struct{}{}
	}
	placed := make(map[string]struct{}, len(current))

	next := func(list []string, i *int) (string, bool) {
		for *i < len(list) {
			id := list[*i]
			*i++
			if _, ok := members[id]; !ok {
				continue
			}
			if _, ok := placed[id]; ok {
				continue
			}
			return id, true
		}
		return "", false
	}

	var ci, pi, fromProposed int
	for len(out) < len(members) {
		useProposed := w >= 1 || rng.Float64() < w

		var id string
		var ok bool
		if useProposed {
			if id, ok = next(proposed, &pi); ok {
				fromProposed++
			} else {
				id, ok = next(current, &ci)
			}
		} else {
			if id, ok = next(current, &ci); !ok {
				if id, ok = next(proposed, &pi); ok {
					fromProposed++
				}
			}
		}
		if !ok {
			break
		}
		placed[id] = struct{}{}
		out = append(out, id)
	}
	return out, fromProposed
}
