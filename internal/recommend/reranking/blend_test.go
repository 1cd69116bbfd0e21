// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import (
	"math/rand"
	"reflect"
	"sort"
	"testing"
)

func sameItems(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	return reflect.DeepEqual(x, y)
}

func TestBlend_Extremes(t *testing.T) {
	t.Parallel()

	current := []string{"a", "b", "c", "d"}
	tests := []struct {
		name         string
		proposed     []string
		w            float64
		want         []string
		wantProposed int
	}{
		{"zero weight keeps current", []string{"d", "c", "b", "a"}, 0, []string{"a", "b", "c", "d"}, 0},
		{"negative weight keeps current", []string{"d", "c", "b", "a"}, -1, []string{"a", "b", "c", "d"}, 0},
		{"full weight takes proposed", []string{"d", "c", "b", "a"}, 1, []string{"d", "c", "b", "a"}, 4},
		{"full weight ignores foreign items", []string{"x", "c", "y", "a"}, 1, []string{"c", "a", "b", "d"}, 2},
		{"full weight skips repeats", []string{"b", "b", "b"}, 1, []string{"b", "a", "c", "d"}, 1},
		{"empty proposal", nil, 1, []string{"a", "b", "c", "d"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			// A nil rng panics if drawn from.
			got, n := Blend(current, tt.proposed, tt.w, nil)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Blend() = %v, want %v", got, tt.want)
			}
			if n != tt.wantProposed {
				t.Errorf("fromProposed = %d, want %d", n, tt.wantProposed)
			}
		})
	}
}

func TestBlend_Permutation(t *testing.T) {
	t.Parallel()

	current := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	proposed := []string{"h", "x", "g", "f", "a", "e"}
	rng := rand.New(rand.NewSource(7))

	for _, w := range []float64{0.1, 0.3, 0.5, 0.7, 0.9} {
		for i := 0; i < 50; i++ {
			got, n := Blend(current, proposed, w, rng)
			if !sameItems(got, current) {
				t.Fatalf("Blend(w=%v) = %v, not a permutation of %v", w, got, current)
			}
			if n < 0 || n > len(current) {
				t.Fatalf("Blend(w=%v) fromProposed = %d", w, n)
			}
		}
	}
}

func TestBlend_Seeded(t *testing.T) {
	t.Parallel()

	current := []string{"a", "b", "c", "d", "e", "f"}
	proposed := []string{"f", "e", "d", "c", "b", "a"}

	first, _ := Blend(current, proposed, 0.5, rand.New(rand.NewSource(42)))
	second, _ := Blend(current, proposed, 0.5, rand.New(rand.NewSource(42)))
	if !reflect.DeepEqual(first, second) {
		t.Errorf("same seed gave %v and %v", first, second)
	}
}

func TestBlend_EmptyCurrent(t *testing.T) {
	t.Parallel()

	got, n := Blend(nil, []string{"a"}, 0.5, nil)
	if len(got) != 0 || n != 0 {
		t.Errorf("Blend(nil) = %v, %d; want empty, 0", got, n)
	}
}
