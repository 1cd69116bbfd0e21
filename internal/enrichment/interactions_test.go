// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package enrichment

import (
	"testing"
	"time"

	"github.com/tomtom215/shopsense/internal/behavior"
)

func TestInteractions(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := behavior.NewProfile("s1", now)
	p.Scores["a"] = &behavior.BehaviorScore{ProductID: "a", Score: 5, PredictedAction: behavior.ActionView, HoverDuration: 1500 * time.Millisecond, LastInteraction: now}
	p.Scores["b"] = &behavior.BehaviorScore{ProductID: "b", Score: 40, PredictedAction: behavior.ActionCart}
	p.Scores["c"] = &behavior.BehaviorScore{ProductID: "c", Score: 5}

	got := Interactions(p, 2)
	if len(got) != 2 {
		t.Fatalf("Interactions() len = %d, want 2", len(got))
	}
	if got[0].ProductID != "b" || got[0].Kind != "cart" {
		t.Errorf("first = %+v, want b/cart", got[0])
	}
	if got[1].ProductID != "a" || got[1].DurationMS != 1500 || !got[1].At.Equal(now) {
		t.Errorf("second = %+v, want a with 1500ms", got[1])
	}

	if all := Interactions(p, 0); len(all) != 3 {
		t.Errorf("Interactions(limit 0) len = %d, want 3", len(all))
	}
	if Interactions(nil, 5) != nil {
		t.Error("nil profile should yield nil")
	}
}
