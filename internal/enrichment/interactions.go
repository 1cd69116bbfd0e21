// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package enrichment

import (
	"sort"

	"github.com/tomtom215/shopsense/internal/behavior"
)

// DefaultInteractionLimit bounds the interactions sent to session endpoints.
const DefaultInteractionLimit = 25

// Interactions summarizes a profile's strongest product signals for the
// session endpoints, highest score first.
func Interactions(p *behavior.Profile, limit int) []Interaction {
	if p == nil {
		return nil
	}
	scores := make([]*behavior.BehaviorScore, 0, len(p.Scores))
	for _, s := range p.Scores {
		scores = append(scores, s)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ProductID < scores[j].ProductID
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	out := make([]Interaction, len(scores))
	for i, s := range scores {
		out[i] = Interaction{
			ProductID:  s.ProductID,
			Kind:       s.PredictedAction.String(),
			Score:      s.Score,
			DurationMS: s.HoverDuration.Milliseconds(),
			At:         s.LastInteraction,
		}
	}
	return out
}
