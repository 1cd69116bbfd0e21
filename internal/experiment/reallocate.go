// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package experiment

import (
	"context"

	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
)

// Reallocate runs one bandit pass over every experiment and persists the
// results.
//
// Only running experiments take part; a completed experiment keeps its
// final weights. A running experiment completes when its best variant is
// not the control, both have at least MinSamples impressions, and the best
// variant's relative lift over the control exceeds Threshold. Independently,
// every weight moves toward the variant's share of the summed metric,
//
//	w = (1-Smoothing)·w + Smoothing·share
//
// and the weights are renormalized to sum to 1. When every metric is zero
// the weights are only renormalized.
func (c *Controller) Reallocate(ctx context.Context) error {
	now := c.sched.Now()
	var completed []events.ExperimentCompleted

	c.mu.Lock()
	for _, id := range c.order {
		exp := c.experiments[id]
		if exp.status != StatusRunning {
			continue
		}
		if winner, lift, ok := detectWinner(exp); ok {
			exp.status = StatusCompleted
			exp.winner = winner
			exp.lift = lift
			exp.completedAt = now
			completed = append(completed, events.ExperimentCompleted{
				ExperimentID: id,
				WinnerID:     winner,
				Metric:       string(exp.def.Metric),
				Lift:         lift,
				At:           now,
			})
			c.logger.Info().Str("experiment_id", id).Str("winner", winner).Float64("lift", lift).Msg("experiment completed")
		}
		c.rebalance(exp)
	}
	c.mu.Unlock()

	for _, ev := range completed {
		c.publisher.Publish(ctx, ev)
	}
	return c.persistResults(ctx)
}

// detectWinner compares the best variant by primary metric against the
// control. A zero control metric never declares a winner.
func detectWinner(exp *experiment) (string, float64, bool) {
	m := exp.def.Metric
	best := 0
	for i, v := range exp.variants {
		if v.Value(m) > exp.variants[best].Value(m) {
			best = i
		}
	}
	leader := exp.variants[best]
	control := exp.variants[exp.index[exp.def.Control]]
	if leader.ID == control.ID {
		return "", 0, false
	}
	if leader.Impressions < exp.def.MinSamples || control.Impressions < exp.def.MinSamples {
		return "", 0, false
	}
	base := control.Value(m)
	if base <= 0 {
		return "", 0, false
	}
	lift := (leader.Value(m) - base) / base
	if lift <= exp.def.Threshold {
		return "", 0, false
	}
	return leader.ID, lift, true
}

// rebalance applies the smoothed weight update. Must hold mu.
func (c *Controller) rebalance(exp *experiment) {
	m := exp.def.Metric
	var total float64
	for _, v := range exp.variants {
		total += v.Value(m)
	}

	weights := make([]float64, len(exp.variants))
	for i, v := range exp.variants {
		weights[i] = v.Weight
		if total > 0 {
			weights[i] = (1-c.cfg.Smoothing)*v.Weight + c.cfg.Smoothing*v.Value(m)/total
		}
	}
	normalizeWeights(weights)
	for i := range exp.variants {
		exp.variants[i].Weight = weights[i]
		metrics.SetExperimentWeight(exp.def.ID, exp.variants[i].ID, weights[i])
	}
}
