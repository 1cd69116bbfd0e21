// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/store"
)

// resultsVersion is bumped when resultsRecord changes incompatibly.
const resultsVersion = 1

// resultsRecord is the persisted form of every experiment's state.
type resultsRecord struct {
	Version     int        `json:"version"`
	Experiments []Snapshot `json:"experiments"`
}

func (c *Controller) persistResults(ctx context.Context) error {
	rec := resultsRecord{Version: resultsVersion, Experiments: c.Snapshot()}
	err := store.SetJSON(ctx, c.kv, store.ResultsKey(), rec)
	metrics.RecordPersistence("results_save", err)
	if err != nil {
		return fmt.Errorf("persist experiment results: %w", err)
	}
	return nil
}

// restore loads persisted counters into registered experiments. Records
// for unknown experiments, or whose variants no longer match, are skipped.
func (c *Controller) restore(ctx context.Context) {
	var rec resultsRecord
	err := store.GetJSON(ctx, c.kv, store.ResultsKey(), &rec)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	metrics.RecordPersistence("results_load", err)
	if err != nil {
		c.logger.Warn().Err(err).Msg("discarding unreadable experiment results")
		return
	}
	if rec.Version != resultsVersion {
		c.logger.Warn().Int("version", rec.Version).Msg("discarding incompatible experiment results")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	restored := 0
	for _, snap := range rec.Experiments {
		exp, ok := c.experiments[snap.ID]
		if !ok || !sameVariants(exp, snap) {
			continue
		}
		copy(exp.variants, snap.Variants)
		if snap.Status == StatusCompleted {
			if _, ok := exp.index[snap.Winner]; ok {
				exp.status = StatusCompleted
				exp.winner = snap.Winner
				exp.lift = snap.Lift
				exp.completedAt = snap.CompletedAt
			}
		}
		restored++
	}
	c.logger.Debug().Int("experiments", restored).Msg("experiment results restored")
}

func sameVariants(exp *experiment, snap Snapshot) bool {
	if len(exp.variants) != len(snap.Variants) {
		return false
	}
	for i, v := range snap.Variants {
		if exp.variants[i].ID != v.ID {
			return false
		}
	}
	return true
}
