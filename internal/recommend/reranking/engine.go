// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/enrichment"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/scoring"
)

// Profiles supplies behavior profiles.
type Profiles interface {
	Profile(ctx context.Context, sessionID string) *behavior.Profile
}

// Scores supplies per-session product scores.
type Scores interface {
	Result(ctx context.Context, sessionID string) *scoring.Result
}

// Catalog supplies the current product snapshot.
type Catalog interface {
	Snapshot() *catalog.Snapshot
}

// Related supplies co-purchase relations for cross-selling.
type Related interface {
	Similar(productID string, k int) []algorithms.Neighbor
	BoughtWith(productID string, k int) []algorithms.Rule
}

// Segmenter is the optional segmentation enrichment.
type Segmenter interface {
	Segment(ctx context.Context, sessionID string, interactions []enrichment.Interaction) (string, bool)
}

// Variants resolves a session's experiment variant.
type Variants interface {
	Resolve(ctx context.Context, sessionID string, segment Segment, page string) (Variant, bool)
}

// Engine reorders product lists by probabilistically blending strategy
// proposals into the natural order. It is safe for concurrent use.
type Engine struct {
	cfg        Config
	strategies []Strategy
	profiles   Profiles
	scores     Scores
	catalog    Catalog
	related    Related
	segmenter  Segmenter
	variants   Variants
	publisher  events.Publisher
	clock      schedule.Clock
	logger     zerolog.Logger

	// Random source (protected by rngMu for concurrent access)
	rng   *rand.Rand
	rngMu sync.Mutex
}

// NewEngine creates a reorder engine. related, segmenter, variants, and
// publisher may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(cfg Config, profiles Profiles, scores Scores, cat Catalog, related Related, segmenter Segmenter, variants Variants, publisher events.Publisher, clock schedule.Clock, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if segmenter == nil {
		segmenter = (*enrichment.Client)(nil)
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	if clock == nil {
		clock = schedule.SystemClock{}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		cfg:        cfg,
		strategies: Strategies(),
		profiles:   profiles,
		scores:     scores,
		catalog:    cat,
		related:    related,
		segmenter:  segmenter,
		variants:   variants,
		publisher:  publisher,
		clock:      clock,
		logger:     logger.With().Str("component", "reorder").Logger(),
		rng:        rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for blend draws
	}, nil
}

// Segment returns the session's segment. The segmentation enrichment
// overrides the rule-based value when it answers with a known segment.
func (e *Engine) Segment(ctx context.Context, sessionID string) Segment {
	return e.segment(ctx, sessionID, e.profiles.Profile(ctx, sessionID))
}

func (e *Engine) segment(ctx context.Context, sessionID string, p *behavior.Profile) Segment {
	seg := e.cfg.Segments.Classify(p)
	if remote, ok := e.segmenter.Segment(ctx, sessionID, enrichment.Interactions(p, enrichment.DefaultInteractionLimit)); ok {
		if s := Segment(remote); s.Valid() {
			return s
		}
	}
	return seg
}

// Settings returns the settings for a session: its experiment variant's
// when one resolves, otherwise the configured defaults.
func (e *Engine) Settings(ctx context.Context, sessionID string, seg Segment, page string) (Settings, Variant, bool) {
	if e.variants != nil {
		if v, ok := e.variants.Resolve(ctx, sessionID, seg, page); ok {
			s := v.Settings
			if !s.Subtlety.Valid() {
				s.Subtlety = e.cfg.Defaults.Subtlety
			}
			return s, v, true
		}
	}
	return e.cfg.Defaults, Variant{}, false
}

// EffectiveWeight is clamp(base × global × class, 0, 1), further scaled by
// the personalization strength for the personalization strategy.
func (e *Engine) EffectiveWeight(st Strategy, s Settings) float64 {
	w := e.cfg.Weights[st.Name] * s.Subtlety.Multiplier() * st.Class.Multiplier()
	if st.Name == StrategyPersonalization {
		w *= s.PersonalizationStrength
	}
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}

// Reorder applies every enabled, applicable strategy to the list in turn.
// The output always holds each input product exactly once. It never fails.
func (e *Engine) Reorder(ctx context.Context, req Request) *Result {
	current := lo.Uniq(lo.Compact(req.ProductIDs))
	profile := e.profiles.Profile(ctx, req.SessionID)
	seg := e.segment(ctx, req.SessionID, profile)
	settings, variant, inExperiment := e.Settings(ctx, req.SessionID, seg, string(req.Page))

	res := &Result{
		SessionID: req.SessionID,
		Page:      string(req.Page),
		Segment:   seg,
		Settings:  settings,
		Applied:   []Applied{},
	}
	if inExperiment {
		res.ExperimentID = variant.ExperimentID
		res.VariantID = variant.VariantID
	}

	in := &Inputs{
		Snapshot:      e.catalog.Snapshot(),
		Scores:        e.scores.Result(ctx, req.SessionID),
		Profile:       profile,
		Segment:       seg,
		criticalStock: e.cfg.CriticalStock,
		lowStock:      e.cfg.LowStock,
		saleTags:      e.cfg.SaleTags,
	}
	in.Related = e.relatedToCart(profile)

	var fromProposed int
	for _, st := range e.strategies {
		if !settings.Enabled(st.Name) || !st.Applies(in) {
			continue
		}
		w := e.EffectiveWeight(st, settings)
		proposed := st.Order(current, in)

		e.rngMu.Lock()
		blended, taken := Blend(current, proposed, w, e.rng)
		e.rngMu.Unlock()

		current = blended
		fromProposed += taken
		res.Applied = append(res.Applied, Applied{Strategy: st.Name, Class: st.Class, Weight: w, FromProposed: taken})
		metrics.SetReorderStrategyWeight(st.Name, w)
	}
	res.ProductIDs = current

	metrics.RecordReorder(fromProposed, len(res.Applied)*len(current)-fromProposed)
	if len(current) > 0 {
		e.publisher.Publish(ctx, events.RecommendationApplied{
			SessionID:    req.SessionID,
			Page:         string(req.Page),
			ProductIDs:   current,
			Source:       "reorder",
			ExperimentID: res.ExperimentID,
			VariantID:    res.VariantID,
			At:           e.clock.Now(),
		})
	}

	e.logger.Debug().
		Str("session_id", req.SessionID).
		Str("segment", string(seg)).
		Str("subtlety", string(settings.Subtlety)).
		Int("strategies", len(res.Applied)).
		Int("from_proposed", fromProposed).
		Msg("reorder complete")
	return res
}

// relatedToCart maps products to their strongest co-purchase relation with
// any cart item: rule confidence or neighbor similarity.
func (e *Engine) relatedToCart(p *behavior.Profile) map[string]float64 {
	out := make(map[string]float64)
	if e.related == nil || p == nil {
		return out
	}
	k := e.cfg.CrossSellPerItem
	p.Cart.Each(func(id string) bool {
		for _, r := range e.related.BoughtWith(id, k) {
			out[r.Consequent] = max(out[r.Consequent], r.Confidence)
		}
		for _, n := range e.related.Similar(id, k) {
			out[n.ProductID] = max(out[n.ProductID], n.Similarity)
		}
		return false
	})
	return out
}
