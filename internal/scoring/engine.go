// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package scoring

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/cache"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/enrichment"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// errUnavailable keeps failed sentiment lookups out of the memo.
var errUnavailable = errors.New("enrichment unavailable")

// Profiles supplies behavior profiles.
type Profiles interface {
	Profile(ctx context.Context, sessionID string) *behavior.Profile
}

// Catalog supplies the current product snapshot.
type Catalog interface {
	Snapshot() *catalog.Snapshot
}

// Enricher is the optional enrichment collaborator.
type Enricher interface {
	Sentiment(ctx context.Context, productID string) (float64, bool)
	Forecast(ctx context.Context, productIDs []string) (map[string]float64, bool)
	Pattern(ctx context.Context, sessionID string, interactions []enrichment.Interaction) (enrichment.Pattern, bool)
}

// Result is one session's scored catalog, highest total first.
type Result struct {
	SessionID  string
	Pattern    string
	ComputedAt time.Time
	Scores     []ProductScore
	index      map[string]int
}

// Get returns the score of productID.
func (r *Result) Get(productID string) (ProductScore, bool) {
	if r == nil {
		return ProductScore{}, false
	}
	i, ok := r.index[productID]
	if !ok {
		return ProductScore{}, false
	}
	return r.Scores[i], true
}

// Engine computes and caches per-session product scores.
type Engine struct {
	cfg       Config
	profiles  Profiles
	catalog   Catalog
	enricher  Enricher
	publisher events.Publisher
	sched     schedule.Scheduler
	logger    zerolog.Logger

	results    *cache.Memo[*Result]
	sentiments *cache.Memo[float64]
	debounce   *cache.Debouncer

	mu     sync.Mutex
	active map[string]time.Time
}

// NewEngine creates an engine. enricher and publisher may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(cfg Config, profiles Profiles, cat Catalog, enricher Enricher, publisher events.Publisher, sched schedule.Scheduler, logger zerolog.Logger) *Engine {
	if enricher == nil {
		enricher = (*enrichment.Client)(nil)
	}
	if publisher == nil {
		publisher = events.Discard{}
	}
	memoCfg := cache.DefaultConfig()
	memoCfg.MaxEntries = cfg.MaxSessions
	memoCfg.MaxAge = 10 * cfg.RecomputeInterval

	sentimentCfg := cache.DefaultConfig()
	sentimentCfg.MaxAge = cfg.SentimentTTL

	return &Engine{
		cfg:        cfg,
		profiles:   profiles,
		catalog:    cat,
		enricher:   enricher,
		publisher:  publisher,
		sched:      sched,
		logger:     logger.With().Str("component", "scoring").Logger(),
		results:    cache.NewMemo[*Result]("product_scores", memoCfg, sched),
		sentiments: cache.NewMemo[float64]("sentiment", sentimentCfg, sched),
		debounce:   cache.NewDebouncer(sched, cfg.InvalidateDelay, true),
		active:     make(map[string]time.Time),
	}
}

// Open starts the cache sweeps.
func (e *Engine) Open() {
	e.results.Open(e.sched)
	e.sentiments.Open(e.sched)
}

// Close stops background work and drops pending invalidations.
func (e *Engine) Close() {
	e.debounce.Close()
	e.results.Close()
	e.sentiments.Close()
}

// Config returns the engine's rules.
func (e *Engine) Config() Config { return e.cfg }

// ScoreProduct scores one product with the engine's rules.
func (e *Engine) ScoreProduct(p catalog.Product, sig Signals) ProductScore {
	return e.cfg.ScoreProduct(p, sig)
}

// Scores returns every catalog product's score for the session, highest
// first. Results are reused for RecomputeInterval; the returned slice is
// shared and must not be modified.
func (e *Engine) Scores(ctx context.Context, sessionID string) []ProductScore {
	return e.result(ctx, sessionID).Scores
}

// Score returns one product's score for the session.
func (e *Engine) Score(ctx context.Context, sessionID, productID string) (ProductScore, bool) {
	return e.result(ctx, sessionID).Get(productID)
}

// Result returns the session's full scoring result.
func (e *Engine) Result(ctx context.Context, sessionID string) *Result {
	return e.result(ctx, sessionID)
}

func (e *Engine) result(ctx context.Context, sessionID string) *Result {
	e.touch(sessionID)
	res, err := e.results.Memoize(ctx, sessionID, e.cfg.RecomputeInterval, func(ctx context.Context) (*Result, error) {
		return e.compute(ctx, sessionID), nil
	})
	if err != nil || res == nil {
		e.logger.Warn().Err(err).Str("session_id", sessionID).Msg("score computation failed")
		return &Result{SessionID: sessionID, index: map[string]int{}}
	}
	return res
}

func (e *Engine) touch(sessionID string) {
	e.mu.Lock()
	e.active[sessionID] = e.sched.Now()
	e.mu.Unlock()
}

// Invalidate drops the session's cached scores. The first call in a quiet
// period recomputes immediately and publishes scores.updated; calls within
// InvalidateDelay of it only drop the cache, so the next read recomputes.
func (e *Engine) Invalidate(sessionID string) {
	if sessionID == "" {
		return
	}
	e.results.Delete(sessionID)
	e.debounce.Trigger(sessionID, func() {
		e.Refresh(context.Background(), sessionID)
	})
}

// Refresh recomputes the session's scores now and publishes scores.updated.
func (e *Engine) Refresh(ctx context.Context, sessionID string) *Result {
	res := e.compute(ctx, sessionID)
	e.results.Set(sessionID, res)

	var top string
	if len(res.Scores) > 0 {
		top = res.Scores[0].ProductID
	}
	e.publisher.Publish(ctx, events.ScoresUpdated{
		SessionID: sessionID,
		Products:  len(res.Scores),
		TopID:     top,
		At:        res.ComputedAt,
	})
	return res
}

// RefreshActive recomputes sessions read within ActiveWindow and forgets
// older ones. It returns the number of sessions recomputed.
func (e *Engine) RefreshActive(ctx context.Context) int {
	now := e.sched.Now()
	e.mu.Lock()
	ids := make([]string, 0, len(e.active))
	for id, seen := range e.active {
		if now.Sub(seen) > e.cfg.ActiveWindow {
			delete(e.active, id)
			continue
		}
		ids = append(ids, id)
	}
	e.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		e.Refresh(ctx, id)
	}
	return len(ids)
}

// InvalidateAll drops every cached session result, e.g. after a catalog
// refresh.
func (e *Engine) InvalidateAll() {
	e.results.DeletePrefix("")
}

// compute scores the whole catalog for one session.
func (e *Engine) compute(ctx context.Context, sessionID string) *Result {
	start := time.Now()
	now := e.sched.Now()
	profile := e.profiles.Profile(ctx, sessionID)
	products := e.catalog.Snapshot().Products()

	sig := Signals{Profile: profile, Now: now}
	res := &Result{SessionID: sessionID, ComputedAt: now}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	if f, ok := e.enricher.Forecast(ctx, ids); ok {
		sig.Forecast = f
	}
	if len(profile.Scores) > 0 {
		if pat, ok := e.enricher.Pattern(ctx, sessionID, enrichment.Interactions(profile, enrichment.DefaultInteractionLimit)); ok {
			sig.PurchaseProbability = pat.PurchaseProbability
			res.Pattern = pat.Pattern
		}
		sig.Sentiment = e.sentimentFor(ctx, profile)
	}

	res.Scores = make([]ProductScore, len(products))
	for i, p := range products {
		res.Scores[i] = e.cfg.ScoreProduct(p, sig)
	}
	sort.SliceStable(res.Scores, func(i, j int) bool {
		if res.Scores[i].TotalScore != res.Scores[j].TotalScore {
			return res.Scores[i].TotalScore > res.Scores[j].TotalScore
		}
		return res.Scores[i].ProductID < res.Scores[j].ProductID
	})
	res.index = make(map[string]int, len(res.Scores))
	for i, s := range res.Scores {
		res.index[s.ProductID] = i
	}

	metrics.RecordScoreRecompute(time.Since(start), len(products))
	return res
}

// sentimentFor looks up sentiment for the products the session interacted
// with. Other products score without a sentiment bonus.
func (e *Engine) sentimentFor(ctx context.Context, profile *behavior.Profile) map[string]float64 {
	out := make(map[string]float64)
	for id := range profile.Scores {
		v, err := e.sentiments.Memoize(ctx, id, e.cfg.SentimentTTL, func(ctx context.Context) (float64, error) {
			s, ok := e.enricher.Sentiment(ctx, id)
			if !ok {
				return 0, errUnavailable
			}
			return s, nil
		})
		if err == nil {
			out[id] = v
		}
	}
	return out
}
