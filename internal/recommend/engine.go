// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/cache"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/scoring"
)

// ErrTrainingInProgress is returned by Rebuild while another rebuild runs.
var ErrTrainingInProgress = errors.New("training already in progress")

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

// Models are the co-purchase models the engine queries and rebuilds.
type Models struct {
	Collaborative *algorithms.Collaborative
	Basket        *algorithms.Basket
}

// Engine merges collaborative neighbors, basket rules, and behavior scores
// into ranked per-page recommendation lists. It is safe for concurrent use.
//
// The co-purchase models change only on Rebuild, so lists may reflect
// co-purchase data older than the live behavior scores they are merged
// with.
type Engine struct {
	cfg       Config
	weights   SourceWeights
	models    Models
	profiles  Profiles
	scores    Scores
	catalog   Catalog
	publisher events.Publisher
	sched     schedule.Scheduler
	logger    zerolog.Logger

	lists *cache.Memo[*Response]

	// trainMu serializes rebuilds; statusMu guards status.
	trainMu  sync.Mutex
	statusMu sync.RWMutex
	status   TrainingStatus
}

// NewEngine creates a new recommendation engine. publisher may be nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(cfg Config, models Models, profiles Profiles, scores Scores, cat Catalog, publisher events.Publisher, sched schedule.Scheduler, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if models.Collaborative == nil {
		models.Collaborative = algorithms.NewCollaborative(algorithms.DefaultCollaborativeConfig(), sched)
	}
	if models.Basket == nil {
		models.Basket = algorithms.NewBasket(algorithms.DefaultBasketConfig(), sched)
	}
	if publisher == nil {
		publisher = events.Discard{}
	}

	memoCfg := cache.DefaultConfig()
	memoCfg.MaxEntries = cfg.CacheEntries
	memoCfg.MaxAge = 10 * cfg.CacheTTL

	return &Engine{
		cfg:       cfg,
		weights:   cfg.Weights.Normalize(),
		models:    models,
		profiles:  profiles,
		scores:    scores,
		catalog:   cat,
		publisher: publisher,
		sched:     sched,
		logger:    logger.With().Str("component", "recommend").Logger(),
		lists:     cache.NewMemo[*Response]("recommendations", memoCfg, sched),
	}, nil
}

// Open starts the list cache sweep.
func (e *Engine) Open() {
	e.lists.Open(e.sched)
}

// Close stops the list cache sweep.
func (e *Engine) Close() {
	e.lists.Close()
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Weights returns the normalized source weights.
func (e *Engine) Weights() SourceWeights { return e.weights }

// Recommend returns the ranked list for a page. It never fails: problems
// yield an empty list. Identical requests within CacheTTL share one list.
// Every call publishes recommendation.applied for a non-empty list.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) *Response {
	req = e.prepareRequest(req)
	logger := e.createRequestLogger(req)

	computed := false
	resp, err := e.lists.Memoize(ctx, e.cacheKey(req), e.cfg.CacheTTL, func(ctx context.Context) (*Response, error) {
		computed = true
		return e.compute(ctx, req), nil
	})
	if err != nil || resp == nil {
		logger.Warn().Err(err).Msg("recommendation failed")
		return e.emptyResponse(req)
	}

	out := e.copyResponse(resp)
	out.Metadata.CacheHit = !computed
	metrics.RecordRecommendations(string(req.Page), len(out.Items))

	if len(out.Items) > 0 {
		e.publisher.Publish(ctx, events.RecommendationApplied{
			SessionID:  req.SessionID,
			Page:       string(req.Page),
			ProductIDs: out.ProductIDs(),
			Source:     "recommend",
			At:         e.sched.Now(),
		})
	}

	logger.Debug().
		Int("candidates", out.TotalCandidates).
		Int("returned", len(out.Items)).
		Bool("cache_hit", out.Metadata.CacheHit).
		Msg("recommendation complete")
	return out
}

// prepareRequest applies limit defaults.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if !req.Page.Valid() {
		req.Page = PageHome
	}
	if req.Page != PageProduct {
		req.ProductID = ""
	}
	if req.Page != PageCollection {
		req.CollectionID = ""
	}
	if req.Limit <= 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Limit > e.cfg.MaxLimit {
		req.Limit = e.cfg.MaxLimit
	}
	return req
}

// createRequestLogger creates a logger with request context.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) createRequestLogger(req Request) zerolog.Logger {
	return e.logger.With().
		Str("session_id", req.SessionID).
		Str("page", string(req.Page)).
		Logger()
}

// cacheKey keys a list by every request field that changes its content.
//
//nolint:gocritic // hugeParam: req passed by value for simplicity
func (e *Engine) cacheKey(req Request) string {
	return fmt.Sprintf("%s|%s|%s|%s|%d", req.SessionID, req.Page, req.ProductID, req.CollectionID, req.Limit)
}

// copyResponse returns a copy safe to annotate. Items are shared.
func (e *Engine) copyResponse(resp *Response) *Response {
	out := *resp
	out.Metadata.Seeds = append([]string(nil), resp.Metadata.Seeds...)
	return &out
}

// emptyResponse returns an empty response.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) emptyResponse(req Request) *Response {
	return &Response{
		Items: []Recommendation{},
		Metadata: ResponseMetadata{
			SessionID:  req.SessionID,
			Page:       req.Page,
			Seeds:      []string{},
			ComputedAt: e.sched.Now(),
		},
	}
}

// Invalidate drops every cached list of the session.
func (e *Engine) Invalidate(sessionID string) {
	if sessionID == "" {
		return
	}
	e.lists.DeletePrefix(sessionID + "|")
}

// InvalidateAll drops every cached list.
func (e *Engine) InvalidateAll() {
	e.lists.DeletePrefix("")
}

// Similar returns up to k products most similar to productID.
func (e *Engine) Similar(productID string, k int) []algorithms.Neighbor {
	return e.models.Collaborative.Neighbors(productID, k)
}

// BoughtWith returns up to k association rules with productID as the
// antecedent, strongest lift first.
func (e *Engine) BoughtWith(productID string, k int) []algorithms.Rule {
	return e.models.Basket.RulesFor(productID, k)
}

// Rebuild retrains both co-purchase models from the catalog's order
// history and drops cached lists. It returns ErrTrainingInProgress
// immediately if a rebuild is already running.
func (e *Engine) Rebuild(ctx context.Context) error {
	if !e.trainMu.TryLock() {
		return ErrTrainingInProgress
	}
	defer e.trainMu.Unlock()

	start := time.Now()
	e.statusMu.Lock()
	e.status.IsTraining = true
	e.statusMu.Unlock()
	e.logger.Info().Msg("starting model training")

	trainCtx, cancel := context.WithTimeout(ctx, e.cfg.TrainingTimeout)
	defer cancel()

	orders := e.catalog.Snapshot().Orders()
	err := e.trainAll(trainCtx, orders)

	e.statusMu.Lock()
	e.status.IsTraining = false
	e.status.LastDurationMS = time.Since(start).Milliseconds()
	if err != nil {
		e.status.LastError = err.Error()
	} else {
		e.status.LastError = ""
		e.status.ModelVersion++
		e.status.LastTrainedAt = e.sched.Now()
		e.status.Orders = len(orders)
		e.status.SimilarPairs = e.models.Collaborative.Size()
		e.status.Rules = e.models.Basket.Size()
	}
	status := e.status
	e.statusMu.Unlock()

	if err != nil {
		e.logger.Error().Err(err).Msg("model training failed")
		return err
	}

	e.InvalidateAll()
	e.logger.Info().
		Int("version", status.ModelVersion).
		Int("orders", status.Orders).
		Int("similar_pairs", status.SimilarPairs).
		Int("rules", status.Rules).
		Int64("duration_ms", status.LastDurationMS).
		Msg("model training complete")
	return nil
}

// trainAll trains both models concurrently.
func (e *Engine) trainAll(ctx context.Context, orders []catalog.Order) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, m := range []algorithms.Model{e.models.Collaborative, e.models.Basket} {
		g.Go(func() error {
			if err := m.Train(gctx, orders); err != nil {
				return fmt.Errorf("train %s: %w", m.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Status returns the current training status.
func (e *Engine) Status() TrainingStatus {
	e.statusMu.RLock()
	defer e.statusMu.RUnlock()
	return e.status
}
