// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/experiment"
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/scoring"
)

// Tracker is the behavior surface the API drives.
type Tracker interface {
	Track(ctx context.Context, ev behavior.Event) (behavior.BehaviorScore, bool)
	HoverStart(sessionID, productID string, at time.Time)
	HoverEnd(ctx context.Context, sessionID, productID string, at time.Time) (behavior.BehaviorScore, bool)
	TrackSearch(ctx context.Context, s behavior.Search) (behavior.Intent, bool)
	ZeroResultSearches(limit int) []behavior.ZeroResult
	Profile(ctx context.Context, sessionID string) *behavior.Profile
	Sessions() int
	Clear(ctx context.Context, sessionID string) error
}

// Scorer serves per-session product scores.
type Scorer interface {
	Scores(ctx context.Context, sessionID string) []scoring.ProductScore
	Invalidate(sessionID string)
}

// Recommender serves recommendation lists and model lookups.
type Recommender interface {
	Recommend(ctx context.Context, req recommend.Request) *recommend.Response
	Similar(productID string, k int) []algorithms.Neighbor
	BoughtWith(productID string, k int) []algorithms.Rule
	Invalidate(sessionID string)
	Rebuild(ctx context.Context) error
	Status() recommend.TrainingStatus
}

// Reorderer reorders storefront product lists.
type Reorderer interface {
	Reorder(ctx context.Context, req reranking.Request) *reranking.Result
	Segment(ctx context.Context, sessionID string) reranking.Segment
}

// Experiments exposes the experiment controller.
type Experiments interface {
	Assignments(ctx context.Context, sessionID string) map[string]string
	Clear(ctx context.Context, sessionID string) error
	Snapshot() []experiment.Snapshot
	Experiment(id string) (experiment.Snapshot, error)
}

// Catalog exposes the product snapshot and cart collaborator.
type Catalog interface {
	Snapshot() *catalog.Snapshot
	Cart(ctx context.Context, sessionID string) catalog.CartState
	AddToCart(ctx context.Context, sessionID, productID string, quantity int) (catalog.CartState, error)
	RemoveFromCart(ctx context.Context, sessionID, productID string) (catalog.CartState, error)
}

// Auditor records privacy and operations actions.
type Auditor interface {
	SessionCleared(ctx context.Context, sessionID string, src audit.Source, err error)
	RebuildRequested(ctx context.Context, src audit.Source)
	Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error)
}

// Streamer upgrades a request to a live update stream for a session.
type Streamer interface {
	ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) error
}

// Dependencies are the engines a Handler serves.
type Dependencies struct {
	Tracker     Tracker
	Scorer      Scorer
	Recommender Recommender
	Reorderer   Reorderer
	Experiments Experiments
	Catalog     Catalog

	// Audit is optional; without it the audit endpoint answers 501.
	Audit Auditor

	// Stream is optional; without it the stream endpoint answers 501.
	Stream Streamer
}

// Handler implements the HTTP endpoints.
type Handler struct {
	tracker     Tracker
	scorer      Scorer
	recommender Recommender
	reorderer   Reorderer
	experiments Experiments
	catalog     Catalog
	audit       Auditor
	stream      Streamer

	maxBodyBytes int64
	startedAt    time.Time
	now          func() time.Time

	// rebuild is the context background model rebuilds run under.
	rebuild context.Context
}

// NewHandler creates a handler. Every dependency except Audit and Stream
// is required. Bodies larger
// than maxBodyBytes are rejected; non-positive values become 1 MiB.
func NewHandler(deps Dependencies, maxBodyBytes int64) (*Handler, error) {
	switch {
	case deps.Tracker == nil:
		return nil, errors.New("api: tracker is required")
	case deps.Scorer == nil:
		return nil, errors.New("api: scorer is required")
	case deps.Recommender == nil:
		return nil, errors.New("api: recommender is required")
	case deps.Reorderer == nil:
		return nil, errors.New("api: reorderer is required")
	case deps.Experiments == nil:
		return nil, errors.New("api: experiments is required")
	case deps.Catalog == nil:
		return nil, errors.New("api: catalog is required")
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &Handler{
		tracker:      deps.Tracker,
		scorer:       deps.Scorer,
		recommender:  deps.Recommender,
		reorderer:    deps.Reorderer,
		experiments:  deps.Experiments,
		catalog:      deps.Catalog,
		audit:        deps.Audit,
		stream:       deps.Stream,
		maxBodyBytes: maxBodyBytes,
		startedAt:    time.Now(),
		now:          time.Now,
		rebuild:      context.Background(),
	}, nil
}

// SetRebuildContext sets the context that background model rebuilds
// started through the API run under, so they stop on shutdown.
func (h *Handler) SetRebuildContext(ctx context.Context) {
	h.rebuild = ctx
}
