// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/experiment"
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/recommend/algorithms"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/scoring"
)

type fakeTracker struct {
	mu       sync.Mutex
	events   []behavior.Event
	hovers   []string
	searches []behavior.Search
	cleared  []string
	drop     bool
	clearErr error
	profile  *behavior.Profile
}

func (f *fakeTracker) Track(_ context.Context, ev behavior.Event) (behavior.BehaviorScore, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	if f.drop {
		return behavior.BehaviorScore{}, false
	}
	return behavior.BehaviorScore{ProductID: ev.ProductID, Score: 1}, true
}

func (f *fakeTracker) HoverStart(sessionID, productID string, _ time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hovers = append(f.hovers, "start:"+sessionID+":"+productID)
}

func (f *fakeTracker) HoverEnd(_ context.Context, sessionID, productID string, _ time.Time) (behavior.BehaviorScore, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hovers = append(f.hovers, "end:"+sessionID+":"+productID)
	return behavior.BehaviorScore{ProductID: productID, Hovers: 1}, true
}

func (f *fakeTracker) TrackSearch(_ context.Context, s behavior.Search) (behavior.Intent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, s)
	return behavior.Intent{Keywords: []string{s.Query}}, true
}

func (f *fakeTracker) ZeroResultSearches(limit int) []behavior.ZeroResult {
	out := []behavior.ZeroResult{{Query: "velvet sofa", Count: 3}, {Query: "teal lamp", Count: 1}}
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (f *fakeTracker) Profile(_ context.Context, sessionID string) *behavior.Profile {
	if f.profile != nil {
		return f.profile
	}
	return behavior.NewProfile(sessionID, time.Unix(0, 0))
}

func (f *fakeTracker) Sessions() int { return 4 }

func (f *fakeTracker) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, sessionID)
	return f.clearErr
}

func (f *fakeTracker) recorded() []behavior.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]behavior.Event(nil), f.events...)
}

type fakeScorer struct {
	mu          sync.Mutex
	invalidated []string
}

func (f *fakeScorer) Scores(_ context.Context, _ string) []scoring.ProductScore {
	return []scoring.ProductScore{{ProductID: "p1"}, {ProductID: "p2"}, {ProductID: "p3"}}
}

func (f *fakeScorer) Invalidate(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, sessionID)
}

type fakeRecommender struct {
	mu          sync.Mutex
	requests    []recommend.Request
	invalidated []string
	training    bool
	rebuilds    chan struct{}
}

func newFakeRecommender() *fakeRecommender {
	return &fakeRecommender{rebuilds: make(chan struct{}, 4)}
}

func (f *fakeRecommender) Recommend(_ context.Context, req recommend.Request) *recommend.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return &recommend.Response{
		Items:           []recommend.Recommendation{{ProductID: "p2", Score: 0.8}},
		TotalCandidates: 1,
		Metadata:        recommend.ResponseMetadata{SessionID: req.SessionID, Page: req.Page, CacheHit: true},
	}
}

func (f *fakeRecommender) Similar(productID string, k int) []algorithms.Neighbor {
	return []algorithms.Neighbor{{ProductID: productID + "-n", Similarity: float64(k)}}
}

func (f *fakeRecommender) BoughtWith(productID string, k int) []algorithms.Rule {
	return []algorithms.Rule{{Antecedent: productID, Consequent: "p3", Count: k}}
}

func (f *fakeRecommender) Invalidate(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, sessionID)
}

func (f *fakeRecommender) Rebuild(context.Context) error {
	f.rebuilds <- struct{}{}
	return nil
}

func (f *fakeRecommender) Status() recommend.TrainingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return recommend.TrainingStatus{IsTraining: f.training, ModelVersion: 2}
}

type fakeReorderer struct{}

func (fakeReorderer) Reorder(_ context.Context, req reranking.Request) *reranking.Result {
	ids := make([]string, len(req.ProductIDs))
	for i, id := range req.ProductIDs {
		ids[len(ids)-1-i] = id
	}
	return &reranking.Result{SessionID: req.SessionID, Page: string(req.Page), ProductIDs: ids, Segment: reranking.SegmentNew}
}

func (fakeReorderer) Segment(context.Context, string) reranking.Segment {
	return reranking.SegmentReturning
}

type fakeExperiments struct {
	mu      sync.Mutex
	cleared []string
}

func (f *fakeExperiments) Assignments(context.Context, string) map[string]string {
	return map[string]string{"layout": "bold"}
}

func (f *fakeExperiments) Clear(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, sessionID)
	return nil
}

func (f *fakeExperiments) Snapshot() []experiment.Snapshot {
	return []experiment.Snapshot{{ID: "layout", Control: "control"}}
}

func (f *fakeExperiments) Experiment(id string) (experiment.Snapshot, error) {
	if id != "layout" {
		return experiment.Snapshot{}, fmt.Errorf("%w: %s", experiment.ErrUnknownExperiment, id)
	}
	return experiment.Snapshot{ID: "layout", Control: "control"}, nil
}

// fakeAuditor writes synchronously to a memory store.
type fakeAuditor struct {
	store    *audit.MemoryStore
	queryErr error
}

func (f *fakeAuditor) SessionCleared(ctx context.Context, sessionID string, src audit.Source, err error) {
	ev := &audit.Event{
		ID:        "clear-" + sessionID,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Type:      audit.TypeSessionCleared,
		Outcome:   audit.OutcomeSuccess,
		Source:    src,
		Target:    audit.Target{ID: sessionID, Type: "session"},
	}
	if err != nil {
		ev.Outcome = audit.OutcomeFailure
	}
	_ = f.store.Save(ctx, ev)
}

func (f *fakeAuditor) RebuildRequested(ctx context.Context, src audit.Source) {
	_ = f.store.Save(ctx, &audit.Event{
		ID:        "rebuild",
		Timestamp: time.Date(2026, 3, 1, 12, 1, 0, 0, time.UTC),
		Type:      audit.TypeModelRebuildRequested,
		Source:    src,
		Target:    audit.Target{ID: "recommendation-models", Type: "model"},
	})
}

func (f *fakeAuditor) Query(ctx context.Context, filter audit.QueryFilter) ([]audit.Event, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.store.Query(ctx, filter)
}

var errBackendDown = errors.New("backend down")

// testFixture holds a Handler wired to fakes and a static catalog.
type testFixture struct {
	tracker     *fakeTracker
	scorer      *fakeScorer
	recommender *fakeRecommender
	experiments *fakeExperiments
	audit       *fakeAuditor
	source      *catalog.StaticSource
	catalog     *catalog.Catalog
	handler     *Handler
}

func newFixture() *testFixture {
	source := catalog.NewStaticSource(catalog.Data{
		Products: []catalog.Product{
			{ID: "p1", Title: "Oak Table", Price: 120, Inventory: 4, Available: true},
			{ID: "p2", Title: "Linen Throw", Price: 40, Inventory: 12, Available: true},
			{ID: "p3", Title: "Brass Lamp", Price: 85, Inventory: 2, Available: true},
		},
	})
	cat := catalog.New(source, source, events.Discard{}, schedule.SystemClock{}, zerolog.Nop())
	if err := cat.Refresh(context.Background()); err != nil {
		panic(err)
	}

	f := &testFixture{
		tracker:     &fakeTracker{},
		scorer:      &fakeScorer{},
		recommender: newFakeRecommender(),
		experiments: &fakeExperiments{},
		audit:       &fakeAuditor{store: audit.NewMemoryStore(100)},
		source:      source,
		catalog:     cat,
	}
	h, err := NewHandler(Dependencies{
		Tracker:     f.tracker,
		Scorer:      f.scorer,
		Recommender: f.recommender,
		Reorderer:   fakeReorderer{},
		Experiments: f.experiments,
		Catalog:     cat,
		Audit:       f.audit,
	}, 4096)
	if err != nil {
		panic(err)
	}
	h.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	f.handler = h
	return f
}
