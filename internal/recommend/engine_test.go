// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package recommend

import (
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/scoring"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type staticCatalog struct{ snap *catalog.Snapshot }

func (s staticCatalog) Snapshot() *catalog.Snapshot { return s.snap }

// fakeProfiles hands out fixed profiles; unknown sessions get an empty one.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*behavior.Profile
}

func (f *fakeProfiles) Profile(_ context.Context, sessionID string) *behavior.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[sessionID]; ok {
		return p.Clone()
	}
	return behavior.NewProfile(sessionID, epoch)
}

func (f *fakeProfiles) set(p *behavior.Profile) {
	f.mu.Lock()
	f.profiles[p.SessionID] = p
	f.mu.Unlock()
}

func buy(id, user string, items ...string) catalog.Order {
	o := catalog.Order{ID: id, UserID: user, CreatedAt: epoch}
	for _, p := range items {
		o.Items = append(o.Items, catalog.LineItem{ProductID: p, Quantity: 1, Price: 10})
	}
	return o
}

// storeData: shoe is co-bought with sock (twice) and lace (once).
func storeData() catalog.Data {
	created := epoch.Add(-90 * 24 * time.Hour)
	return catalog.Data{
		Products: []catalog.Product{
			{ID: "shoe", Title: "Trail Shoe", Price: 80, Inventory: 20, Available: true, ProductType: "Shoes", Tags: []string{"running"}, CreatedAt: created},
			{ID: "boot", Title: "Hiking Boot", Price: 90, Inventory: 20, Available: true, ProductType: "Shoes", Tags: []string{"Running"}, CreatedAt: created},
			{ID: "sock", Title: "Wool Sock", Price: 10, Inventory: 3, Available: true, ProductType: "Apparel", CreatedAt: created},
			{ID: "lace", Title: "Spare Laces", Price: 5, Inventory: 50, Available: true, ProductType: "Accessories", CreatedAt: created},
			{ID: "hat", Title: "Sun Hat", Price: 30, Inventory: 10, Available: true, ProductType: "Apparel", Tags: []string{"sale"}, CreatedAt: created},
			{ID: "gone", Title: "Retired Jacket", Price: 120, Inventory: 0, Available: false, ProductType: "Apparel", CreatedAt: created},
		},
		Collections: []catalog.Collection{
			{ID: "c1", Handle: "summer", Title: "Summer", ProductIDs: []string{"hat", "sock"}},
		},
		Orders: []catalog.Order{
			buy("o1", "u1", "shoe", "sock"),
			buy("o2", "u2", "shoe", "sock"),
			buy("o3", "u3", "shoe", "lace"),
			buy("o4", "u4", "gone"),
			buy("o5", "u5", "gone"),
		},
	}
}

type fixture struct {
	engine   *Engine
	profiles *fakeProfiles
	recorder *events.Recorder
	sched    *schedule.Manual
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	sched := schedule.NewManual(epoch)
	cat := staticCatalog{snap: catalog.NewSnapshot(storeData(), epoch)}
	profiles := &fakeProfiles{profiles: make(map[string]*behavior.Profile)}
	scorer := scoring.NewEngine(scoring.DefaultConfig(), profiles, cat, nil, nil, sched, zerolog.Nop())
	rec := &events.Recorder{}

	e, err := NewEngine(cfg, Models{}, profiles, scorer, cat, rec, sched, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := e.Rebuild(context.Background()); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	e.Open()
	t.Cleanup(e.Close)
	return &fixture{engine: e, profiles: profiles, recorder: rec, sched: sched}
}

func ids(resp *Response) []string { return resp.ProductIDs() }

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

func item(resp *Response, id string) (Recommendation, bool) {
	for _, it := range resp.Items {
		if it.ProductID == id {
			return it, true
		}
	}
	return Recommendation{}, false
}

func TestEngine_ProductPage(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	resp := f.engine.Recommend(context.Background(), Request{SessionID: "s1", Page: PageProduct, ProductID: "shoe"})

	got := ids(resp)
	if len(got) == 0 || got[0] != "sock" {
		t.Fatalf("Recommend(product shoe) = %v, want sock first", got)
	}
	if contains(got, "shoe") {
		t.Error("current product must be excluded")
	}
	if contains(got, "gone") {
		t.Error("unavailable product must be excluded")
	}

	sock, _ := item(resp, "sock")
	if want := 2 / math.Sqrt(6); math.Abs(sock.Components[SourceCollaborative]-want) > 1e-9 {
		t.Errorf("sock collaborative = %v, want %v", sock.Components[SourceCollaborative], want)
	}
	if math.Abs(sock.Components[SourceBasket]-1) > 1e-9 {
		t.Errorf("sock basket = %v, want 1", sock.Components[SourceBasket])
	}
	if len(sock.Reasons) == 0 || !strings.Contains(sock.Reasons[0], "Trail Shoe") {
		t.Errorf("sock reasons = %v, want the seed named first", sock.Reasons)
	}
	if !contains(sock.Boosts, BoostLowStock) {
		t.Errorf("sock boosts = %v, want %s", sock.Boosts, BoostLowStock)
	}
	if sock.Score < sock.BaseScore {
		t.Errorf("boosted score %v below base %v", sock.Score, sock.BaseScore)
	}

	for i := 1; i < len(resp.Items); i++ {
		if resp.Items[i].Score > resp.Items[i-1].Score {
			t.Errorf("items not sorted at %d: %v > %v", i, resp.Items[i].Score, resp.Items[i-1].Score)
		}
	}
	if len(resp.Metadata.Seeds) != 1 || resp.Metadata.Seeds[0] != "shoe" {
		t.Errorf("seeds = %v, want [shoe]", resp.Metadata.Seeds)
	}
	if resp.Metadata.ModelVersion != 1 {
		t.Errorf("model version = %d, want 1", resp.Metadata.ModelVersion)
	}
}

func TestEngine_Exclusions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(p *behavior.Profile)
		req     Request
		absent  []string
		present []string
		only    []string
	}{
		{
			name:    "cart items hidden on cart page",
			setup:   func(p *behavior.Profile) { p.Cart.Add("shoe"); p.Cart.Add("sock") },
			req:     Request{Page: PageCart},
			absent:  []string{"shoe", "sock"},
			present: []string{"lace"},
		},
		{
			name:    "cart items shown on home page",
			setup:   func(p *behavior.Profile) { p.Cart.Add("sock") },
			req:     Request{Page: PageHome},
			present: []string{"sock"},
		},
		{
			name:   "purchased products hidden",
			setup:  func(p *behavior.Profile) { p.Cart.Add("shoe"); p.Purchased.Add("lace") },
			req:    Request{Page: PageCheckout},
			absent: []string{"lace", "shoe"},
		},
		{
			name:  "collection restricts results",
			setup: func(p *behavior.Profile) {},
			req:   Request{Page: PageCollection, CollectionID: "summer"},
			only:  []string{"hat", "sock"},
		},
		{
			name:   "unavailable never recommended",
			setup:  func(p *behavior.Profile) { p.Wishlist.Add("gone") },
			req:    Request{Page: PageHome, Limit: 50},
			absent: []string{"gone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, DefaultConfig())
			p := behavior.NewProfile("s1", epoch)
			tt.setup(p)
			f.profiles.set(p)

			req := tt.req
			req.SessionID = "s1"
			got := ids(f.engine.Recommend(context.Background(), req))
			for _, id := range tt.absent {
				if contains(got, id) {
					t.Errorf("Recommend() = %v, must not contain %s", got, id)
				}
			}
			for _, id := range tt.present {
				if !contains(got, id) {
					t.Errorf("Recommend() = %v, want %s", got, id)
				}
			}
			if tt.only != nil {
				for _, id := range got {
					if !contains(tt.only, id) {
						t.Errorf("Recommend() = %v, want only %v", got, tt.only)
					}
				}
			}
		})
	}
}

func TestEngine_BehaviorComponent(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	p := behavior.NewProfile("s1", epoch)
	p.Wishlist.Add("hat")
	p.Scores["hat"] = &behavior.BehaviorScore{ProductID: "hat", Score: 20, Wishlisted: true, PredictedAction: behavior.ActionWishlist, Confidence: 80, LastInteraction: epoch}
	f.profiles.set(p)

	resp := f.engine.Recommend(context.Background(), Request{SessionID: "s1", Page: PageHome})
	hat, ok := item(resp, "hat")
	if !ok {
		t.Fatalf("Recommend() = %v, want hat", ids(resp))
	}
	// 0.5 × (2/4 × 0.8) + wishlist bonus, plus half the relative score.
	if b := hat.Components[SourceBehavior]; b < 0.5 || b > 1 {
		t.Errorf("hat behavior = %v, want within [0.5, 1]", b)
	}
	if !contains(hat.Reasons, "On your wishlist") {
		t.Errorf("hat reasons = %v, want wishlist reason", hat.Reasons)
	}
	if !contains(hat.Boosts, BoostSale) {
		t.Errorf("hat boosts = %v, want %s", hat.Boosts, BoostSale)
	}
}

func TestEngine_ColdStart(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	resp := f.engine.Recommend(context.Background(), Request{SessionID: "new", Page: PageHome, Limit: 50})
	got := ids(resp)
	if !contains(got, "shoe") || !contains(got, "sock") {
		t.Errorf("cold start = %v, want best sellers", got)
	}
	if contains(got, "gone") {
		t.Error("cold start must skip unavailable best sellers")
	}
	shoe, _ := item(resp, "shoe")
	if !contains(shoe.Reasons, "Popular with other shoppers") {
		t.Errorf("shoe reasons = %v, want popularity reason", shoe.Reasons)
	}
}

func TestEngine_LimitAndCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	req := Request{SessionID: "s1", Page: PageProduct, ProductID: "shoe", Limit: 1}

	first := f.engine.Recommend(ctx, req)
	if len(first.Items) != 1 || first.TotalCandidates < 2 {
		t.Fatalf("items = %d, candidates = %d; want 1 of at least 2", len(first.Items), first.TotalCandidates)
	}
	if first.Metadata.CacheHit {
		t.Error("first call should compute")
	}

	if second := f.engine.Recommend(ctx, req); !second.Metadata.CacheHit {
		t.Error("identical request within ttl should hit cache")
	}
	if other := f.engine.Recommend(ctx, Request{SessionID: "s1", Page: PageProduct, ProductID: "shoe", Limit: 2}); other.Metadata.CacheHit {
		t.Error("different limit must not share a cache entry")
	}

	f.engine.Invalidate("s1")
	if again := f.engine.Recommend(ctx, req); again.Metadata.CacheHit {
		t.Error("Invalidate should drop the session's lists")
	}

	f.sched.Advance(31 * time.Second)
	if later := f.engine.Recommend(ctx, req); later.Metadata.CacheHit {
		t.Error("list older than ttl should be recomputed")
	}

	applied := 0
	for _, ev := range f.recorder.Events() {
		if ra, ok := ev.(events.RecommendationApplied); ok {
			applied++
			if ra.Page != string(PageProduct) || ra.Source != "recommend" {
				t.Errorf("event = %+v", ra)
			}
		}
	}
	if applied != 5 {
		t.Errorf("recommendation.applied events = %d, want 5", applied)
	}
}

func TestEngine_RebuildDropsCache(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	ctx := context.Background()
	req := Request{SessionID: "s1", Page: PageHome}

	f.engine.Recommend(ctx, req)
	if err := f.engine.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if resp := f.engine.Recommend(ctx, req); resp.Metadata.CacheHit {
		t.Error("Rebuild should drop cached lists")
	}

	st := f.engine.Status()
	if st.ModelVersion != 2 || st.IsTraining || st.LastError != "" {
		t.Errorf("status = %+v, want version 2 idle", st)
	}
	if st.Orders != 5 || st.SimilarPairs != 2 || st.Rules != 4 {
		t.Errorf("status = %+v, want 5 orders, 2 pairs, 4 rules", st)
	}
	if n := f.engine.Similar("shoe", 1); len(n) != 1 || n[0].ProductID != "sock" {
		t.Errorf("Similar(shoe, 1) = %+v, want sock", n)
	}
	if r := f.engine.BoughtWith("sock", 0); len(r) != 1 || r[0].Consequent != "shoe" {
		t.Errorf("BoughtWith(sock) = %+v, want sock→shoe", r)
	}
}

func TestEngine_Boost(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	p := behavior.NewProfile("s1", epoch)
	p.Cart.Add("shoe")
	v := &sessionView{snap: f.engine.catalog.Snapshot(), profile: p}

	items := []Recommendation{
		{ProductID: "boot", BaseScore: 1},
		{ProductID: "sock", BaseScore: 1},
		{ProductID: "hat", BaseScore: 1},
		{ProductID: "lace", BaseScore: 1},
	}
	f.engine.boost(v, items)

	want := map[string]float64{
		"boot": 1.15 * 1.05 * 1.05,
		"sock": 1.10,
		"hat":  1.10,
		"lace": 1,
	}
	for _, it := range items {
		if math.Abs(it.Score-want[it.ProductID]) > 1e-9 {
			t.Errorf("%s score = %v (boosts %v), want %v", it.ProductID, it.Score, it.Boosts, want[it.ProductID])
		}
	}
}

func TestEngine_PriceBand(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultConfig())
	tests := []struct {
		price float64
		want  int
	}{
		{0, 0},
		{24.99, 0},
		{25, 1},
		{80, 2},
		{150, 3},
		{1000, 4},
	}
	for _, tt := range tests {
		if got := f.engine.priceBand(tt.price); got != tt.want {
			t.Errorf("priceBand(%v) = %d, want %d", tt.price, got, tt.want)
		}
	}
}
