// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/cache"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/store"
)

// Catalog supplies the current product snapshot.
type Catalog interface {
	Snapshot() *catalog.Snapshot
}

// session is the in-memory state of one profile.
// A cleared session is never written again. saveMu serializes writes
// against Clear's deletes.
type session struct {
	mu       sync.Mutex
	saveMu   sync.Mutex
	profile  *Profile
	loaded   bool
	dirty    bool
	cleared  bool
	lastSeen time.Time
}

// Tracker records interaction events per session and owns the profiles.
type Tracker struct {
	cfg       Config
	kv        store.KV
	catalog   Catalog
	publisher events.Publisher
	sched     schedule.Scheduler
	logger    zerolog.Logger

	matcher  *keywordMatcher
	views    *cache.Throttle
	batcher  *cache.Batcher
	cancelFn schedule.Cancel

	mu       sync.Mutex
	sessions map[string]*session
	hovers   map[hoverKey]time.Time
	zero     map[string]*ZeroResult
	closed   bool
}

type hoverKey struct {
	session string
	product string
}

// NewTracker creates a tracker. Call Open to start periodic persistence.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTracker(cfg Config, kv store.KV, cat Catalog, publisher events.Publisher, sched schedule.Scheduler, logger zerolog.Logger) *Tracker {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if cfg.SearchHistoryLimit <= 0 {
		cfg.SearchHistoryLimit = DefaultConfig().SearchHistoryLimit
	}
	if cfg.ZeroResultLimit <= 0 {
		cfg.ZeroResultLimit = DefaultConfig().ZeroResultLimit
	}
	return &Tracker{
		cfg:       cfg,
		kv:        kv,
		catalog:   cat,
		publisher: publisher,
		sched:     sched,
		logger:    logger.With().Str("component", "behavior").Logger(),
		matcher:   newKeywordMatcher(cfg.Keywords, cfg.ComparativeMarkers, cfg.InstructionalMarkers),
		views:     cache.NewThrottle(cfg.ViewThrottle, sched),
		batcher:   cache.NewBatcher(sched),
		cancelFn:  schedule.Noop,
		sessions:  make(map[string]*session),
		hovers:    make(map[hoverKey]time.Time),
		zero:      make(map[string]*ZeroResult),
	}
}

// Open schedules the periodic flush and housekeeping.
func (t *Tracker) Open() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelFn()
	t.cancelFn = t.sched.Every(t.cfg.FlushInterval, func() {
		t.Flush(context.Background())
		t.housekeep()
	})
	t.logger.Debug().Dur("flush_interval", t.cfg.FlushInterval).Msg("behavior tracker opened")
}

// Close persists pending state and stops background work. Track calls after
// Close are ignored.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.cancelFn()
	t.cancelFn = schedule.Noop
	t.mu.Unlock()

	t.batcher.Flush()
	t.batcher.Close()
	return t.Flush(ctx)
}

// Track applies one interaction event and returns the product's updated
// score. ok is false when the event was ignored (invalid, throttled, or the
// tracker is closed); the returned score is then the current one.
func (t *Tracker) Track(ctx context.Context, ev Event) (BehaviorScore, bool) {
	if ev.SessionID == "" || !ev.Kind.Valid() || ev.Kind == KindSearch {
		metrics.RecordBehaviorDropped("invalid")
		return BehaviorScore{}, false
	}
	if ev.Duration < 0 {
		ev.Duration = 0
	}
	ev.Value = catalog.Number(ev.Value)
	if ev.At.IsZero() {
		ev.At = t.sched.Now()
	}

	if ev.Kind == KindEngagement {
		return BehaviorScore{}, t.trackEngagement(ctx, ev)
	}
	if ev.ProductID == "" {
		metrics.RecordBehaviorDropped("invalid")
		return BehaviorScore{}, false
	}

	if ev.Kind == KindView && !t.views.Allow(ev.SessionID+"\x00"+ev.ProductID) {
		metrics.RecordBehaviorDropped("throttled")
		s, _ := t.Score(ctx, ev.SessionID, ev.ProductID)
		return s, false
	}

	st := t.session(ctx, ev.SessionID)
	if st == nil {
		return BehaviorScore{}, false
	}
	product, known := t.catalog.Snapshot().Product(ev.ProductID)

	st.mu.Lock()
	p := st.profile
	if ev.UserID != "" {
		p.UserID = ev.UserID
	}
	score, added := t.applyLocked(p, ev.ProductID, ev.Kind, ev.Duration, ev.At)
	if added > 0 && known {
		t.learn(p, product, added)
	}
	p.UpdatedAt = ev.At
	st.dirty = true
	st.lastSeen = ev.At
	st.mu.Unlock()

	t.afterEvent(ctx, ev, score)
	return score, true
}

// applyLocked updates profile sets and the product score, returning the
// new score and the weight added. Caller holds the session lock.
func (t *Tracker) applyLocked(p *Profile, productID string, kind Kind, d time.Duration, at time.Time) (BehaviorScore, float64) {
	s, ok := p.Scores[productID]
	if !ok {
		s = &BehaviorScore{ProductID: productID}
		p.Scores[productID] = s
	}
	added := t.cfg.apply(s, kind, d, at)

	switch kind {
	case KindWishlistAdd:
		p.Wishlist.Add(productID)
	case KindWishlistRemove:
		p.Wishlist.Remove(productID)
	case KindCartAdd:
		p.Cart.Add(productID)
	case KindCartRemove:
		p.Cart.Remove(productID)
	case KindPurchase:
		p.Purchased.Add(productID)
		p.Cart.Remove(productID)
		s.InCart = false
	}
	return *s, added
}

// learn adds weight×PreferenceFactor to the product's category, brand, and
// feature preferences and widens the observed price range.
func (t *Tracker) learn(p *Profile, product catalog.Product, weight float64) {
	inc := weight * t.cfg.PreferenceFactor
	if product.ProductType != "" {
		p.CategoryPrefs[product.ProductType] += inc
	}
	if product.Vendor != "" {
		p.BrandPrefs[product.Vendor] += inc
	}
	for _, tag := range product.Tags {
		p.FeaturePrefs[tag] += inc
	}
	p.PriceRange.widen(product.Price)
}

func (t *Tracker) trackEngagement(ctx context.Context, ev Event) bool {
	st := t.session(ctx, ev.SessionID)
	if st == nil {
		return false
	}
	st.mu.Lock()
	st.profile.Engagement += ev.Duration
	st.profile.UpdatedAt = ev.At
	st.dirty = true
	st.lastSeen = ev.At
	st.mu.Unlock()

	t.afterEvent(ctx, ev, BehaviorScore{})
	return true
}

// afterEvent emits the notification and schedules persistence.
func (t *Tracker) afterEvent(ctx context.Context, ev Event, score BehaviorScore) {
	metrics.RecordBehaviorEvent(string(ev.Kind))

	high := ev.Kind.HighImpact()
	t.publisher.Publish(ctx, events.BehaviorTracked{
		SessionID:  ev.SessionID,
		ProductID:  ev.ProductID,
		Kind:       string(ev.Kind),
		Page:       ev.Page,
		Value:      ev.Value,
		Duration:   ev.Duration,
		Score:      score.Score,
		Predicted:  score.PredictedAction.String(),
		HighImpact: high,
		At:         ev.At,
	})

	if high {
		if err := t.persist(ctx, ev.SessionID); err != nil {
			t.logger.Warn().Err(err).Str("session_id", ev.SessionID).Msg("immediate persist failed, will retry on flush")
		}
		return
	}
	sessionID := ev.SessionID
	t.batcher.Batch(sessionID, func() {
		if err := t.persist(context.Background(), sessionID); err != nil {
			t.logger.Warn().Err(err).Str("session_id", sessionID).Msg("batched persist failed, will retry on flush")
		}
	}, t.cfg.PersistDelay)
}

// HoverStart marks the start of a hover over a product.
func (t *Tracker) HoverStart(sessionID, productID string, at time.Time) {
	if sessionID == "" || productID == "" {
		return
	}
	if at.IsZero() {
		at = t.sched.Now()
	}
	t.mu.Lock()
	t.hovers[hoverKey{sessionID, productID}] = at
	t.mu.Unlock()
}

// HoverEnd closes a hover started with HoverStart and tracks it with the
// elapsed duration. A HoverEnd without a matching start is ignored.
func (t *Tracker) HoverEnd(ctx context.Context, sessionID, productID string, at time.Time) (BehaviorScore, bool) {
	if at.IsZero() {
		at = t.sched.Now()
	}
	key := hoverKey{sessionID, productID}
	t.mu.Lock()
	start, ok := t.hovers[key]
	delete(t.hovers, key)
	t.mu.Unlock()
	if !ok {
		metrics.RecordBehaviorDropped("unpaired_hover")
		return BehaviorScore{}, false
	}
	return t.Track(ctx, Event{
		SessionID: sessionID,
		ProductID: productID,
		Kind:      KindHover,
		Duration:  at.Sub(start),
		At:        at,
	})
}

// TrackSearch records a search: history, intent, search appearances, and
// the zero-result log.
func (t *Tracker) TrackSearch(ctx context.Context, s Search) (Intent, bool) {
	query := normalizeQuery(s.Query)
	if s.SessionID == "" || query == "" {
		metrics.RecordBehaviorDropped("invalid")
		return Intent{}, false
	}
	if s.At.IsZero() {
		s.At = t.sched.Now()
	}
	intent := t.matcher.Extract(query)

	st := t.session(ctx, s.SessionID)
	if st == nil {
		return intent, false
	}

	st.mu.Lock()
	p := st.profile
	p.SearchHistory = pushHistory(p.SearchHistory, query, t.cfg.SearchHistoryLimit)
	for _, cat := range intent.Categories {
		p.CategoryPrefs[cat] += t.cfg.SearchIntentWeight
	}
	if intent.Comparative {
		p.ComparativeSearches++
	}
	if intent.Instructional {
		p.InstructionalSearches++
	}
	seen := make(map[string]bool, len(s.Results))
	for _, id := range s.Results {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		t.applyLocked(p, id, KindSearchAppearance, 0, s.At)
	}
	p.UpdatedAt = s.At
	st.dirty = true
	st.lastSeen = s.At
	st.mu.Unlock()

	if len(s.Results) == 0 {
		t.recordZeroResult(query, s.At)
	}

	t.afterEvent(ctx, Event{SessionID: s.SessionID, Kind: KindSearch, At: s.At}, BehaviorScore{})
	return intent, true
}

// pushHistory puts q first, removing any earlier copy, and bounds the list.
func pushHistory(history []string, q string, limit int) []string {
	out := make([]string, 0, len(history)+1)
	out = append(out, q)
	for _, h := range history {
		if h != q {
			out = append(out, h)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (t *Tracker) recordZeroResult(query string, at time.Time) {
	metrics.RecordZeroResultSearch()

	t.mu.Lock()
	defer t.mu.Unlock()
	if z, ok := t.zero[query]; ok {
		z.Count++
		z.LastSeen = at
		return
	}
	if len(t.zero) >= t.cfg.ZeroResultLimit {
		var oldest string
		for q, z := range t.zero {
			if oldest == "" || z.LastSeen.Before(t.zero[oldest].LastSeen) {
				oldest = q
			}
		}
		delete(t.zero, oldest)
	}
	t.zero[query] = &ZeroResult{Query: query, Count: 1, LastSeen: at}
}

// ZeroResultSearches returns the gap log ordered by count, then recency.
// limit <= 0 returns everything.
func (t *Tracker) ZeroResultSearches(limit int) []ZeroResult {
	t.mu.Lock()
	out := make([]ZeroResult, 0, len(t.zero))
	for _, z := range t.zero {
		out = append(out, *z)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Query < out[j].Query
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Profile returns a copy of the session's profile with confidences
// evaluated at the current time. Unknown sessions yield an empty profile.
func (t *Tracker) Profile(ctx context.Context, sessionID string) *Profile {
	now := t.sched.Now()
	st := t.session(ctx, sessionID)
	if st == nil {
		return NewProfile(sessionID, now)
	}
	st.mu.Lock()
	p := st.profile.Clone()
	st.mu.Unlock()

	for id, s := range p.Scores {
		d := t.cfg.decayed(*s, now)
		p.Scores[id] = &d
	}
	return p
}

// Score returns one product's score with confidence evaluated now.
func (t *Tracker) Score(ctx context.Context, sessionID, productID string) (BehaviorScore, bool) {
	st := t.session(ctx, sessionID)
	if st == nil {
		return BehaviorScore{}, false
	}
	st.mu.Lock()
	s, ok := st.profile.Scores[productID]
	var out BehaviorScore
	if ok {
		out = *s
	}
	st.mu.Unlock()
	if !ok {
		return BehaviorScore{ProductID: productID}, false
	}
	return t.cfg.decayed(out, t.sched.Now()), true
}

// Predicted returns the session's products with a predicted action of at
// least view, strongest first.
func (t *Tracker) Predicted(ctx context.Context, sessionID string) []BehaviorScore {
	return t.Profile(ctx, sessionID).Predictions(ActionView)
}

// Thresholds exposes the configured action thresholds.
func (t *Tracker) Thresholds() Thresholds { return t.cfg.Thresholds }

// Sessions returns the number of profiles held in memory.
func (t *Tracker) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Clear forgets a session in memory and in the store.
func (t *Tracker) Clear(ctx context.Context, sessionID string) error {
	t.mu.Lock()
	st := t.sessions[sessionID]
	delete(t.sessions, sessionID)
	for k := range t.hovers {
		if k.session == sessionID {
			delete(t.hovers, k)
		}
	}
	t.mu.Unlock()

	if st != nil {
		st.mu.Lock()
		st.cleared = true
		st.dirty = false
		st.mu.Unlock()
		// Wait out a write that copied the profile before it was cleared.
		st.saveMu.Lock()
		defer st.saveMu.Unlock()
	}

	var errs []error
	for _, key := range []string{store.ProfileKey(sessionID), store.SearchHistoryKey(sessionID)} {
		if err := t.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	t.logger.Info().Str("session_id", sessionID).Msg("session behavior cleared")
	return errors.Join(errs...)
}
