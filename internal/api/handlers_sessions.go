// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/recommend/reranking"
)

const maxSessionIDLength = 128

// sessionID reads and checks the {sessionID} URL parameter. It writes the
// error response and returns false when the id is unusable.
func sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "sessionID")
	if id == "" || len(id) > maxSessionIDLength {
		respondError(w, r, http.StatusBadRequest, "INVALID_SESSION_ID", "Invalid session ID", nil)
		return "", false
	}
	return id, true
}

// PriceRangeView is the observed price band of a profile.
type PriceRangeView struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProfileView is the body of GET /api/v1/sessions/{sessionID}/profile.
type ProfileView struct {
	SessionID             string                   `json:"session_id"`
	UserID                string                   `json:"user_id,omitempty"`
	Segment               reranking.Segment        `json:"segment"`
	SearchHistory         []string                 `json:"search_history"`
	CategoryPrefs         []behavior.WeightedKey   `json:"category_preferences"`
	BrandPrefs            []behavior.WeightedKey   `json:"brand_preferences"`
	FeaturePrefs          []behavior.WeightedKey   `json:"feature_preferences"`
	PriceRange            *PriceRangeView          `json:"price_range,omitempty"`
	Wishlist              []string                 `json:"wishlist"`
	Cart                  []string                 `json:"cart"`
	Purchased             []string                 `json:"purchased"`
	RecentlyViewed        []string                 `json:"recently_viewed"`
	Predictions           []behavior.BehaviorScore `json:"predictions"`
	ComparativeSearches   int                      `json:"comparative_searches"`
	InstructionalSearches int                      `json:"instructional_searches"`
	EngagementMS          int64                    `json:"engagement_ms"`
	Experiments           map[string]string        `json:"experiments"`
	CreatedAt             time.Time                `json:"created_at"`
	UpdatedAt             time.Time                `json:"updated_at"`
}

func sortedSet(s mapset.Set[string]) []string {
	if s == nil {
		return []string{}
	}
	out := s.ToSlice()
	sort.Strings(out)
	return out
}

func newProfileView(p *behavior.Profile) ProfileView {
	v := ProfileView{
		SessionID:             p.SessionID,
		UserID:                p.UserID,
		SearchHistory:         p.SearchHistory,
		CategoryPrefs:         behavior.SortedWeights(p.CategoryPrefs),
		BrandPrefs:            behavior.SortedWeights(p.BrandPrefs),
		FeaturePrefs:          behavior.SortedWeights(p.FeaturePrefs),
		Wishlist:              sortedSet(p.Wishlist),
		Cart:                  sortedSet(p.Cart),
		Purchased:             sortedSet(p.Purchased),
		RecentlyViewed:        p.RecentlyViewed(10),
		Predictions:           p.Predictions(behavior.ActionView),
		ComparativeSearches:   p.ComparativeSearches,
		InstructionalSearches: p.InstructionalSearches,
		EngagementMS:          p.Engagement.Milliseconds(),
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
	if v.SearchHistory == nil {
		v.SearchHistory = []string{}
	}
	if p.PriceRange.Set {
		v.PriceRange = &PriceRangeView{Min: p.PriceRange.Min, Max: p.PriceRange.Max}
	}
	return v
}

// Profile handles GET /api/v1/sessions/{sessionID}/profile. Unknown
// sessions return an empty profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithSessionID(r.Context(), sid)

	view := newProfileView(h.tracker.Profile(ctx, sid))
	view.Segment = h.reorderer.Segment(ctx, sid)
	view.Experiments = h.experiments.Assignments(ctx, sid)
	if view.Experiments == nil {
		view.Experiments = map[string]string{}
	}
	respondData(w, r, http.StatusOK, view, start)
}

// ClearSession handles DELETE /api/v1/sessions/{sessionID}. It removes the
// stored profile and experiment assignments and drops every cached result
// derived from them.
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithSessionID(r.Context(), sid)

	err := errors.Join(
		h.tracker.Clear(ctx, sid),
		h.experiments.Clear(ctx, sid),
	)
	h.scorer.Invalidate(sid)
	h.recommender.Invalidate(sid)
	if h.audit != nil {
		h.audit.SessionCleared(ctx, sid, audit.SourceFromRequest(r), err)
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "CLEAR_FAILED", "Failed to clear session data", err)
		return
	}

	logging.Ctx(ctx).Info().Msg("session data cleared")
	respondData(w, r, http.StatusOK, map[string]any{"session_id": sid, "cleared": true}, start)
}

// Scores handles GET /api/v1/sessions/{sessionID}/scores?limit=.
func (h *Handler) Scores(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithSessionID(r.Context(), sid)

	scores := h.scorer.Scores(ctx, sid)
	if limit := getIntParam(r, "limit", 0, 0, 1000); limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	respondData(w, r, http.StatusOK, scores, start)
}

// Recommendations handles
// GET /api/v1/sessions/{sessionID}/recommendations?page=&product=&collection=&limit=.
// The page defaults to home.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	req := recommend.Request{
		SessionID:    sid,
		Page:         recommend.Page(q.Get("page")),
		ProductID:    q.Get("product"),
		CollectionID: q.Get("collection"),
		Limit:        getIntParam(r, "limit", 0, 0, 100),
	}
	if req.Page == "" {
		req.Page = recommend.PageHome
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), sid)
	resp := h.recommender.Recommend(ctx, req)
	respondJSON(w, http.StatusOK, &APIResponse{
		Status:   statusSuccess,
		Data:     resp,
		Metadata: withCached(metadata(r, start), resp.Metadata.CacheHit),
	})
}

func withCached(md Metadata, cached bool) Metadata {
	md.Cached = cached
	return md
}

// ReorderRequest is the body of POST /api/v1/sessions/{sessionID}/reorder.
type ReorderRequest struct {
	Page       recommend.Page `json:"page,omitempty"`
	ProductIDs []string       `json:"product_ids"`
}

// Reorder handles POST /api/v1/sessions/{sessionID}/reorder.
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var body ReorderRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &body); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	req := reranking.Request{SessionID: sid, Page: body.Page, ProductIDs: body.ProductIDs}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), sid)
	respondData(w, r, http.StatusOK, h.reorderer.Reorder(ctx, req), start)
}
