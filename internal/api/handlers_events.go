// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/logging"
)

// EventRequest is the body of POST /api/v1/events.
type EventRequest struct {
	SessionID  string  `json:"session_id" validate:"required,max=128"`
	UserID     string  `json:"user_id,omitempty" validate:"max=128"`
	ProductID  string  `json:"product_id,omitempty" validate:"max=128"`
	Kind       string  `json:"kind" validate:"required,event_kind"`
	Page       string  `json:"page,omitempty" validate:"max=64"`
	DurationMS int64   `json:"duration_ms,omitempty" validate:"gte=0,lte=86400000"`
	Value      float64 `json:"value,omitempty" validate:"gte=0"`
}

// TrackResult is the body of a tracked event response.
type TrackResult struct {
	Tracked bool                    `json:"tracked"`
	Score   *behavior.BehaviorScore `json:"score,omitempty"`
}

// TrackEvent handles POST /api/v1/events. Events the tracker drops, such as
// throttled views, are still accepted with tracked=false.
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req EventRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), req.SessionID)
	score, ok := h.tracker.Track(ctx, behavior.Event{
		SessionID: req.SessionID,
		UserID:    req.UserID,
		ProductID: req.ProductID,
		Kind:      behavior.Kind(req.Kind),
		Page:      req.Page,
		Duration:  time.Duration(req.DurationMS) * time.Millisecond,
		Value:     req.Value,
		At:        h.now(),
	})
	respondData(w, r, http.StatusAccepted, trackResult(score, ok), start)
}

func trackResult(score behavior.BehaviorScore, ok bool) TrackResult {
	if !ok {
		return TrackResult{}
	}
	return TrackResult{Tracked: true, Score: &score}
}

// HoverRequest is the body of POST /api/v1/events/hover/{action}.
type HoverRequest struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	ProductID string `json:"product_id" validate:"required,max=128"`
}

// Hover handles POST /api/v1/events/hover/{action}. "start" opens a hover
// and "end" closes it, tracking the elapsed duration.
func (h *Handler) Hover(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	action := chi.URLParam(r, "action")
	if action != "start" && action != "end" {
		respondError(w, r, http.StatusBadRequest, "INVALID_HOVER_ACTION", "Hover action must be start or end", nil)
		return
	}

	var req HoverRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	if action == "start" {
		h.tracker.HoverStart(req.SessionID, req.ProductID, h.now())
		respondData(w, r, http.StatusAccepted, TrackResult{}, start)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), req.SessionID)
	score, ok := h.tracker.HoverEnd(ctx, req.SessionID, req.ProductID, h.now())
	respondData(w, r, http.StatusAccepted, trackResult(score, ok), start)
}

// SearchRequest is the body of POST /api/v1/search.
type SearchRequest struct {
	SessionID string   `json:"session_id" validate:"required,max=128"`
	Query     string   `json:"query" validate:"required,max=256"`
	Results   []string `json:"results" validate:"max=500,dive,required,max=128"`
}

// SearchResult is the body of a tracked search response.
type SearchResult struct {
	Tracked bool            `json:"tracked"`
	Intent  behavior.Intent `json:"intent"`
}

// TrackSearch handles POST /api/v1/search.
func (h *Handler) TrackSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req SearchRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), req.SessionID)
	intent, ok := h.tracker.TrackSearch(ctx, behavior.Search{
		SessionID: req.SessionID,
		Query:     req.Query,
		Results:   req.Results,
		At:        h.now(),
	})
	respondData(w, r, http.StatusAccepted, SearchResult{Tracked: ok, Intent: intent}, start)
}

// ZeroResults handles GET /api/v1/insights/zero-results?limit=.
func (h *Handler) ZeroResults(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit := getIntParam(r, "limit", 20, 1, 100)
	respondData(w, r, http.StatusOK, h.tracker.ZeroResultSearches(limit), start)
}
