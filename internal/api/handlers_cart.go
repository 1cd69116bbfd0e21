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

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shopsense/internal/behavior"
	"github.com/tomtom215/shopsense/internal/catalog"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/recommend"
)

// Cart handles GET /api/v1/sessions/{sessionID}/cart.
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	ctx := logging.ContextWithSessionID(r.Context(), sid)
	respondData(w, r, http.StatusOK, h.catalog.Cart(ctx, sid), start)
}

// CartItemRequest is the body of POST /api/v1/sessions/{sessionID}/cart/items.
type CartItemRequest struct {
	ProductID string `json:"product_id" validate:"required,max=128"`
	Quantity  int    `json:"quantity,omitempty" validate:"gte=0,lte=99"`
}

// AddCartItem handles POST /api/v1/sessions/{sessionID}/cart/items. A
// successful add is tracked as a cart_add event.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	var req CartItemRequest
	if err := decodeJSON(w, r, h.maxBodyBytes, &req); err != nil {
		respondDecodeError(w, r, err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, r, apiErr)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	if _, found := h.catalog.Snapshot().Product(req.ProductID); !found {
		respondError(w, r, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), sid)
	cart, err := h.catalog.AddToCart(ctx, sid, req.ProductID, req.Quantity)
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	h.trackCart(ctx, sid, req.ProductID, behavior.KindCartAdd)
	respondData(w, r, http.StatusOK, cart, start)
}

// RemoveCartItem handles
// DELETE /api/v1/sessions/{sessionID}/cart/items/{productID}. A successful
// removal is tracked as a cart_remove event.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")
	if productID == "" || len(productID) > 128 {
		respondError(w, r, http.StatusBadRequest, "INVALID_PRODUCT_ID", "Invalid product ID", nil)
		return
	}

	ctx := logging.ContextWithSessionID(r.Context(), sid)
	cart, err := h.catalog.RemoveFromCart(ctx, sid, productID)
	if err != nil {
		respondCartError(w, r, err)
		return
	}
	h.trackCart(ctx, sid, productID, behavior.KindCartRemove)
	respondData(w, r, http.StatusOK, cart, start)
}

func (h *Handler) trackCart(ctx context.Context, sid, productID string, kind behavior.Kind) {
	h.tracker.Track(ctx, behavior.Event{
		SessionID: sid,
		ProductID: productID,
		Kind:      kind,
		Page:      string(recommend.PageCart),
		At:        h.now(),
	})
}

func respondCartError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNoCart) {
		respondError(w, r, http.StatusNotImplemented, "CART_NOT_CONFIGURED", "No cart collaborator is configured", nil)
		return
	}
	if errors.Is(err, catalog.ErrCartUnavailable) {
		respondError(w, r, http.StatusServiceUnavailable, "CART_UNAVAILABLE", "Cart service unavailable", err)
		return
	}
	respondError(w, r, http.StatusInternalServerError, "CART_ERROR", "Cart update failed", err)
}
