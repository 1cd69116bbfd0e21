// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/shopsense/internal/middleware"
)

// NewRouter builds the chi router serving h.
func NewRouter(h *Handler, cfg MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware, outermost first. RequestID precedes everything
	// that logs.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog(cfg.SlowRequest))
	r.Use(chimiddleware.Recoverer)
	r.Use(cfg.cors())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(cfg.rateLimit())
			r.Use(middleware.Compression)
			if cfg.RequestTimeout > 0 {
				r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
			}

			r.Post("/events", h.TrackEvent)
			r.Post("/events/hover/{action}", h.Hover)
			r.Post("/search", h.TrackSearch)

			r.Route("/sessions/{sessionID}", func(r chi.Router) {
				r.Delete("/", h.ClearSession)
				r.Get("/profile", h.Profile)
				r.Get("/scores", h.Scores)
				r.Get("/recommendations", h.Recommendations)
				r.Post("/reorder", h.Reorder)
				r.Get("/cart", h.Cart)
				r.Post("/cart/items", h.AddCartItem)
				r.Delete("/cart/items/{productID}", h.RemoveCartItem)
				r.Get("/stream", h.Stream)
			})

			r.Get("/products/{productID}/similar", h.Similar)
			r.Get("/products/{productID}/bought-with", h.BoughtWith)

			r.Group(func(r chi.Router) {
				r.Use(cfg.operator())

				r.Get("/experiments", h.Experiments)
				r.Get("/experiments/{experimentID}", h.Experiment)

				r.Get("/insights/zero-results", h.ZeroResults)

				r.Get("/models/status", h.ModelStatus)
				r.Post("/models/rebuild", h.RebuildModels)

				r.Get("/audit", h.AuditEvents)
			})
		})
	})

	return r
}
