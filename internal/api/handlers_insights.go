// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/shopsense/internal/audit"
	"github.com/tomtom215/shopsense/internal/experiment"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/recommend"
)

// Experiments handles GET /api/v1/experiments.
func (h *Handler) Experiments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, r, http.StatusOK, h.experiments.Snapshot(), start)
}

// Experiment handles GET /api/v1/experiments/{experimentID}.
func (h *Handler) Experiment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap, err := h.experiments.Experiment(chi.URLParam(r, "experimentID"))
	if errors.Is(err, experiment.ErrUnknownExperiment) {
		respondError(w, r, http.StatusNotFound, "EXPERIMENT_NOT_FOUND", "Experiment not found", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "EXPERIMENT_ERROR", "Failed to load experiment", err)
		return
	}
	respondData(w, r, http.StatusOK, snap, start)
}

// productID reads the {productID} URL parameter and checks it against the
// catalog snapshot.
func (h *Handler) productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "productID")
	if _, found := h.catalog.Snapshot().Product(id); !found {
		respondError(w, r, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
		return "", false
	}
	return id, true
}

// Similar handles GET /api/v1/products/{productID}/similar?k=.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	k := getIntParam(r, "k", 10, 1, 50)
	respondData(w, r, http.StatusOK, h.recommender.Similar(id, k), start)
}

// BoughtWith handles GET /api/v1/products/{productID}/bought-with?k=.
func (h *Handler) BoughtWith(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.productID(w, r)
	if !ok {
		return
	}
	k := getIntParam(r, "k", 10, 1, 50)
	respondData(w, r, http.StatusOK, h.recommender.BoughtWith(id, k), start)
}

// ModelStatus handles GET /api/v1/models/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondData(w, r, http.StatusOK, h.recommender.Status(), start)
}

// RebuildModels handles POST /api/v1/models/rebuild. The rebuild runs in
// the background; a rebuild already in progress yields 409.
func (h *Handler) RebuildModels(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.recommender.Status().IsTraining {
		respondError(w, r, http.StatusConflict, "TRAINING_IN_PROGRESS", "Model rebuild already in progress", nil)
		return
	}

	if h.audit != nil {
		h.audit.RebuildRequested(r.Context(), audit.SourceFromRequest(r))
	}

	logger := logging.Ctx(r.Context()).With().Str("component", "api").Logger()
	go func() {
		err := h.recommender.Rebuild(h.rebuild)
		switch {
		case errors.Is(err, recommend.ErrTrainingInProgress):
			logger.Info().Msg("model rebuild skipped, another rebuild is running")
		case err != nil:
			logger.Error().Err(err).Msg("model rebuild failed")
		default:
			logger.Info().Msg("model rebuild completed")
		}
	}()

	respondData(w, r, http.StatusAccepted, map[string]string{"message": "Model rebuild started"}, start)
}
