// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status          string    `json:"status"`
	Uptime          string    `json:"uptime"`
	Products        int       `json:"products"`
	CatalogLoadedAt time.Time `json:"catalog_loaded_at"`
	ActiveSessions  int       `json:"active_sessions"`
	ModelVersion    int       `json:"model_version"`
	Training        bool      `json:"training"`
	Experiments     int       `json:"experiments"`
}

// Health handles GET /api/v1/health. The service reports "degraded" until
// the first catalog snapshot has products.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := h.catalog.Snapshot()
	status := h.recommender.Status()

	health := HealthStatus{
		Status:          "healthy",
		Uptime:          time.Since(h.startedAt).Round(time.Second).String(),
		Products:        snap.Len(),
		CatalogLoadedAt: snap.FetchedAt(),
		ActiveSessions:  h.tracker.Sessions(),
		ModelVersion:    status.ModelVersion,
		Training:        status.IsTraining,
		Experiments:     len(h.experiments.Snapshot()),
	}
	if health.Products == 0 {
		health.Status = "degraded"
	}
	respondData(w, r, http.StatusOK, health, start)
}
