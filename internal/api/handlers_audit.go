// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/shopsense/internal/audit"
)

var auditTypes = map[string]audit.EventType{
	string(audit.TypeSessionCleared):        audit.TypeSessionCleared,
	string(audit.TypeModelRebuildRequested): audit.TypeModelRebuildRequested,
	string(audit.TypeExperimentCompleted):   audit.TypeExperimentCompleted,
}

// AuditEvents handles GET /api/v1/audit?type=&target=&since=&limit=.
// type is a comma-separated list; since is RFC 3339.
func (h *Handler) AuditEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.audit == nil {
		respondError(w, r, http.StatusNotImplemented, "AUDIT_NOT_CONFIGURED", "Audit trail is disabled", nil)
		return
	}

	q := r.URL.Query()
	filter := audit.QueryFilter{
		TargetID: q.Get("target"),
		Limit:    getIntParam(r, "limit", 100, 1, 1000),
	}
	if raw := q.Get("type"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			t, ok := auditTypes[strings.TrimSpace(name)]
			if !ok {
				respondError(w, r, http.StatusBadRequest, "INVALID_AUDIT_TYPE", "Unknown audit event type: "+sanitizeLogValue(name), nil)
				return
			}
			filter.Types = append(filter.Types, t)
		}
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "INVALID_SINCE", "since must be an RFC 3339 timestamp", nil)
			return
		}
		filter.Since = since
	}

	evs, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "AUDIT_UNAVAILABLE", "Audit trail unavailable", err)
		return
	}
	respondData(w, r, http.StatusOK, evs, start)
}
