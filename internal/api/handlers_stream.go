// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/websocket"
)

// Stream handles GET /api/v1/sessions/{sessionID}/stream by upgrading to a
// websocket carrying the session's live updates.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		respondError(w, r, http.StatusNotImplemented, "STREAM_NOT_CONFIGURED", "Live updates are disabled", nil)
		return
	}
	sid, ok := sessionID(w, r)
	if !ok {
		return
	}

	err := h.stream.ServeSession(w, r, sid)
	switch {
	case err == nil:
	case errors.Is(err, websocket.ErrTooManyClients):
		respondError(w, r, http.StatusTooManyRequests, "TOO_MANY_STREAMS", "Too many live connections for this session", nil)
	default:
		// The upgrader has already answered.
		logging.Ctx(r.Context()).Debug().Err(err).Str("session_id", sid).Msg("stream upgrade failed")
	}
}
