// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package middleware

import (
	"net/http"
	"time"

	"github.com/tomtom215/shopsense/internal/logging"
)

// AccessLog logs every request at debug level with its request context
// fields. Requests slower than slow, and server errors, log at warn.
func AccessLog(slow time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			elapsed := time.Since(start)

			logger := logging.Ctx(r.Context())
			event := logger.Debug()
			if rec.status >= http.StatusInternalServerError || (slow > 0 && elapsed > slow) {
				event = logger.Warn()
			}
			event.
				Str("method", r.Method).
				Str("route", routePattern(r)).
				Int("status", rec.status).
				Int("bytes", rec.bytes).
				Dur("duration", elapsed).
				Msg("http request")
		})
	}
}
