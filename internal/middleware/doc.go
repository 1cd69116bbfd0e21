// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package middleware provides chi-compatible HTTP middleware for the Shopsense API.

  - RequestID: reuses or generates X-Request-ID and X-Correlation-ID and
    stores both in the request context for logging.Ctx
  - PrometheusMetrics: request count, latency, and in-flight gauge labeled
    by chi route pattern
  - AccessLog: one structured line per request, promoted to warn when slow
    or failing
  - Compression: gzip for clients that accept it

# Stack

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog(500 * time.Millisecond))
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)

RequestID must run first so later middleware log with the request IDs.
*/
package middleware
