// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/shopsense/internal/middleware"
)

// MiddlewareConfig configures the router's middleware stack.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// RequestTimeout cancels a request's context after this long. Zero
	// disables it.
	RequestTimeout time.Duration

	// SlowRequest promotes access log lines to warn.
	SlowRequest time.Duration

	// Operator guards the operator routes (experiments, insights, models,
	// audit). Nil leaves them open.
	Operator func(http.Handler) http.Handler
}

// DefaultMiddlewareConfig returns the defaults used when a field is unset.
func DefaultMiddlewareConfig() MiddlewareConfig {
	return MiddlewareConfig{
		CORSAllowedOrigins: []string{},
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		CORSAllowedHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader, middleware.CorrelationIDHeader},
		CORSMaxAge:         86400,
		RateLimitRequests:  300,
		RateLimitWindow:    time.Minute,
		RequestTimeout:     10 * time.Second,
		SlowRequest:        500 * time.Millisecond,
	}
}

// cors returns the go-chi/cors handler for c.
func (c MiddlewareConfig) cors() func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: c.CORSAllowedOrigins,
		AllowedMethods: c.CORSAllowedMethods,
		AllowedHeaders: c.CORSAllowedHeaders,
		ExposedHeaders: []string{middleware.RequestIDHeader, middleware.CorrelationIDHeader},
		MaxAge:         c.CORSMaxAge,
	})
}

// rateLimit returns an IP-keyed httprate limiter, or a no-op when
// disabled. Limited requests get the standard error envelope.
func (c MiddlewareConfig) rateLimit() func(http.Handler) http.Handler {
	if c.RateLimitDisabled || c.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		c.RateLimitRequests,
		c.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests", nil)
		}),
	)
}

// operator returns the configured operator guard or a passthrough.
func (c MiddlewareConfig) operator() func(http.Handler) http.Handler {
	if c.Operator == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return c.Operator
}
