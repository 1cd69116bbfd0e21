// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/tomtom215/shopsense/internal/logging"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ErrorResponder writes an error response in the caller's format.
type ErrorResponder func(w http.ResponseWriter, r *http.Request, status int, code, message string)

// Middleware guards operator routes.
type Middleware struct {
	manager *JWTManager
	mode    string
	respond ErrorResponder
}

// NewMiddleware creates the guard. manager may be nil in ModeNone.
func NewMiddleware(mode string, manager *JWTManager, respond ErrorResponder) *Middleware {
	if respond == nil {
		respond = func(w http.ResponseWriter, _ *http.Request, status int, _, message string) {
			http.Error(w, message, status)
		}
	}
	return &Middleware{manager: manager, mode: mode, respond: respond}
}

// RequireRole admits requests carrying a valid bearer token whose role is
// role. In ModeNone every request passes.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.mode != ModeJWT {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="shopsense"`)
				m.respond(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
				return
			}
			claims, err := m.manager.ValidateToken(token)
			if err != nil {
				logging.Ctx(r.Context()).Warn().Err(err).Msg("operator token rejected")
				w.Header().Set("WWW-Authenticate", `Bearer realm="shopsense", error="invalid_token"`)
				m.respond(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
				return
			}
			if claims.Role != role {
				m.respond(w, r, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// ClaimsFromContext returns the claims of an authenticated request, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey).(*Claims)
	return claims
}
