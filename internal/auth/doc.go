// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package auth protects the operator endpoints with HS256 JWT bearer tokens.

Storefront routes (events, sessions, recommendations, streams) are always
open; they are keyed by an opaque session ID. Operator routes expose
experiment results, search insights, model rebuilds, and the audit trail,
and require a token whose role claim is "operator" when AUTH_MODE=jwt.

With AUTH_MODE=none (the default) every request passes and the server
logs a warning at startup.

# Tokens

Tokens are issued offline with the server binary:

	shopsense issue-token -subject ops@example.com

and presented as:

	Authorization: Bearer <token>

# Usage

	manager, err := auth.NewJWTManager(cfg.Auth)
	guard := auth.NewMiddleware(cfg.Auth.Mode, manager, api.WriteError)
	mwCfg.Operator = guard.RequireRole(auth.RoleOperator)
*/
package auth
