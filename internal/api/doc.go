// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package api serves the Shopsense HTTP API on a chi router.

Every response uses one envelope:

	{
	  "status": "success" | "error",
	  "data": ...,
	  "metadata": {"timestamp": "...", "request_id": "...", "query_time_ms": 3},
	  "error": {"code": "VALIDATION_ERROR", "message": "...", "details": {...}}
	}

# Routes

	GET    /api/v1/health
	POST   /api/v1/events
	POST   /api/v1/events/hover/{start|end}
	POST   /api/v1/search
	GET    /api/v1/sessions/{sessionID}/profile
	DELETE /api/v1/sessions/{sessionID}
	GET    /api/v1/sessions/{sessionID}/scores
	GET    /api/v1/sessions/{sessionID}/recommendations?page=&product=&collection=&limit=
	POST   /api/v1/sessions/{sessionID}/reorder
	GET    /api/v1/sessions/{sessionID}/cart
	POST   /api/v1/sessions/{sessionID}/cart/items
	DELETE /api/v1/sessions/{sessionID}/cart/items/{productID}
	GET    /api/v1/sessions/{sessionID}/stream (websocket)
	GET    /api/v1/experiments
	GET    /api/v1/experiments/{experimentID}
	GET    /api/v1/products/{productID}/similar?k=
	GET    /api/v1/products/{productID}/bought-with?k=
	GET    /api/v1/insights/zero-results?limit=
	GET    /api/v1/models/status
	POST   /api/v1/models/rebuild
	GET    /api/v1/audit?type=&target=&since=&limit=
	GET    /metrics

Experiments, insights, models, and audit are operator routes; they run
behind MiddlewareConfig.Operator, a JWT guard when authentication is on.
Health and /metrics sit outside the httprate limiter. Request bodies are
capped, unknown JSON fields are rejected, and request structs are checked
with the shared validator before reaching an engine.

Handlers depend on small interfaces (Tracker, Scorer, Recommender,
Reorderer, Experiments, Catalog) so tests can substitute fakes.
*/
package api
