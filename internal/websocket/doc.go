// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package websocket pushes live personalization updates to storefront pages.

A page opens GET /api/v1/sessions/{sessionID}/stream and receives JSON
frames of the form {"type": ..., "data": ...}:

  - scores_updated: the session's product scores were recomputed
  - variant_assigned: the session entered an experiment variant
  - catalog_refreshed: a new catalog snapshot is live (broadcast)
  - experiment_completed: an experiment declared a winner (broadcast)
  - pong: reply to a client {"type": "ping"}

The Hub runs as a suture service in the API layer. Messages are queued
without blocking publishers and delivered by the hub loop in client order.
A client that cannot keep up is disconnected instead of stalling the
others; the page is expected to reconnect and re-fetch. Connections per
session are capped, and upgrades are only accepted from the configured
CORS origins.

# Usage

	hub := websocket.NewHub(cfg.Stream, cfg.Server.CORSOrigins, logger)
	tree.AddAPIService(hub)

	events.Subscribe(bus, "stream-scores", func(_ context.Context, ev events.ScoresUpdated) error {
	    hub.Send(ev.SessionID, websocket.MessageTypeScoresUpdated, ev)
	    return nil
	})
*/
package websocket
