// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package logging provides the zerolog-based structured logger shared by every
// Shopsense component.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Str("session_id", sid).Msg("profile loaded")
//	logging.Ctx(ctx).Warn().Err(err).Msg("enrichment unavailable")
//
// Components take a child logger at construction time instead of reaching for
// the global one on every call:
//
//	logger := logging.WithComponent("behavior")
//
// # Adapters
//
// Several libraries bring their own logging interface. They are bridged into
// zerolog so all output shares one format:
//
//   - NewSlogLogger / NewSlogHandler for suture's sutureslog event hook
//   - NewWatermillAdapter for the in-process event bus
//
// # Context Fields
//
// Request, correlation, and session identifiers travel on context.Context and
// are attached automatically by Ctx:
//
//	ctx = logging.ContextWithSessionID(ctx, sid)
//	logging.Ctx(ctx).Info().Msg("tracked")
//	// {"level":"info","session_id":"...","message":"tracked"}
package logging
