// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package events is the in-process notification bus.

Each topic has exactly one payload type implementing Payload. Publishers hand
the bus a typed payload; subscribers register a typed handler with
Subscribe and never see raw bytes:

	events.Subscribe(bus, "scoring-invalidate", func(ctx context.Context, e events.BehaviorTracked) error {
	    if e.HighImpact {
	        engine.Invalidate(e.SessionID)
	    }
	    return nil
	})

	bus.Publish(ctx, events.BehaviorTracked{SessionID: "s1", Kind: "cart_add"})

The bus is a Watermill GoChannel pub/sub. Delivery is fire-and-forget: a
message published while a topic has no subscribers is dropped, a handler
error is logged and the message acknowledged, and there is no ordering
guarantee across topics.
*/
package events
