// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package recommend assembles ranked, explainable recommendation lists for
// storefront pages.
//
// # Sources
//
// Each candidate product carries three normalized [0,1] components:
//
//   - collaborative: the best item-item similarity to any seed product
//   - basket: the best association-rule lift from any seed, relative to
//     the largest lift mined
//   - behavior: predicted-action strength and the session's product score,
//     with bonuses for wishlist and cart residents
//
// Seeds are the current product (product pages), cart items, and recently
// viewed products. Candidates are the seeds' neighbors and rule
// consequents, predicted-action products, wishlist and cart residents, and
// the session's top-scored products. Sessions with no behavior also get the
// best sellers.
//
// The combined score is the weighted component sum (0.4 / 0.3 / 0.3 by
// default). A contextual pass then multiplies scores for low stock, sales,
// and products sharing category, tag, or price band with the cart.
//
// # Exclusions
//
// The current product, purchased products, products that cannot be bought,
// cart items on cart and checkout pages, and products outside the
// requested collection are never recommended.
//
// # Usage
//
//	engine, err := recommend.NewEngine(cfg, recommend.Models{
//	    Collaborative: algorithms.NewCollaborative(collabCfg, sched),
//	    Basket:        algorithms.NewBasket(basketCfg, sched),
//	}, tracker, scorer, cat, bus, sched, logger)
//
//	resp := engine.Recommend(ctx, recommend.Request{
//	    SessionID: sessionID,
//	    Page:      recommend.PageProduct,
//	    ProductID: productID,
//	    Limit:     8,
//	})
//
// # Consistency
//
// The collaborative and basket models are rebuilt by Rebuild, usually after
// a catalog refresh. Between rebuilds, lists combine live behavior with
// co-purchase data from the last rebuild.
package recommend
