// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package catalog holds the read-mostly view of the storefront catalog and the
transaction history the recommendation models are trained on.

The catalog/cart collaborator is external. A Source fetches products,
collections, and orders; Catalog sanitizes the result into an immutable
Snapshot and swaps it in atomically, so readers never observe a partially
refreshed catalog. A failed refresh keeps the previous snapshot.

Sources:
  - HTTPSource: a remote JSON API, reads and cart mutations retried with
    exponential backoff (github.com/cenkalti/backoff/v5)
  - FileSource: a seed JSON document on disk
  - StaticSource: fixed data for tests

Numeric fields are coerced at the boundary: NaN, infinite, and negative
prices, quantities, and inventory counts become zero.
*/
package catalog
