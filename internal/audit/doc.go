// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package audit keeps a tamper-evident-enough trail of the privacy and
operations actions taken against the service: session erasures, operator
model rebuilds, and experiment completions.

Events are queued without blocking the caller and written by a single
goroutine to a Store:

  - MemoryStore: bounded slice, oldest tenth dropped when full
  - KVStore: the shared key/value store under audit:<unix-nanos>:<id>,
    so keys sort in time order and survive restarts with Badger

A retention sweep registered on the scheduler deletes events older than
Config.Retention. Queue overflow and write failures are counted in the
shopsense_audit_events_total metric.

# Usage

	trail := audit.NewLogger(cfg.Audit, audit.NewKVStore(kv), sched, logger)
	defer trail.Close()

	trail.SessionCleared(ctx, sessionID, audit.SourceFromRequest(r), err)
	recent, err := trail.Query(ctx, audit.QueryFilter{
	    Types: []audit.EventType{audit.TypeSessionCleared},
	    Limit: 50,
	})
*/
package audit
