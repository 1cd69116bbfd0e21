// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered on the default registry with promauto and are
exposed at /metrics through promhttp.

# Available Metrics

API:
  - shopsense_api_requests_total{method,endpoint,status}
  - shopsense_api_request_duration_seconds{method,endpoint}
  - shopsense_api_active_requests

Behavior and persistence:
  - shopsense_behavior_events_total{kind}
  - shopsense_behavior_events_dropped_total{reason}
  - shopsense_zero_result_searches_total
  - shopsense_persistence_operations_total{operation,result}

Caching:
  - shopsense_cache_hits_total{cache}, shopsense_cache_misses_total{cache}
  - shopsense_cache_evictions_total{cache,reason}
  - shopsense_cache_entries{cache}

Scoring, models, recommendations:
  - shopsense_score_recompute_duration_seconds, shopsense_scored_products
  - shopsense_model_rebuild_duration_seconds{model}, shopsense_model_size{model}
  - shopsense_recommendations_served_total{page}
  - shopsense_reorder_placements_total{source}
  - shopsense_reorder_strategy_weight{strategy}

Experiments:
  - shopsense_experiment_impressions_total{experiment,variant}
  - shopsense_experiment_conversions_total{experiment,variant}
  - shopsense_experiment_variant_weight{experiment,variant}

Collaborators:
  - shopsense_enrichment_calls_total{endpoint,outcome}
  - shopsense_circuit_breaker_state{name}
  - shopsense_catalog_fetches_total{operation,result}
  - shopsense_catalog_fetch_attempts{operation}
  - shopsense_catalog_products
  - shopsense_events_published_total{topic}
  - shopsense_events_handled_total{topic,result}

# Usage

Components call the Record* helpers rather than touching collectors:

	start := time.Now()
	scores := engine.ScoreAll(ctx, session)
	metrics.RecordScoreRecompute(time.Since(start), len(scores))
*/
package metrics
