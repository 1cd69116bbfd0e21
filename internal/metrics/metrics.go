// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopsense_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Behavior Metrics
	BehaviorEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_behavior_events_total",
			Help: "Interaction events tracked, by kind",
		},
		[]string{"kind"},
	)

	BehaviorEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_behavior_events_dropped_total",
			Help: "Interaction events ignored before scoring, by reason",
		},
		[]string{"reason"}, // "throttled", "invalid", "unpaired_hover"
	)

	ZeroResultSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shopsense_zero_result_searches_total",
			Help: "Searches that returned no products",
		},
	)

	PersistenceOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_persistence_operations_total",
			Help: "Profile and experiment persistence operations",
		},
		[]string{"operation", "result"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_cache_hits_total",
			Help: "Memoization cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_cache_misses_total",
			Help: "Memoization cache misses",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_cache_evictions_total",
			Help: "Memoization cache evictions by reason",
		},
		[]string{"cache", "reason"}, // "expired", "lru"
	)

	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopsense_cache_entries",
			Help: "Current number of memoized entries",
		},
		[]string{"cache"},
	)

	// Scoring and Model Metrics
	ScoreRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "shopsense_score_recompute_duration_seconds",
			Help:    "Duration of a full product score recomputation",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	ScoredProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopsense_scored_products",
			Help: "Products scored in the most recent recomputation",
		},
	)

	ModelRebuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_model_rebuild_duration_seconds",
			Help:    "Duration of similarity and basket model rebuilds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	ModelSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopsense_model_size",
			Help: "Entries in the current model (similarity pairs or rules)",
		},
		[]string{"model"},
	)

	// Recommendation and Reorder Metrics
	RecommendationsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_recommendations_served_total",
			Help: "Recommendations returned, by page context",
		},
		[]string{"page"},
	)

	ReorderPlacements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_reorder_placements_total",
			Help: "Reorder blend placements by source list",
		},
		[]string{"source"}, // "proposed", "current"
	)

	ReorderStrategyWeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopsense_reorder_strategy_weight",
			Help: "Effective blend weight of each reorder strategy in the last request",
		},
		[]string{"strategy"},
	)

	// Experiment Metrics
	ExperimentImpressions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_experiment_impressions_total",
			Help: "Impressions recorded per experiment variant",
		},
		[]string{"experiment", "variant"},
	)

	ExperimentConversions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_experiment_conversions_total",
			Help: "Conversions recorded per experiment variant",
		},
		[]string{"experiment", "variant"},
	)

	ExperimentWeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopsense_experiment_variant_weight",
			Help: "Current traffic weight per experiment variant",
		},
		[]string{"experiment", "variant"},
	)

	// Enrichment Metrics
	EnrichmentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_enrichment_calls_total",
			Help: "Optional enrichment calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"}, // "ok", "error", "open", "disabled"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "shopsense_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Catalog Metrics
	CatalogFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_catalog_fetches_total",
			Help: "Catalog collaborator calls by operation and result",
		},
		[]string{"operation", "result"},
	)

	CatalogFetchAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shopsense_catalog_fetch_attempts",
			Help:    "Attempts used per catalog collaborator call",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"operation"},
	)

	CatalogProducts = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopsense_catalog_products",
			Help: "Products in the current catalog snapshot",
		},
	)

	// Event Bus Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_events_published_total",
			Help: "Events published on the in-process bus",
		},
		[]string{"topic"},
	)

	EventsHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_events_handled_total",
			Help: "Events delivered to subscribers, by result",
		},
		[]string{"topic", "result"},
	)

	// Live Stream Metrics
	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "shopsense_stream_clients",
			Help: "Connected websocket clients",
		},
	)

	// Audit Metrics
	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shopsense_audit_events_total",
			Help: "Audit events by type and result (written, dropped, failed)",
		},
		[]string{"type", "result"},
	)
)

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordBehaviorEvent counts a tracked interaction.
func RecordBehaviorEvent(kind string) {
	BehaviorEventsTotal.WithLabelValues(kind).Inc()
}

// RecordBehaviorDropped counts an interaction ignored before scoring.
func RecordBehaviorDropped(reason string) {
	BehaviorEventsDropped.WithLabelValues(reason).Inc()
}

// RecordZeroResultSearch counts a search with no results.
func RecordZeroResultSearch() {
	ZeroResultSearches.Inc()
}

// RecordPersistence records a KV load or save.
func RecordPersistence(operation string, err error) {
	PersistenceOps.WithLabelValues(operation, result(err)).Inc()
}

// RecordCacheHit counts a memo hit.
func RecordCacheHit(cache string) {
	CacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a memo miss.
func RecordCacheMiss(cache string) {
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheEvictions counts n evictions for reason.
func RecordCacheEvictions(cache, reason string, n int) {
	CacheEvictions.WithLabelValues(cache, reason).Add(float64(n))
}

// SetCacheEntries sets the current entry count of a memo.
func SetCacheEntries(cache string, n int) {
	CacheEntries.WithLabelValues(cache).Set(float64(n))
}

// RecordScoreRecompute records a full scoring pass.
func RecordScoreRecompute(duration time.Duration, products int) {
	ScoreRecomputeDuration.Observe(duration.Seconds())
	ScoredProducts.Set(float64(products))
}

// RecordModelRebuild records a model rebuild and its resulting size.
func RecordModelRebuild(model string, duration time.Duration, size int) {
	ModelRebuildDuration.WithLabelValues(model).Observe(duration.Seconds())
	ModelSize.WithLabelValues(model).Set(float64(size))
}

// RecordRecommendations counts recommendations served for a page.
func RecordRecommendations(page string, n int) {
	RecommendationsServed.WithLabelValues(page).Add(float64(n))
}

// RecordReorder records how many placements came from each list.
func RecordReorder(fromProposed, fromCurrent int) {
	ReorderPlacements.WithLabelValues("proposed").Add(float64(fromProposed))
	ReorderPlacements.WithLabelValues("current").Add(float64(fromCurrent))
}

// SetReorderStrategyWeight records a strategy's effective blend weight.
func SetReorderStrategyWeight(strategy string, weight float64) {
	ReorderStrategyWeight.WithLabelValues(strategy).Set(weight)
}

// RecordExperimentImpression counts an impression for a variant.
func RecordExperimentImpression(experiment, variant string) {
	ExperimentImpressions.WithLabelValues(experiment, variant).Inc()
}

// RecordExperimentConversion counts a conversion for a variant.
func RecordExperimentConversion(experiment, variant string) {
	ExperimentConversions.WithLabelValues(experiment, variant).Inc()
}

// SetExperimentWeight records a variant's traffic weight.
func SetExperimentWeight(experiment, variant string, weight float64) {
	ExperimentWeight.WithLabelValues(experiment, variant).Set(weight)
}

// RecordEnrichmentCall records an enrichment call outcome.
func RecordEnrichmentCall(endpoint, outcome string) {
	EnrichmentCalls.WithLabelValues(endpoint, outcome).Inc()
}

// SetCircuitBreakerState records a breaker state (0 closed, 1 half-open, 2 open).
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordCatalogFetch records a catalog collaborator call.
func RecordCatalogFetch(operation string, attempts int, err error) {
	CatalogFetches.WithLabelValues(operation, result(err)).Inc()
	CatalogFetchAttempts.WithLabelValues(operation).Observe(float64(attempts))
}

// SetCatalogProducts records the snapshot size.
func SetCatalogProducts(n int) {
	CatalogProducts.Set(float64(n))
}

// RecordEventPublished counts a bus publish.
func RecordEventPublished(topic string) {
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordEventHandled counts a subscriber delivery.
func RecordEventHandled(topic string, err error) {
	EventsHandled.WithLabelValues(topic, result(err)).Inc()
}

// StatusLabel formats an HTTP status for the status label.
func StatusLabel(code int) string {
	return strconv.Itoa(code)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
