// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/test", "200"))
	RecordAPIRequest("GET", "/api/v1/test", StatusLabel(200), 5*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/test", "200"))
	if after-before != 1 {
		t.Errorf("request counter delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active = %v, want %v", got, before)
	}
}

func TestCacheCounters(t *testing.T) {
	RecordCacheHit("metrics-test")
	RecordCacheHit("metrics-test")
	RecordCacheMiss("metrics-test")
	RecordCacheEvictions("metrics-test", "lru", 3)
	SetCacheEntries("metrics-test", 7)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"hits", testutil.ToFloat64(CacheHits.WithLabelValues("metrics-test")), 2},
		{"misses", testutil.ToFloat64(CacheMisses.WithLabelValues("metrics-test")), 1},
		{"evictions", testutil.ToFloat64(CacheEvictions.WithLabelValues("metrics-test", "lru")), 3},
		{"entries", testutil.ToFloat64(CacheEntries.WithLabelValues("metrics-test")), 7},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestResultLabels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "ok"},
		{"failure", errors.New("boom"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := result(tt.err); got != tt.want {
				t.Errorf("result(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestRecordCatalogFetch(t *testing.T) {
	before := testutil.ToFloat64(CatalogFetches.WithLabelValues("metrics-test-op", "error"))
	RecordCatalogFetch("metrics-test-op", 3, errors.New("unavailable"))
	after := testutil.ToFloat64(CatalogFetches.WithLabelValues("metrics-test-op", "error"))
	if after-before != 1 {
		t.Errorf("fetch error delta = %v, want 1", after-before)
	}
}

func TestExperimentGauges(t *testing.T) {
	SetExperimentWeight("exp-metrics", "control", 0.25)
	if got := testutil.ToFloat64(ExperimentWeight.WithLabelValues("exp-metrics", "control")); got != 0.25 {
		t.Errorf("weight = %v, want 0.25", got)
	}
	RecordExperimentImpression("exp-metrics", "control")
	RecordExperimentConversion("exp-metrics", "control")
	if got := testutil.ToFloat64(ExperimentConversions.WithLabelValues("exp-metrics", "control")); got != 1 {
		t.Errorf("conversions = %v, want 1", got)
	}
}
