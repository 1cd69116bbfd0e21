// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/schedule"
	"github.com/tomtom215/shopsense/internal/store"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedEvents(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	seeds := []Event{
		{ID: "a", Timestamp: epoch, Type: TypeSessionCleared, Target: Target{ID: "s1", Type: "session"}},
		{ID: "b", Timestamp: epoch.Add(time.Minute), Type: TypeModelRebuildRequested, Target: Target{ID: "recommendation-models", Type: "model"}},
		{ID: "c", Timestamp: epoch.Add(2 * time.Minute), Type: TypeSessionCleared, Target: Target{ID: "s2", Type: "session"}},
		{ID: "d", Timestamp: epoch.Add(3 * time.Minute), Type: TypeExperimentCompleted, Target: Target{ID: "exp", Type: "experiment"}},
	}
	for i := range seeds {
		if err := s.Save(ctx, &seeds[i]); err != nil {
			t.Fatalf("Save(%s): %v", seeds[i].ID, err)
		}
	}
}

func ids(evs []Event) string {
	out := ""
	for _, e := range evs {
		out += e.ID
	}
	return out
}

func TestStores_Query(t *testing.T) {
	backends := map[string]func() Store{
		"memory": func() Store { return NewMemoryStore(100) },
		"kv":     func() Store { return NewKVStore(store.NewMemoryKV()) },
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   string
	}{
		{"everything, newest first", QueryFilter{}, "dcba"},
		{"limit", QueryFilter{Limit: 2}, "dc"},
		{"by type", QueryFilter{Types: []EventType{TypeSessionCleared}}, "ca"},
		{"by two types", QueryFilter{Types: []EventType{TypeSessionCleared, TypeExperimentCompleted}}, "dca"},
		{"by target", QueryFilter{TargetID: "s1"}, "a"},
		{"since", QueryFilter{Since: epoch.Add(90 * time.Second)}, "dc"},
		{"no match", QueryFilter{TargetID: "nobody"}, ""},
	}

	for backend, newStore := range backends {
		s := newStore()
		seedEvents(t, s)
		for _, tt := range tests {
			t.Run(backend+"/"+tt.name, func(t *testing.T) {
				got, err := s.Query(context.Background(), tt.filter)
				if err != nil {
					t.Fatalf("Query: %v", err)
				}
				if ids(got) != tt.want {
					t.Errorf("Query = %q, want %q", ids(got), tt.want)
				}
			})
		}
	}
}

func TestStores_DeleteBefore(t *testing.T) {
	backends := map[string]Store{
		"memory": NewMemoryStore(100),
		"kv":     NewKVStore(store.NewMemoryKV()),
	}
	for name, s := range backends {
		t.Run(name, func(t *testing.T) {
			seedEvents(t, s)
			n, err := s.DeleteBefore(context.Background(), epoch.Add(2*time.Minute))
			if err != nil {
				t.Fatalf("DeleteBefore: %v", err)
			}
			if n != 2 {
				t.Errorf("deleted %d, want 2", n)
			}
			got, _ := s.Query(context.Background(), QueryFilter{})
			if ids(got) != "dc" {
				t.Errorf("remaining = %q, want dc", ids(got))
			}
		})
	}
}

func TestMemoryStore_DropsOldestWhenFull(t *testing.T) {
	s := NewMemoryStore(10)
	for i := 0; i < 11; i++ {
		ev := Event{ID: fmt.Sprintf("e%02d", i), Timestamp: epoch.Add(time.Duration(i) * time.Second)}
		if err := s.Save(context.Background(), &ev); err != nil {
			t.Fatal(err)
		}
	}
	if s.Len() != 10 {
		t.Fatalf("Len = %d, want 10", s.Len())
	}
	got, _ := s.Query(context.Background(), QueryFilter{})
	if got[len(got)-1].ID != "e01" {
		t.Errorf("oldest kept = %s, want e01", got[len(got)-1].ID)
	}
}

func TestKVStore_KeysSortByTime(t *testing.T) {
	early := Event{ID: "zzz", Timestamp: epoch}
	late := Event{ID: "aaa", Timestamp: epoch.Add(time.Nanosecond)}
	if eventKey(&early) >= eventKey(&late) {
		t.Errorf("eventKey(early)=%q should sort before eventKey(late)=%q", eventKey(&early), eventKey(&late))
	}
}

// failingStore rejects every write.
type failingStore struct{ MemoryStore }

func (f *failingStore) Save(context.Context, *Event) error { return errors.New("disk full") }

func newTestLogger(t *testing.T, cfg Config, s Store) (*Logger, *schedule.Manual) {
	t.Helper()
	sched := schedule.NewManual(epoch)
	l := NewLogger(cfg, s, sched, zerolog.Nop())
	t.Cleanup(func() { _ = l.Close() })
	return l, sched
}

func TestLogger_StampsAndFlushesOnClose(t *testing.T) {
	mem := NewMemoryStore(100)
	l, _ := newTestLogger(t, DefaultConfig(), mem)

	ctx := logging.ContextWithRequestID(context.Background(), "req-7")
	r := httptest.NewRequest("DELETE", "/api/v1/sessions/s1", nil)
	r.RemoteAddr = "203.0.113.9"
	r.Header.Set("User-Agent", "storefront/1.0")

	l.SessionCleared(ctx, "s1", SourceFromRequest(r), nil)
	l.SessionCleared(ctx, "s2", Source{}, errors.New("store unavailable"))
	l.RebuildRequested(ctx, Source{})
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, _ := mem.Query(context.Background(), QueryFilter{})
	if len(got) != 3 {
		t.Fatalf("stored %d events, want 3", len(got))
	}
	byTarget := map[string]Event{}
	for _, ev := range got {
		byTarget[ev.Target.ID] = ev
		if ev.ID == "" {
			t.Errorf("event for %s has no ID", ev.Target.ID)
		}
		if !ev.Timestamp.Equal(epoch) {
			t.Errorf("Timestamp = %v, want scheduler clock %v", ev.Timestamp, epoch)
		}
		if ev.RequestID != "req-7" {
			t.Errorf("RequestID = %q, want req-7", ev.RequestID)
		}
	}

	ok := byTarget["s1"]
	if ok.Outcome != OutcomeSuccess || ok.Severity != SeverityInfo {
		t.Errorf("s1 outcome/severity = %s/%s, want success/info", ok.Outcome, ok.Severity)
	}
	if ok.Source.IPAddress != "203.0.113.9" || ok.Source.UserAgent != "storefront/1.0" {
		t.Errorf("s1 source = %+v", ok.Source)
	}
	failed := byTarget["s2"]
	if failed.Outcome != OutcomeFailure || failed.Severity != SeverityError || failed.Description != "store unavailable" {
		t.Errorf("s2 = %+v, want failure/error with the cause", failed)
	}
	if byTarget["recommendation-models"].Type != TypeModelRebuildRequested {
		t.Errorf("rebuild event missing: %+v", byTarget)
	}
}

func TestLogger_ExperimentCompletedMetadata(t *testing.T) {
	mem := NewMemoryStore(100)
	l, _ := newTestLogger(t, DefaultConfig(), mem)

	at := epoch.Add(-time.Hour)
	l.ExperimentCompleted(context.Background(), events.ExperimentCompleted{
		ExperimentID: "subtlety", WinnerID: "bold", Metric: "conversion_rate", Lift: 0.25, At: at,
	})
	_ = l.Close()

	got, _ := mem.Query(context.Background(), QueryFilter{Types: []EventType{TypeExperimentCompleted}})
	if len(got) != 1 {
		t.Fatalf("got %d events, want 1", len(got))
	}
	ev := got[0]
	if !ev.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want completion time %v", ev.Timestamp, at)
	}
	var meta struct {
		WinnerID string  `json:"winner_id"`
		Lift     float64 `json:"lift"`
	}
	if err := json.Unmarshal(ev.Metadata, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.WinnerID != "bold" || meta.Lift != 0.25 {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestLogger_DropsAfterClose(t *testing.T) {
	mem := NewMemoryStore(100)
	l, _ := newTestLogger(t, DefaultConfig(), mem)
	_ = l.Close()
	_ = l.Close()

	l.RebuildRequested(context.Background(), Source{})
	if mem.Len() != 0 {
		t.Errorf("event written after Close")
	}
	if _, err := l.Query(context.Background(), QueryFilter{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Query after Close err = %v, want ErrClosed", err)
	}
}

func TestLogger_WriteFailureDoesNotStopWriter(t *testing.T) {
	l, _ := newTestLogger(t, DefaultConfig(), &failingStore{})
	for i := 0; i < 5; i++ {
		l.RebuildRequested(context.Background(), Source{})
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLogger_QueryClampsLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxQueryLimit = 2
	mem := NewMemoryStore(100)
	seedEvents(t, mem)
	l, _ := newTestLogger(t, cfg, mem)

	for _, limit := range []int{0, 3, 100} {
		got, err := l.Query(context.Background(), QueryFilter{Limit: limit})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("limit %d returned %d events, want 2", limit, len(got))
		}
	}
}

func TestLogger_RetentionSweep(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retention = time.Hour
	cfg.CleanupInterval = time.Minute
	mem := NewMemoryStore(100)
	seedEvents(t, mem)
	_, sched := newTestLogger(t, cfg, mem)

	// The last sweep runs at epoch+62m with cutoff epoch+2m.
	sched.Advance(62 * time.Minute)
	got, _ := mem.Query(context.Background(), QueryFilter{})
	if ids(got) != "dc" {
		t.Errorf("after sweep = %q, want dc", ids(got))
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"disabled ignores the rest", func(c *Config) { c.Enabled = false; c.Store = "s3" }, false},
		{"unknown store", func(c *Config) { c.Store = "s3" }, true},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }, true},
		{"zero retention", func(c *Config) { c.Retention = 0 }, true},
		{"zero query limit", func(c *Config) { c.MaxQueryLimit = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
