// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestManual_Every(t *testing.T) {
	t.Parallel()

	m := NewManual(epoch)
	var calls int
	cancel := m.Every(10*time.Second, func() { calls++ })

	m.Advance(9 * time.Second)
	if calls != 0 {
		t.Fatalf("calls = %d before first period, want 0", calls)
	}

	m.Advance(31 * time.Second)
	if calls != 4 {
		t.Errorf("calls = %d after 40s, want 4", calls)
	}

	cancel()
	cancel()
	m.Advance(time.Minute)
	if calls != 4 {
		t.Errorf("calls = %d after cancel, want 4", calls)
	}
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestManual_AfterFiresOnce(t *testing.T) {
	t.Parallel()

	m := NewManual(epoch)
	var firedAt time.Time
	m.After(5*time.Second, func() { firedAt = m.Now() })

	m.Advance(time.Minute)
	if !firedAt.Equal(epoch.Add(5 * time.Second)) {
		t.Errorf("fired at %v, want %v", firedAt, epoch.Add(5*time.Second))
	}
	if m.Pending() != 0 {
		t.Errorf("one-shot task should be removed, pending = %d", m.Pending())
	}
	if !m.Now().Equal(epoch.Add(time.Minute)) {
		t.Errorf("Now() = %v, want %v", m.Now(), epoch.Add(time.Minute))
	}
}

func TestManual_OrderAndReentrancy(t *testing.T) {
	t.Parallel()

	m := NewManual(epoch)
	var order []string
	m.After(3*time.Second, func() { order = append(order, "b") })
	m.After(1*time.Second, func() {
		order = append(order, "a")
		m.After(1*time.Second, func() { order = append(order, "a2") })
	})

	m.Advance(5 * time.Second)

	want := []string{"a", "a2", "b"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}

func TestManual_NonPositiveEvery(t *testing.T) {
	t.Parallel()

	m := NewManual(epoch)
	cancel := m.Every(0, func() { t.Error("zero-period task must never run") })
	cancel()
	m.Advance(time.Hour)
	if m.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", m.Pending())
	}
}

func TestCronScheduler_After(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(zerolog.Nop())
	s.Start()
	defer func() { _ = s.Stop(context.Background()) }()

	var fired atomic.Int32
	done := make(chan struct{})
	s.After(10*time.Millisecond, func() {
		fired.Add(1)
		close(done)
	})

	cancelled := s.After(10*time.Millisecond, func() { fired.Add(100) })
	cancelled()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("After task did not fire")
	}
	time.Sleep(30 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Errorf("fired = %d, want 1", got)
	}
}

func TestCronScheduler_EveryRegistersEntry(t *testing.T) {
	t.Parallel()

	s := NewCronScheduler(zerolog.Nop())
	cancel := s.Every(time.Minute, func() {})
	if n := len(s.cron.Entries()); n != 1 {
		t.Fatalf("entries = %d, want 1", n)
	}
	cancel()
	if n := len(s.cron.Entries()); n != 0 {
		t.Errorf("entries after cancel = %d, want 0", n)
	}
	if s.Every(0, func() {}) == nil {
		t.Error("Every(0) should return a usable cancel")
	}
}
