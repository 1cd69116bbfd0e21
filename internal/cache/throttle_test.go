// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package cache

import (
	"testing"
	"time"

	"github.com/tomtom215/shopsense/internal/schedule"
)

func TestThrottle_Allow(t *testing.T) {
	t.Parallel()

	clock := schedule.NewManual(epoch)
	th := NewThrottle(2*time.Second, clock)

	tests := []struct {
		advance time.Duration
		key     string
		want    bool
	}{
		{0, "s1:p1", true},
		{500 * time.Millisecond, "s1:p1", false},
		{0, "s1:p2", true},
		{time.Second, "s1:p1", false},
		{600 * time.Millisecond, "s1:p1", true},
		{0, "s1:p1", false},
	}

	for i, tt := range tests {
		clock.Advance(tt.advance)
		if got := th.Allow(tt.key); got != tt.want {
			t.Errorf("step %d Allow(%s) = %v, want %v", i, tt.key, got, tt.want)
		}
	}
}

func TestThrottle_DisabledAndPrune(t *testing.T) {
	t.Parallel()

	clock := schedule.NewManual(epoch)
	off := NewThrottle(0, clock)
	for i := 0; i < 3; i++ {
		if !off.Allow("k") {
			t.Fatal("zero interval should never throttle")
		}
	}

	th := NewThrottle(time.Second, clock)
	th.Allow("a")
	clock.Advance(time.Minute)
	th.Allow("b")
	if n := th.Prune(30 * time.Second); n != 1 {
		t.Errorf("Prune removed %d, want 1", n)
	}
	if th.Len() != 1 {
		t.Errorf("Len() = %d, want 1", th.Len())
	}
}

func TestWrap(t *testing.T) {
	t.Parallel()

	clock := schedule.NewManual(epoch)
	calls := 0
	fn := Wrap(func() { calls++ }, 100*time.Millisecond, clock)

	fn()
	fn()
	clock.Advance(150 * time.Millisecond)
	fn()

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
