// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/schedule"
)

var _ Scheduler = (*schedule.CronScheduler)(nil)

type fakeScheduler struct {
	starts atomic.Int32
	stops  atomic.Int32
	err    error
}

func (f *fakeScheduler) Start() { f.starts.Add(1) }

func (f *fakeScheduler) Stop(context.Context) error {
	f.stops.Add(1)
	return f.err
}

func TestSchedulerService_StartStop(t *testing.T) {
	sched := &fakeScheduler{}
	svc := NewSchedulerService(sched, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	waitForCount(t, &sched.starts, 1)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
	if sched.stops.Load() != 1 {
		t.Errorf("stops = %d, want 1", sched.stops.Load())
	}
}

func TestSchedulerService_StopError(t *testing.T) {
	sched := &fakeScheduler{err: context.DeadlineExceeded}
	svc := NewSchedulerService(sched, 0)
	if svc.stopTimeout != 10*time.Second {
		t.Errorf("stopTimeout = %v, want 10s", svc.stopTimeout)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want wrapped stop error", err)
	}
}

func TestSchedulerService_RunsCronJobs(t *testing.T) {
	sched := schedule.NewCronScheduler(zerolog.Nop())
	var runs atomic.Int32
	sched.Every(time.Second, func() { runs.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = NewSchedulerService(sched, time.Second).Serve(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Error("scheduled job never ran")
	}
}
