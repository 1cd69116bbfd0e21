// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package services

import (
	"context"
	"fmt"
	"time"
)

// Scheduler is the lifecycle of schedule.CronScheduler.
type Scheduler interface {
	Start()
	Stop(ctx context.Context) error
}

// SchedulerService runs the component scheduler under supervision. Jobs
// registered through Every keep their registrations across a restart.
type SchedulerService struct {
	sched       Scheduler
	stopTimeout time.Duration
}

// NewSchedulerService wraps sched. Stop waits up to stopTimeout for running
// jobs; a non-positive value becomes 10s.
func NewSchedulerService(sched Scheduler, stopTimeout time.Duration) *SchedulerService {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &SchedulerService{sched: sched, stopTimeout: stopTimeout}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	s.sched.Start()
	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()
	if err := s.sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("scheduler stop: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *SchedulerService) String() string {
	return "scheduler"
}
