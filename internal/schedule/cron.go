// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package schedule

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronScheduler is the production Scheduler. Periodic tasks run on a
// robfig/cron instance with panic recovery and overlap skipping; one-shot
// tasks use time.AfterFunc.
//
// cron.Every has one-second granularity, so Every rounds d down to whole
// seconds with a floor of one second.
type CronScheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewCronScheduler creates a scheduler. Call Start before relying on Every.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewCronScheduler(logger zerolog.Logger) *CronScheduler {
	cl := cronLogger{logger: logger.With().Str("component", "scheduler").Logger()}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &CronScheduler{cron: c, logger: cl.logger}
}

// Now returns the wall-clock time.
func (s *CronScheduler) Now() time.Time { return time.Now() }

// Every schedules fn at a constant delay.
func (s *CronScheduler) Every(d time.Duration, fn func()) Cancel {
	if d <= 0 {
		return Noop
	}
	id := s.cron.Schedule(cron.Every(d), cron.FuncJob(fn))
	return once(func() { s.cron.Remove(id) })
}

// After schedules fn once.
func (s *CronScheduler) After(d time.Duration, fn func()) Cancel {
	if d < 0 {
		d = 0
	}
	t := time.AfterFunc(d, fn)
	return once(func() { t.Stop() })
}

// Start begins running periodic tasks in the background.
func (s *CronScheduler) Start() {
	s.cron.Start()
	s.logger.Debug().Int("entries", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop halts the scheduler and waits for running jobs or ctx expiry.
func (s *CronScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
