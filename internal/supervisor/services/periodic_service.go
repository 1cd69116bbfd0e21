// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Task is one run of a periodic job.
type Task func(ctx context.Context) error

// PeriodicConfig schedules a Task.
type PeriodicConfig struct {
	// Interval between runs. Non-positive values become one hour.
	Interval time.Duration `koanf:"interval"`

	// RunOnStartup runs the task once as soon as the service starts.
	RunOnStartup bool `koanf:"run_on_startup"`

	// Timeout bounds a single run. Zero leaves it unbounded.
	Timeout time.Duration `koanf:"timeout"`
}

// PeriodicService runs a Task on a ticker under suture supervision. A
// failing run is logged and retried on the next tick; the service itself
// only returns when its context ends.
type PeriodicService struct {
	name   string
	task   Task
	config PeriodicConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewPeriodicService creates a periodic service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPeriodicService(name string, task Task, cfg PeriodicConfig, logger zerolog.Logger) *PeriodicService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &PeriodicService{
		name:   name,
		task:   task,
		config: cfg,
		logger: logger.With().Str("service", name).Logger(),
		now:    time.Now,
	}
}

// Serve implements suture.Service.
func (s *PeriodicService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("periodic service starting")

	if s.config.RunOnStartup {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("periodic service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// run executes one bounded task run.
func (s *PeriodicService) run(ctx context.Context) {
	runCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := s.now()
	if err := s.task(runCtx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Err(err).Dur("duration", s.now().Sub(start)).Msg("periodic run failed (will retry on schedule)")
		return
	}
	s.logger.Debug().Dur("duration", s.now().Sub(start)).Msg("periodic run complete")
}

// String names the service in supervisor logs.
func (s *PeriodicService) String() string {
	return s.name
}
