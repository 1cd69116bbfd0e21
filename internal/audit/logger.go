// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package audit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/auth"
	"github.com/tomtom215/shopsense/internal/events"
	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/schedule"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreKV     = "kv"
)

// Config configures the audit trail.
type Config struct {
	// Enabled turns the audit trail on.
	Enabled bool `koanf:"enabled"`

	// Store selects the backend: memory, or kv to share the profile store.
	Store string `koanf:"store"`

	// MemoryMaxEvents bounds the memory backend.
	MemoryMaxEvents int `koanf:"memory_max_events"`

	// BufferSize is the capacity of the asynchronous write queue. Events
	// arriving while it is full are dropped and counted.
	BufferSize int `koanf:"buffer_size"`

	// Retention is how long events are kept.
	Retention time.Duration `koanf:"retention"`

	// CleanupInterval is how often expired events are pruned.
	CleanupInterval time.Duration `koanf:"cleanup_interval"`

	// MaxQueryLimit caps a single query.
	MaxQueryLimit int `koanf:"max_query_limit"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Store:           StoreKV,
		MemoryMaxEvents: 10000,
		BufferSize:      256,
		Retention:       90 * 24 * time.Hour,
		CleanupInterval: time.Hour,
		MaxQueryLimit:   500,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Store != StoreMemory && c.Store != StoreKV {
		return fmt.Errorf("audit store %q must be memory or kv", c.Store)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("audit buffer_size must be positive, got %d", c.BufferSize)
	}
	if c.Retention <= 0 || c.CleanupInterval <= 0 {
		return fmt.Errorf("audit retention and cleanup_interval must be positive")
	}
	if c.MaxQueryLimit < 1 {
		return fmt.Errorf("audit max_query_limit must be positive, got %d", c.MaxQueryLimit)
	}
	return nil
}

// ErrClosed is returned by Query after Close.
var ErrClosed = errors.New("audit: logger closed")

// Logger writes audit events asynchronously to a Store and prunes them
// past the retention window.
type Logger struct {
	store  Store
	config Config
	sched  schedule.Scheduler
	logger zerolog.Logger

	queue   chan *Event
	stop    chan struct{}
	wg      sync.WaitGroup
	cancel  schedule.Cancel
	closeMu sync.RWMutex
	closed  bool
}

// NewLogger starts the writer goroutine and registers the retention sweep
// on sched.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLogger(cfg Config, st Store, sched schedule.Scheduler, logger zerolog.Logger) *Logger {
	if cfg.BufferSize < 1 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.MaxQueryLimit < 1 {
		cfg.MaxQueryLimit = DefaultConfig().MaxQueryLimit
	}
	l := &Logger{
		store:  st,
		config: cfg,
		sched:  sched,
		logger: logger.With().Str("component", "audit").Logger(),
		queue:  make(chan *Event, cfg.BufferSize),
		stop:   make(chan struct{}),
		cancel: schedule.Noop,
	}

	l.wg.Add(1)
	go l.writer()

	if cfg.Retention > 0 && cfg.CleanupInterval > 0 {
		l.cancel = sched.Every(cfg.CleanupInterval, func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := l.Prune(ctx); err != nil {
				l.logger.Warn().Err(err).Msg("audit retention sweep failed")
			}
		})
	}
	return l
}

// writer drains the queue until Close, then flushes what is left.
func (l *Logger) writer() {
	defer l.wg.Done()
	for {
		select {
		case ev := <-l.queue:
			l.save(ev)
		case <-l.stop:
			for {
				select {
				case ev := <-l.queue:
					l.save(ev)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) save(ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.store.Save(ctx, ev); err != nil {
		metrics.AuditEvents.WithLabelValues(string(ev.Type), "failed").Inc()
		l.logger.Error().Err(err).Str("event_type", string(ev.Type)).Str("event_id", ev.ID).Msg("failed to save audit event")
		return
	}
	metrics.AuditEvents.WithLabelValues(string(ev.Type), "written").Inc()
}

// Log stamps and enqueues an event. It never blocks: with the queue full
// or the logger closed the event is dropped.
func (l *Logger) Log(ctx context.Context, event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.sched.Now().UTC()
	}
	if event.RequestID == "" {
		event.RequestID = logging.RequestIDFromContext(ctx)
	}
	if event.Severity == "" {
		event.Severity = SeverityInfo
	}

	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		metrics.AuditEvents.WithLabelValues(string(event.Type), "dropped").Inc()
		return
	}
	select {
	case l.queue <- event:
	default:
		metrics.AuditEvents.WithLabelValues(string(event.Type), "dropped").Inc()
		l.logger.Warn().Str("event_type", string(event.Type)).Msg("audit queue full, event dropped")
	}
}

// Query returns matching events, most recent first. The limit is clamped
// to MaxQueryLimit.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	l.closeMu.RLock()
	closed := l.closed
	l.closeMu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if filter.Limit <= 0 || filter.Limit > l.config.MaxQueryLimit {
		filter.Limit = l.config.MaxQueryLimit
	}
	return l.store.Query(ctx, filter)
}

// Prune deletes events older than the retention window.
func (l *Logger) Prune(ctx context.Context) (int, error) {
	cutoff := l.sched.Now().Add(-l.config.Retention)
	n, err := l.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return n, fmt.Errorf("prune audit events: %w", err)
	}
	if n > 0 {
		l.logger.Info().Int("deleted", n).Time("cutoff", cutoff).Msg("pruned expired audit events")
	}
	return n, nil
}

// Close stops the retention sweep and flushes queued events.
func (l *Logger) Close() error {
	l.closeMu.Lock()
	if l.closed {
		l.closeMu.Unlock()
		return nil
	}
	l.closed = true
	l.closeMu.Unlock()

	l.cancel()
	close(l.stop)
	l.wg.Wait()
	return nil
}

// SessionCleared records a session erasure and whether it succeeded.
func (l *Logger) SessionCleared(ctx context.Context, sessionID string, src Source, err error) {
	ev := &Event{
		Type:        TypeSessionCleared,
		Outcome:     OutcomeSuccess,
		Source:      src,
		Target:      Target{ID: sessionID, Type: "session"},
		Action:      "clear",
		Description: "session behavior, search history, and experiment assignments erased",
	}
	if err != nil {
		ev.Outcome = OutcomeFailure
		ev.Severity = SeverityError
		ev.Description = err.Error()
	}
	l.Log(ctx, ev)
}

// RebuildRequested records an operator-triggered model rebuild.
func (l *Logger) RebuildRequested(ctx context.Context, src Source) {
	l.Log(ctx, &Event{
		Type:    TypeModelRebuildRequested,
		Outcome: OutcomeSuccess,
		Source:  src,
		Target:  Target{ID: "recommendation-models", Type: "model"},
		Action:  "rebuild",
	})
}

// ExperimentCompleted records an experiment declaring its winner.
func (l *Logger) ExperimentCompleted(ctx context.Context, done events.ExperimentCompleted) {
	meta, err := json.Marshal(map[string]any{
		"winner_id": done.WinnerID,
		"metric":    done.Metric,
		"lift":      done.Lift,
	})
	if err != nil {
		meta = nil
	}
	l.Log(ctx, &Event{
		Timestamp:   done.At.UTC(),
		Type:        TypeExperimentCompleted,
		Outcome:     OutcomeSuccess,
		Target:      Target{ID: done.ExperimentID, Type: "experiment"},
		Action:      "complete",
		Description: fmt.Sprintf("winner %s", done.WinnerID),
		Metadata:    meta,
	})
}

// SourceFromRequest describes the client behind r. The address is the one
// chi's RealIP middleware has already resolved.
func SourceFromRequest(r *http.Request) Source {
	src := Source{
		IPAddress: r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}
	if claims := auth.ClaimsFromContext(r.Context()); claims != nil {
		src.Subject = claims.Subject
	}
	return src
}
