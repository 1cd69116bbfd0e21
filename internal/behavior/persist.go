// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package behavior

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/store"
)

// session returns the in-memory state for id, loading it from the store on
// first access. It returns nil once the tracker is closed.
func (t *Tracker) session(ctx context.Context, id string) *session {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	st, ok := t.sessions[id]
	if !ok {
		st = &session{lastSeen: t.sched.Now()}
		t.sessions[id] = st
	}
	t.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.loaded {
		st.profile = t.load(ctx, id)
		st.loaded = true
	}
	return st
}

// load reads a profile and its search history. Missing or malformed state
// yields an empty profile.
func (t *Tracker) load(ctx context.Context, id string) *Profile {
	now := t.sched.Now()

	var history []string
	if err := store.GetJSON(ctx, t.kv, store.SearchHistoryKey(id), &history); err != nil && !errors.Is(err, store.ErrNotFound) {
		t.logger.Warn().Err(err).Str("session_id", id).Msg("discarding unreadable search history")
		history = nil
	}
	if len(history) > t.cfg.SearchHistoryLimit {
		history = history[:t.cfg.SearchHistoryLimit]
	}

	var rec profileRecord
	err := store.GetJSON(ctx, t.kv, store.ProfileKey(id), &rec)
	metrics.RecordPersistence("profile_load", ignoreNotFound(err))
	switch {
	case errors.Is(err, store.ErrNotFound):
		p := NewProfile(id, now)
		p.SearchHistory = history
		return p
	case err != nil:
		t.logger.Warn().Err(err).Str("session_id", id).Msg("discarding unreadable profile")
		p := NewProfile(id, now)
		p.SearchHistory = history
		return p
	}

	p, ok := fromRecord(rec, id, history)
	if !ok {
		t.logger.Warn().Str("session_id", id).Int("version", rec.Version).Msg("discarding incompatible profile record")
		p = NewProfile(id, now)
		p.SearchHistory = history
	}
	return p
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// persist writes a session's profile and search history if dirty.
func (t *Tracker) persist(ctx context.Context, id string) error {
	t.mu.Lock()
	st, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	st.saveMu.Lock()
	defer st.saveMu.Unlock()

	st.mu.Lock()
	if !st.loaded || !st.dirty || st.cleared {
		st.mu.Unlock()
		return nil
	}
	rec := toRecord(st.profile)
	history := append([]string(nil), st.profile.SearchHistory...)
	st.dirty = false
	st.mu.Unlock()

	err := store.SetJSON(ctx, t.kv, store.ProfileKey(id), rec)
	if err == nil {
		err = store.SetJSON(ctx, t.kv, store.SearchHistoryKey(id), history)
	}
	metrics.RecordPersistence("profile_save", err)
	if err != nil {
		st.mu.Lock()
		st.dirty = !st.cleared
		st.mu.Unlock()
		return fmt.Errorf("persist session %s: %w", id, err)
	}
	return nil
}

// Flush persists every dirty session. Failures are logged and the first is
// returned; the affected sessions stay dirty.
func (t *Tracker) Flush(ctx context.Context) error {
	t.mu.Lock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	var first error
	failed := 0
	for _, id := range ids {
		if err := t.persist(ctx, id); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if failed > 0 {
		t.logger.Warn().Err(first).Int("failed", failed).Int("sessions", len(ids)).Msg("behavior flush incomplete")
	}
	return first
}

// housekeep drops stale hover starts, idle clean sessions, and idle
// throttle keys.
func (t *Tracker) housekeep() {
	now := t.sched.Now()

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, start := range t.hovers {
		if now.Sub(start) > t.cfg.HoverTimeout {
			delete(t.hovers, k)
		}
	}
	if t.cfg.IdleEvict > 0 {
		for id, st := range t.sessions {
			st.mu.Lock()
			idle := !st.dirty && now.Sub(st.lastSeen) > t.cfg.IdleEvict
			st.mu.Unlock()
			if idle {
				delete(t.sessions, id)
			}
		}
	}
	t.views.Prune(t.cfg.ViewThrottle * 10)
}
