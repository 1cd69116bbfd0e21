// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

// Audit event types.
const (
	// TypeSessionCleared records an erasure of a session's behavior,
	// search history, and experiment assignments.
	TypeSessionCleared EventType = "privacy.session_cleared"

	// TypeModelRebuildRequested records an operator-triggered model rebuild.
	TypeModelRebuildRequested EventType = "model.rebuild_requested"

	// TypeExperimentCompleted records an experiment declaring a winner.
	TypeExperimentCompleted EventType = "experiment.completed"
)

// Severity represents the importance of an audit event.
type Severity string

// Severity levels.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Outcome represents the result of the audited action.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Source identifies where an action originated. It is empty for actions
// the service takes on its own.
type Source struct {
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`

	// Subject is the operator token's subject when the request was
	// authenticated.
	Subject string `json:"subject,omitempty"`
}

// Target identifies the resource an action applied to.
type Target struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Event is a single audit record.
type Event struct {
	ID          string          `json:"id"`
	Timestamp   time.Time       `json:"timestamp"`
	Type        EventType       `json:"type"`
	Severity    Severity        `json:"severity"`
	Outcome     Outcome         `json:"outcome"`
	Source      Source          `json:"source"`
	Target      Target          `json:"target"`
	Action      string          `json:"action"`
	Description string          `json:"description,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	RequestID   string          `json:"request_id,omitempty"`
}

// QueryFilter selects audit events. Zero fields match everything.
type QueryFilter struct {
	Types    []EventType
	TargetID string
	Since    time.Time
	Limit    int
}

// Store persists audit events.
type Store interface {
	// Save persists one event.
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, most recent first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// DeleteBefore removes events older than cutoff and reports how many.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// matches reports whether event satisfies every set filter field.
func (f *QueryFilter) matches(event *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if event.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TargetID != "" && event.Target.ID != f.TargetID {
		return false
	}
	if !f.Since.IsZero() && event.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
