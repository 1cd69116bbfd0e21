// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package events

import "time"

// Topic names.
const (
	TopicBehaviorTracked       = "behavior.tracked"
	TopicScoresUpdated         = "scores.updated"
	TopicRecommendationApplied = "recommendation.applied"
	TopicVariantResolved       = "experiment.variant_resolved"
	TopicExperimentCompleted   = "experiment.completed"
	TopicCatalogRefreshed      = "catalog.data_refreshed"
)

// Payload is a typed event body bound to one topic.
type Payload interface {
	Topic() string
}

// BehaviorTracked is published after every interaction event is applied.
type BehaviorTracked struct {
	SessionID  string        `json:"session_id"`
	ProductID  string        `json:"product_id,omitempty"`
	Kind       string        `json:"kind"`
	Page       string        `json:"page,omitempty"`
	Value      float64       `json:"value,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
	Score      float64       `json:"score"`
	Predicted  string        `json:"predicted_action,omitempty"`
	HighImpact bool          `json:"high_impact"`
	At         time.Time     `json:"at"`
}

// Topic implements Payload.
func (BehaviorTracked) Topic() string { return TopicBehaviorTracked }

// ScoresUpdated is published after a session's product scores are recomputed.
type ScoresUpdated struct {
	SessionID string    `json:"session_id"`
	Products  int       `json:"products"`
	TopID     string    `json:"top_product_id,omitempty"`
	At        time.Time `json:"at"`
}

// Topic implements Payload.
func (ScoresUpdated) Topic() string { return TopicScoresUpdated }

// RecommendationApplied is published when a ranked list is handed out.
type RecommendationApplied struct {
	SessionID    string    `json:"session_id"`
	Page         string    `json:"page"`
	ProductIDs   []string  `json:"product_ids"`
	Source       string    `json:"source"` // "recommend" or "reorder"
	ExperimentID string    `json:"experiment_id,omitempty"`
	VariantID    string    `json:"variant_id,omitempty"`
	At           time.Time `json:"at"`
}

// Topic implements Payload.
func (RecommendationApplied) Topic() string { return TopicRecommendationApplied }

// VariantResolved is published when a session is first assigned a variant.
type VariantResolved struct {
	SessionID    string    `json:"session_id"`
	ExperimentID string    `json:"experiment_id"`
	VariantID    string    `json:"variant_id"`
	At           time.Time `json:"at"`
}

// Topic implements Payload.
func (VariantResolved) Topic() string { return TopicVariantResolved }

// ExperimentCompleted is published when an experiment declares a winner.
type ExperimentCompleted struct {
	ExperimentID string    `json:"experiment_id"`
	WinnerID     string    `json:"winner_id"`
	Metric       string    `json:"metric"`
	Lift         float64   `json:"lift"`
	At           time.Time `json:"at"`
}

// Topic implements Payload.
func (ExperimentCompleted) Topic() string { return TopicExperimentCompleted }

// CatalogRefreshed is published after a new catalog snapshot is installed.
type CatalogRefreshed struct {
	Products    int       `json:"products"`
	Collections int       `json:"collections"`
	Orders      int       `json:"orders"`
	At          time.Time `json:"at"`
}

// Topic implements Payload.
func (CatalogRefreshed) Topic() string { return TopicCatalogRefreshed }
