// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package experiment

import (
	"time"

	"github.com/tomtom215/shopsense/internal/recommend/reranking"
)

// Metric is an experiment's primary metric.
type Metric string

// Primary metrics.
const (
	MetricConversionRate    Metric = "conversion_rate"
	MetricAverageOrderValue Metric = "average_order_value"
	MetricTimeOnSite        Metric = "time_on_site"
)

// Status is an experiment's lifecycle state.
type Status string

// Experiment states.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
)

// VariantDefinition is one arm of an experiment.
type VariantDefinition struct {
	ID       string             `koanf:"id" json:"id" validate:"required,max=64"`
	Weight   float64            `koanf:"weight" json:"weight" validate:"gte=0"`
	Settings reranking.Settings `koanf:"settings" json:"settings"`
}

// Definition declares an experiment.
type Definition struct {
	ID       string              `koanf:"id" json:"id" validate:"required,max=64"`
	Name     string              `koanf:"name" json:"name"`
	Control  string              `koanf:"control" json:"control" validate:"required"`
	Metric   Metric              `koanf:"metric" json:"metric" validate:"required,oneof=conversion_rate average_order_value time_on_site"`
	Variants []VariantDefinition `koanf:"variants" json:"variants" validate:"min=2,dive"`

	// Segments and Pages restrict eligibility. Empty allows all.
	Segments []string `koanf:"segments" json:"segments,omitempty" validate:"dive,oneof=new returning loyal high-value"`
	Pages    []string `koanf:"pages" json:"pages,omitempty" validate:"dive,page_context"`

	// Eligibility is an optional boolean expression over segment, page and
	// session.
	Eligibility string `koanf:"eligibility" json:"eligibility,omitempty"`

	// MinSamples is the impressions both the leader and the control need
	// before a winner can be declared.
	MinSamples int64 `koanf:"min_samples" json:"min_samples" validate:"gte=1"`

	// Threshold is the relative lift over control that declares a winner.
	Threshold float64 `koanf:"threshold" json:"threshold" validate:"gt=0"`
}

// VariantStats are the performance counters of one variant.
// AverageOrderValue is the mean over the ValuedOrders conversions that
// carried an order value.
type VariantStats struct {
	ID                string        `json:"id"`
	Weight            float64       `json:"weight"`
	Impressions       int64         `json:"impressions"`
	Conversions       int64         `json:"conversions"`
	ConversionRate    float64       `json:"conversion_rate"`
	AverageOrderValue float64       `json:"average_order_value"`
	ValuedOrders      int64         `json:"valued_orders"`
	TimeOnSite        time.Duration `json:"time_on_site"`
	Engagements       int64         `json:"engagements"`
}

// Value returns the variant's value of m.
func (s VariantStats) Value(m Metric) float64 {
	switch m {
	case MetricAverageOrderValue:
		return s.AverageOrderValue
	case MetricTimeOnSite:
		return s.TimeOnSite.Seconds()
	default:
		return s.ConversionRate
	}
}

// Snapshot is the observable state of one experiment.
type Snapshot struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Metric      Metric         `json:"metric"`
	Control     string         `json:"control"`
	Status      Status         `json:"status"`
	Winner      string         `json:"winner,omitempty"`
	Lift        float64        `json:"lift,omitempty"`
	CompletedAt time.Time      `json:"completed_at,omitempty"`
	Variants    []VariantStats `json:"variants"`
}
