// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package reranking

import (
	"github.com/tomtom215/shopsense/internal/recommend"
	"github.com/tomtom215/shopsense/internal/validation"
)

func init() {
	validation.RegisterEnum("subtlety_mode", string(SubtletySubtle), string(SubtletyBalanced), string(SubtletyBold))
}

// Subtlety is the global mode bounding how far reordering may move a list.
type Subtlety string

// Global subtlety modes.
const (
	SubtletySubtle   Subtlety = "subtle"
	SubtletyBalanced Subtlety = "balanced"
	SubtletyBold     Subtlety = "bold"
)

// Multiplier returns the mode's blend multiplier. Unknown modes act as
// balanced.
func (s Subtlety) Multiplier() float64 {
	switch s {
	case SubtletySubtle:
		return 0.4
	case SubtletyBold:
		return 1.0
	default:
		return 0.7
	}
}

// Valid reports whether s is a known mode.
func (s Subtlety) Valid() bool {
	return s == SubtletySubtle || s == SubtletyBalanced || s == SubtletyBold
}

// Class is a strategy's own subtlety classification.
type Class string

// Strategy classes.
const (
	ClassSubtle     Class = "subtle"
	ClassModerate   Class = "moderate"
	ClassAggressive Class = "aggressive"
)

// Multiplier returns the class's blend multiplier.
func (c Class) Multiplier() float64 {
	switch c {
	case ClassSubtle:
		return 0.5
	case ClassModerate:
		return 0.75
	default:
		return 1.0
	}
}

// Segment is a coarse shopper classification.
type Segment string

// Segments.
const (
	SegmentNew       Segment = "new"
	SegmentReturning Segment = "returning"
	SegmentLoyal     Segment = "loyal"
	SegmentHighValue Segment = "high-value"
)

// Valid reports whether s is a known segment.
func (s Segment) Valid() bool {
	switch s {
	case SegmentNew, SegmentReturning, SegmentLoyal, SegmentHighValue:
		return true
	}
	return false
}

// Settings is the reorder configuration a session runs with. Experiment
// variants carry one each.
type Settings struct {
	// Subtlety is the global mode.
	Subtlety Subtlety `koanf:"subtlety" json:"subtlety" validate:"required,subtlety_mode"`

	// Strategies lists the enabled strategy names. Empty enables all.
	Strategies []string `koanf:"strategies" json:"strategies,omitempty" validate:"dive,oneof=personalization urgency inventory margin trending cross_sell"`

	// PersonalizationStrength scales the personalization strategy's weight.
	PersonalizationStrength float64 `koanf:"personalization_strength" json:"personalization_strength" validate:"gte=0,lte=1"`
}

// Enabled reports whether the named strategy is enabled.
func (s Settings) Enabled(name string) bool {
	if len(s.Strategies) == 0 {
		return true
	}
	for _, n := range s.Strategies {
		if n == name {
			return true
		}
	}
	return false
}

// Variant is an experiment variant resolved for a session.
type Variant struct {
	ExperimentID string
	VariantID    string
	Settings     Settings
}

// Request asks for a product list to be reordered.
type Request struct {
	SessionID  string         `json:"session_id" validate:"required,max=128"`
	Page       recommend.Page `json:"page,omitempty" validate:"omitempty,page_context"`
	ProductIDs []string       `json:"product_ids" validate:"required,min=1,max=500,dive,required,max=128"`
}

// Applied describes one strategy's pass over the list.
type Applied struct {
	Strategy     string  `json:"strategy"`
	Class        Class   `json:"class"`
	Weight       float64 `json:"weight"`
	FromProposed int     `json:"from_proposed"`
}

// Result is a reordered list with the decisions that produced it.
type Result struct {
	SessionID    string    `json:"session_id"`
	Page         string    `json:"page,omitempty"`
	ProductIDs   []string  `json:"product_ids"`
	Segment      Segment   `json:"segment"`
	Settings     Settings  `json:"settings"`
	ExperimentID string    `json:"experiment_id,omitempty"`
	VariantID    string    `json:"variant_id,omitempty"`
	Applied      []Applied `json:"applied"`
}
