// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package experiment

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/tomtom215/shopsense/internal/validation"
)

// Validate checks the definition's fields and that its eligibility
// expression compiles.
func (d Definition) Validate() error {
	if verr := validation.ValidateStruct(d); verr != nil {
		return fmt.Errorf("experiment %q: %w", d.ID, verr)
	}
	ids := make(map[string]bool, len(d.Variants))
	for _, v := range d.Variants {
		if ids[v.ID] {
			return fmt.Errorf("experiment %q: variant %q declared twice", d.ID, v.ID)
		}
		ids[v.ID] = true
	}
	if !ids[d.Control] {
		return fmt.Errorf("experiment %q: control %q is not a variant", d.ID, d.Control)
	}
	if _, err := compileEligibility(d.Eligibility); err != nil {
		return fmt.Errorf("experiment %q: %w", d.ID, err)
	}
	return nil
}

// eligibilityEnv is the environment an eligibility expression sees.
func eligibilityEnv(segment, page, session string) map[string]any {
	return map[string]any{
		"segment": segment,
		"page":    page,
		"session": session,
	}
}

// compileEligibility compiles a boolean expression. An empty expression
// compiles to nil, which admits everyone.
func compileEligibility(src string) (*vm.Program, error) {
	if src == "" {
		return nil, nil
	}
	program, err := expr.Compile(src, expr.Env(eligibilityEnv("", "", "")), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile eligibility %q: %w", src, err)
	}
	return program, nil
}

// normalizeWeights scales weights to sum to 1. All-zero weights become
// equal.
func normalizeWeights(w []float64) {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		for i := range w {
			w[i] = 1 / float64(len(w))
		}
		return
	}
	for i := range w {
		w[i] /= sum
	}
}
