// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package validation provides struct validation using go-playground/validator v10.
//
// The package wraps a thread-safe singleton validator (built with
// WithRequiredStructEnabled) and translates field errors into the API's
// VALIDATION_ERROR format.
//
// # Domain vocabularies
//
// Packages that own a closed vocabulary register it as a tag from init:
//
//	func init() {
//	    validation.RegisterEnum("event_kind", kindNames()...)
//	}
//
// Request structs can then use the tag directly:
//
//	type trackRequest struct {
//	    SessionID string `validate:"required,max=128"`
//	    Kind      string `validate:"required,event_kind"`
//	}
//
// Registered tags: event_kind (behavior), page_context (recommend) and
// subtlety_mode (reranking).
//
// # Usage
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
package validation
