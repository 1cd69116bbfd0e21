// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

// Package experiment runs A/B tests over reorder settings with a simple
// multi-armed bandit traffic reallocation.
//
// Each experiment declares variants with traffic weights and a
// reranking.Settings bundle, a control variant, and a primary metric
// (conversion rate, average order value, or time on site). Eligibility is
// limited by segment and page lists and an optional expr-lang boolean
// expression over segment, page and session:
//
//	experiments:
//	  - id: subtlety
//	    control: balanced
//	    metric: conversion_rate
//	    pages: [collection, search]
//	    eligibility: 'segment != "new"'
//	    variants:
//	      - id: balanced
//	        weight: 0.5
//	        settings: {subtlety: balanced, personalization_strength: 1}
//	      - id: bold
//	        weight: 0.5
//	        settings: {subtlety: bold, personalization_strength: 1}
//
// A session is assigned on its first eligible request by a uniform draw
// over the cumulative weights. Assignments are sticky and persisted under
// ab_assignments:<session>. Completed experiments assign their winner.
//
// Record feeds interaction events into the assigned variants' counters.
// Reallocate periodically declares winners and nudges weights toward each
// variant's share of the summed metric. Results persist under ab_results
// and are restored by Open.
package experiment
