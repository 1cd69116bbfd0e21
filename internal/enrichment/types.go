// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package enrichment

import "time"

// Endpoint names one enrichment service.
type Endpoint string

// Enrichment endpoints.
const (
	EndpointSentiment    Endpoint = "sentiment"
	EndpointSegmentation Endpoint = "segmentation"
	EndpointForecast     Endpoint = "demand_forecast"
	EndpointPattern      Endpoint = "behavior_pattern"
)

// Endpoints lists every endpoint.
var Endpoints = []Endpoint{EndpointSentiment, EndpointSegmentation, EndpointForecast, EndpointPattern}

// Interaction is one behavior signal sent to the session endpoints.
type Interaction struct {
	ProductID  string    `json:"product_id"`
	Kind       string    `json:"kind"`
	Score      float64   `json:"score"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"timestamp"`
}

type sentimentRequest struct {
	ProductID string `json:"product_id"`
}

type sentimentResponse struct {
	Score *float64 `json:"score" validate:"required,gte=-1,lte=1"`
}

type segmentRequest struct {
	SessionID    string        `json:"session_id"`
	Interactions []Interaction `json:"interactions"`
}

type segmentResponse struct {
	Segment string `json:"segment" validate:"required,oneof=new returning loyal high-value"`
}

type forecastRequest struct {
	ProductIDs []string `json:"product_ids"`
}

type forecastResponse struct {
	Forecasts map[string]float64 `json:"forecasts" validate:"required,dive,keys,required,endkeys,gte=0,lte=1"`
}

type patternRequest struct {
	SessionID    string        `json:"session_id"`
	Interactions []Interaction `json:"interactions"`
}

// Pattern is a behavior-pattern classification.
type Pattern struct {
	Pattern             string             `json:"pattern" validate:"required,max=64"`
	PurchaseProbability map[string]float64 `json:"purchase_probability" validate:"dive,keys,required,endkeys,gte=0,lte=1"`
}
