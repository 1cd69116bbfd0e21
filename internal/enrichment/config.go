// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package enrichment

import "time"

// Config configures the enrichment client. Empty URLs disable endpoints.
type Config struct {
	SentimentURL    string `koanf:"sentiment_url" validate:"omitempty,url"`
	SegmentationURL string `koanf:"segmentation_url" validate:"omitempty,url"`
	ForecastURL     string `koanf:"forecast_url" validate:"omitempty,url"`
	PatternURL      string `koanf:"pattern_url" validate:"omitempty,url"`

	// Timeout bounds each call, including reading the body.
	Timeout time.Duration `koanf:"timeout"`

	// BreakerFailures is the consecutive failure count that opens an
	// endpoint's breaker.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerCooldown is how long an open breaker rejects calls before
	// letting a trial request through.
	BreakerCooldown time.Duration `koanf:"breaker_cooldown"`

	// MaxResponseBytes caps the response body size.
	MaxResponseBytes int64 `koanf:"max_response_bytes"`
}

// DefaultConfig returns a config with every endpoint disabled.
func DefaultConfig() Config {
	return Config{
		Timeout:          800 * time.Millisecond,
		BreakerFailures:  5,
		BreakerCooldown:  30 * time.Second,
		MaxResponseBytes: 1 << 20,
	}
}

func (c Config) url(ep Endpoint) string {
	switch ep {
	case EndpointSentiment:
		return c.SentimentURL
	case EndpointSegmentation:
		return c.SegmentationURL
	case EndpointForecast:
		return c.ForecastURL
	case EndpointPattern:
		return c.PatternURL
	}
	return ""
}
