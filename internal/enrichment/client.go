// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package enrichment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/shopsense/internal/metrics"
	"github.com/tomtom215/shopsense/internal/validation"
)

// errInvalid marks a response that decoded but failed validation.
var errInvalid = errors.New("invalid enrichment response")

// Client calls the enrichment endpoints. All methods are safe for
// concurrent use and safe on a nil receiver.
type Client struct {
	cfg      Config
	http     *http.Client
	breakers map[Endpoint]*gobreaker.CircuitBreaker[[]byte]
	logger   zerolog.Logger
}

// New creates a client. A nil httpClient uses a client without its own
// timeout; Config.Timeout bounds every call through the request context.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, httpClient *http.Client, logger zerolog.Logger) *Client {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = def.MaxResponseBytes
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		cfg:      cfg,
		http:     httpClient,
		breakers: make(map[Endpoint]*gobreaker.CircuitBreaker[[]byte], len(Endpoints)),
		logger:   logger.With().Str("component", "enrichment").Logger(),
	}
	for _, ep := range Endpoints {
		c.breakers[ep] = c.newBreaker(ep)
	}
	return c
}

func (c *Client) newBreaker(ep Endpoint) *gobreaker.CircuitBreaker[[]byte] {
	name := "enrichment-" + string(ep)
	metrics.SetCircuitBreakerState(name, 0)

	return gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     c.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("enrichment circuit breaker state change")
			metrics.SetCircuitBreakerState(name, stateValue(to))
		},
	})
}

// stateValue maps breaker states to the gauge values 0 closed, 1 half-open, 2 open.
func stateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// Enabled reports whether ep has a URL configured.
func (c *Client) Enabled(ep Endpoint) bool {
	return c != nil && c.cfg.url(ep) != ""
}

// BreakerState returns the current breaker state of ep.
func (c *Client) BreakerState(ep Endpoint) gobreaker.State {
	if c == nil {
		return gobreaker.StateClosed
	}
	if cb, ok := c.breakers[ep]; ok {
		return cb.State()
	}
	return gobreaker.StateClosed
}

// Sentiment returns the product's sentiment score in [-1, 1].
func (c *Client) Sentiment(ctx context.Context, productID string) (float64, bool) {
	resp, ok := invoke[sentimentResponse](ctx, c, EndpointSentiment, sentimentRequest{ProductID: productID})
	if !ok {
		return 0, false
	}
	return *resp.Score, true
}

// Segment classifies a session as new, returning, loyal or high-value.
func (c *Client) Segment(ctx context.Context, sessionID string, interactions []Interaction) (string, bool) {
	resp, ok := invoke[segmentResponse](ctx, c, EndpointSegmentation, segmentRequest{SessionID: sessionID, Interactions: interactions})
	if !ok {
		return "", false
	}
	return resp.Segment, true
}

// Forecast returns demand forecasts in [0, 1] keyed by product id.
// Products missing from the response have no forecast.
func (c *Client) Forecast(ctx context.Context, productIDs []string) (map[string]float64, bool) {
	if len(productIDs) == 0 {
		return nil, false
	}
	resp, ok := invoke[forecastResponse](ctx, c, EndpointForecast, forecastRequest{ProductIDs: productIDs})
	if !ok {
		return nil, false
	}
	return resp.Forecasts, true
}

// Pattern classifies a session's behavior and returns per-product purchase
// probabilities.
func (c *Client) Pattern(ctx context.Context, sessionID string, interactions []Interaction) (Pattern, bool) {
	return invoke[Pattern](ctx, c, EndpointPattern, patternRequest{SessionID: sessionID, Interactions: interactions})
}

// invoke runs one breaker-guarded call and decodes the response into T.
func invoke[T any](ctx context.Context, c *Client, ep Endpoint, req any) (T, bool) {
	var out T
	if !c.Enabled(ep) {
		metrics.RecordEnrichmentCall(string(ep), "disabled")
		return out, false
	}

	_, err := c.breakers[ep].Execute(func() ([]byte, error) {
		body, err := c.post(ctx, c.cfg.url(ep), req)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", ep, err)
		}
		if verr := validation.ValidateStruct(&out); verr != nil {
			return nil, fmt.Errorf("%w from %s: %s", errInvalid, ep, verr.Error())
		}
		return body, nil
	})

	switch {
	case err == nil:
		metrics.RecordEnrichmentCall(string(ep), "success")
		return out, true
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordEnrichmentCall(string(ep), "rejected")
	case errors.Is(err, errInvalid):
		metrics.RecordEnrichmentCall(string(ep), "invalid")
		c.logger.Debug().Err(err).Str("endpoint", string(ep)).Msg("enrichment response rejected, using fallback")
	default:
		metrics.RecordEnrichmentCall(string(ep), "failure")
		c.logger.Debug().Err(err).Str("endpoint", string(ep)).Msg("enrichment call failed, using fallback")
	}
	var zero T
	return zero, false
}

// post sends req as JSON and returns the 2xx response body.
func (c *Client) post(ctx context.Context, url string, req any) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("post %s: status %d", url, resp.StatusCode)
	}
	return body, nil
}
