// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/metrics"
)

// HTTPConfig configures HTTPSource.
type HTTPConfig struct {
	BaseURL        string        `koanf:"base_url" validate:"omitempty,url"`
	Timeout        time.Duration `koanf:"timeout"`
	MaxRetries     uint          `koanf:"max_retries"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
}

// DefaultHTTPConfig returns conservative retry settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		Timeout:        5 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// HTTPSource reads catalog data and mutates carts through a JSON API:
//
//	GET  {base}/products
//	GET  {base}/collections
//	GET  {base}/orders
//	GET  {base}/carts/{session}
//	POST {base}/carts/{session}/add     {"product_id","quantity"}
//	POST {base}/carts/{session}/remove  {"product_id"}
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
	logger zerolog.Logger
}

// NewHTTPSource creates an HTTP-backed source.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHTTPSource(cfg HTTPConfig, client *http.Client, logger zerolog.Logger) *HTTPSource {
	def := DefaultHTTPConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTPSource{
		cfg:    cfg,
		client: client,
		logger: logger.With().Str("component", "catalog-http").Logger(),
	}
}

// Fetch implements Source. Orders are optional: a failed orders read is
// logged and yields an empty history.
func (h *HTTPSource) Fetch(ctx context.Context) (Data, error) {
	var d Data
	if err := h.do(ctx, "products", http.MethodGet, "/products", nil, &d.Products); err != nil {
		return Data{}, err
	}
	if err := h.do(ctx, "collections", http.MethodGet, "/collections", nil, &d.Collections); err != nil {
		return Data{}, err
	}
	if err := h.do(ctx, "orders", http.MethodGet, "/orders", nil, &d.Orders); err != nil {
		h.logger.Warn().Err(err).Msg("order history unavailable, continuing without it")
		d.Orders = nil
	}
	return d, nil
}

// Cart implements CartSource.
func (h *HTTPSource) Cart(ctx context.Context, sessionID string) (CartState, error) {
	var c CartState
	if err := h.do(ctx, "cart", http.MethodGet, "/carts/"+url.PathEscape(sessionID), nil, &c); err != nil {
		return CartState{}, fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	return c, nil
}

// AddToCart implements CartSource.
func (h *HTTPSource) AddToCart(ctx context.Context, sessionID, productID string, quantity int) (CartState, error) {
	body := map[string]any{"product_id": productID, "quantity": Count(quantity)}
	var c CartState
	if err := h.do(ctx, "cart_add", http.MethodPost, "/carts/"+url.PathEscape(sessionID)+"/add", body, &c); err != nil {
		return CartState{}, fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	return c, nil
}

// RemoveFromCart implements CartSource.
func (h *HTTPSource) RemoveFromCart(ctx context.Context, sessionID, productID string) (CartState, error) {
	body := map[string]any{"product_id": productID}
	var c CartState
	if err := h.do(ctx, "cart_remove", http.MethodPost, "/carts/"+url.PathEscape(sessionID)+"/remove", body, &c); err != nil {
		return CartState{}, fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	return c, nil
}

// statusError is a non-2xx response.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

// do performs one logical call with bounded retries. 4xx responses other
// than 408 and 429 are not retried.
func (h *HTTPSource) do(ctx context.Context, op, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = h.cfg.InitialBackoff
	eb.MaxInterval = h.cfg.MaxBackoff

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := h.once(ctx, method, path, payload, out)
		var se *statusError
		if errors.As(err, &se) && se.status >= 400 && se.status < 500 &&
			se.status != http.StatusRequestTimeout && se.status != http.StatusTooManyRequests {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(h.cfg.MaxRetries),
		backoff.WithNotify(func(err error, next time.Duration) {
			h.logger.Debug().Err(err).Str("operation", op).Dur("retry_in", next).Msg("catalog call failed, retrying")
		}),
	)
	metrics.RecordCatalogFetch(op, attempts, err)
	if err != nil {
		return fmt.Errorf("%s after %d attempts: %w", op, attempts, err)
	}
	return nil
}

func (h *HTTPSource) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.cfg.BaseURL+path, reader)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &statusError{status: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
