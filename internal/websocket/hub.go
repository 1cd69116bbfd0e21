// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/metrics"
)

// Message types pushed to storefront clients.
const (
	MessageTypeScoresUpdated       = "scores_updated"
	MessageTypeVariantAssigned     = "variant_assigned"
	MessageTypeCatalogRefreshed    = "catalog_refreshed"
	MessageTypeExperimentCompleted = "experiment_completed"
	MessageTypePing                = "ping"
	MessageTypePong                = "pong"
)

// Message is one frame on the wire.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ErrTooManyClients is returned when a session is at its connection cap.
var ErrTooManyClients = errors.New("websocket: too many connections for session")

// Config bounds the hub.
type Config struct {
	// SendBuffer is the per-client queue. A client whose queue is full is
	// disconnected rather than slowing the hub.
	SendBuffer int `koanf:"send_buffer"`

	// OutboundBuffer queues messages waiting for the hub loop.
	OutboundBuffer int `koanf:"outbound_buffer"`

	// MaxClientsPerSession caps concurrent connections per session. Zero
	// means unlimited.
	MaxClientsPerSession int `koanf:"max_clients_per_session"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		SendBuffer:           32,
		OutboundBuffer:       1024,
		MaxClientsPerSession: 4,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.SendBuffer < 1 || c.OutboundBuffer < 1 {
		return fmt.Errorf("stream send_buffer and outbound_buffer must be positive")
	}
	if c.MaxClientsPerSession < 0 {
		return fmt.Errorf("stream max_clients_per_session must not be negative, got %d", c.MaxClientsPerSession)
	}
	return nil
}

// outbound is a queued message; an empty session broadcasts.
type outbound struct {
	session string
	msg     Message
}

// Hub fans out live personalization updates to the websocket clients of
// each session. It runs as a suture service.
type Hub struct {
	config   Config
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	outbound chan outbound

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	total   int
}

// NewHub creates a hub accepting upgrades from allowedOrigins. "*" allows
// any origin; requests without an Origin header are always accepted.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHub(cfg Config, allowedOrigins []string, logger zerolog.Logger) *Hub {
	def := DefaultConfig()
	if cfg.SendBuffer < 1 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.OutboundBuffer < 1 {
		cfg.OutboundBuffer = def.OutboundBuffer
	}
	return &Hub{
		config: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		logger:   logger.With().Str("component", "websocket-hub").Logger(),
		outbound: make(chan outbound, cfg.OutboundBuffer),
		clients:  make(map[string]map[*Client]struct{}),
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Serve delivers queued messages until ctx ends, then disconnects every
// client. It implements suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	h.logger.Info().Msg("websocket hub started")
	for {
		// Shutdown takes priority over pending deliveries.
		select {
		case <-ctx.Done():
			n := h.closeAll()
			h.logger.Info().Int("clients_closed", n).Msg("websocket hub stopped")
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			n := h.closeAll()
			h.logger.Info().Int("clients_closed", n).Msg("websocket hub stopped")
			return ctx.Err()
		case out := <-h.outbound:
			h.deliver(out)
		}
	}
}

// String names the service in supervisor logs.
func (h *Hub) String() string {
	return "websocket-hub"
}

// ServeSession upgrades r and subscribes the connection to session. It
// returns ErrTooManyClients before upgrading when the session is at its
// cap. Any other error means the upgrade failed and the upgrader has
// already answered the request.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, session string) error {
	if limit := h.config.MaxClientsPerSession; limit > 0 && h.SessionClients(session) >= limit {
		return ErrTooManyClients
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade: %w", err)
	}
	c := newClient(h, conn, session, h.config.SendBuffer)
	h.registerClient(c)
	c.start()
	return nil
}

func (h *Hub) registerClient(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.session]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.session] = set
	}
	set[c] = struct{}{}
	h.total++
	total := h.total
	h.mu.Unlock()

	metrics.StreamClients.Set(float64(total))
	c.logger.Debug().Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) unregisterClient(c *Client) {
	h.mu.Lock()
	removed := h.removeLocked(c)
	total := h.total
	h.mu.Unlock()

	if removed {
		metrics.StreamClients.Set(float64(total))
		c.logger.Debug().Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// removeLocked drops c and closes its queue. It reports false when c was
// already gone. Must be called with mu held.
func (h *Hub) removeLocked(c *Client) bool {
	set, ok := h.clients[c.session]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
	close(c.send)
	h.total--
	return true
}

// reply queues msg for c alone while it is still registered.
func (h *Hub) reply(c *Client, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.session][c]; !ok {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// Send queues a message for every client of session.
func (h *Hub) Send(session, msgType string, data any) {
	if session == "" {
		return
	}
	h.enqueue(outbound{session: session, msg: Message{Type: msgType, Data: data}})
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msgType string, data any) {
	h.enqueue(outbound{msg: Message{Type: msgType, Data: data}})
}

func (h *Hub) enqueue(out outbound) {
	select {
	case h.outbound <- out:
	default:
		h.logger.Warn().Str("message_type", out.msg.Type).Msg("outbound queue full, dropping message")
	}
}

// deliver hands msg to its targets in client order. Clients whose queue
// is full are disconnected.
func (h *Hub) deliver(out outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var targets []*Client
	if out.session == "" {
		for _, set := range h.clients {
			for c := range set {
				targets = append(targets, c)
			}
		}
	} else {
		for c := range h.clients[out.session] {
			targets = append(targets, c)
		}
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].id < targets[j].id })

	dropped := 0
	for _, c := range targets {
		select {
		case c.send <- out.msg:
		default:
			h.removeLocked(c)
			dropped++
		}
	}
	if dropped > 0 {
		metrics.StreamClients.Set(float64(h.total))
		h.logger.Warn().Int("dropped", dropped).Str("message_type", out.msg.Type).Msg("disconnected slow websocket clients")
	}
}

// closeAll disconnects every client and returns how many there were.
func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.total
	for _, set := range h.clients {
		for c := range set {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*Client]struct{})
	h.total = 0
	metrics.StreamClients.Set(0)
	return n
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// SessionClients returns the number of clients connected for session.
func (h *Hub) SessionClients(session string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[session])
}
