// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/websocket"
)

func TestStream_NotConfigured(t *testing.T) {
	f := newFixture()
	rec, env := do(t, testRouter(f), http.MethodGet, "/api/v1/sessions/s1/stream", "")
	if rec.Code != http.StatusNotImplemented || env.Error.Code != "STREAM_NOT_CONFIGURED" {
		t.Errorf("code = %d error = %+v", rec.Code, env.Error)
	}
}

func TestStream_ThroughMiddlewareStack(t *testing.T) {
	cfg := websocket.DefaultConfig()
	cfg.MaxClientsPerSession = 1
	hub := websocket.NewHub(cfg, []string{"*"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = hub.Serve(ctx) }()

	f := newFixture()
	f.handler.stream = hub
	srv := httptest.NewServer(testRouter(f))
	t.Cleanup(srv.Close)
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/sessions/"

	// Gzip-capable clients still get a clean upgrade.
	header := http.Header{"Accept-Encoding": []string{"gzip"}}
	conn, _, err := gorilla.DefaultDialer.Dial(base+"s1/stream", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.SessionClients("s1") != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	hub.Send("s1", websocket.MessageTypeScoresUpdated, map[string]int{"products": 3})
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != websocket.MessageTypeScoresUpdated {
		t.Errorf("message type = %s", msg.Type)
	}

	// The per-session cap answers with the JSON envelope.
	_, resp, err := gorilla.DefaultDialer.Dial(base+"s1/stream", nil)
	if err == nil {
		t.Fatal("second stream for s1 should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("refusal = %v, want 429", resp)
	}

	// Session IDs are validated before upgrading.
	_, resp, err = gorilla.DefaultDialer.Dial(base+strings.Repeat("x", 200)+"/stream", nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("oversized session id = %v, want 400", resp)
	}
}
