// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type testHub struct {
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
	done   chan error
}

func newTestHub(t *testing.T, cfg Config) *testHub {
	t.Helper()
	hub := NewHub(cfg, []string{"https://shop.example"}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Serve(ctx) }()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := hub.ServeSession(w, r, r.URL.Query().Get("session"))
		if errors.Is(err, ErrTooManyClients) {
			http.Error(w, err.Error(), http.StatusTooManyRequests)
		}
	}))
	th := &testHub{hub: hub, server: srv, cancel: cancel, done: done}
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return th
}

func (th *testHub) dial(t *testing.T, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/?session=" + session
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", session, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHub_SendTargetsSession(t *testing.T) {
	th := newTestHub(t, DefaultConfig())
	a1 := th.dial(t, "s1")
	a2 := th.dial(t, "s1")
	b := th.dial(t, "s2")
	waitFor(t, "three clients", func() bool { return th.hub.ClientCount() == 3 })

	if got := th.hub.SessionClients("s1"); got != 2 {
		t.Errorf("SessionClients(s1) = %d, want 2", got)
	}

	th.hub.Send("s1", MessageTypeScoresUpdated, map[string]int{"products": 3})
	th.hub.Broadcast(MessageTypeCatalogRefreshed, map[string]int{"products": 120})

	for name, conn := range map[string]*websocket.Conn{"a1": a1, "a2": a2} {
		if msg := readMessage(t, conn); msg.Type != MessageTypeScoresUpdated {
			t.Errorf("%s first message = %s, want %s", name, msg.Type, MessageTypeScoresUpdated)
		}
		if msg := readMessage(t, conn); msg.Type != MessageTypeCatalogRefreshed {
			t.Errorf("%s second message = %s, want %s", name, msg.Type, MessageTypeCatalogRefreshed)
		}
	}
	if msg := readMessage(t, b); msg.Type != MessageTypeCatalogRefreshed {
		t.Errorf("s2 first message = %s, want only the broadcast", msg.Type)
	}
}

func TestHub_PingPong(t *testing.T) {
	th := newTestHub(t, DefaultConfig())
	conn := th.dial(t, "s1")
	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	if msg := readMessage(t, conn); msg.Type != MessageTypePong {
		t.Errorf("reply = %s, want pong", msg.Type)
	}
}

func TestHub_SessionCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxClientsPerSession = 1
	th := newTestHub(t, cfg)
	th.dial(t, "s1")
	waitFor(t, "first client", func() bool { return th.hub.SessionClients("s1") == 1 })

	url := "ws" + strings.TrimPrefix(th.server.URL, "http") + "/?session=s1"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second connection should be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("refusal response = %v, want 429", resp)
	}

	// Another session is unaffected.
	th.dial(t, "s2")
}

func TestHub_DisconnectedClientIsRemoved(t *testing.T) {
	th := newTestHub(t, DefaultConfig())
	conn := th.dial(t, "s1")
	waitFor(t, "client", func() bool { return th.hub.ClientCount() == 1 })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()
	waitFor(t, "client removal", func() bool { return th.hub.ClientCount() == 0 })
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	th := newTestHub(t, DefaultConfig())
	conn := th.dial(t, "s1")
	waitFor(t, "client", func() bool { return th.hub.ClientCount() == 1 })

	th.cancel()
	select {
	case err := <-th.done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("read after shutdown = %v, want normal close", err)
	}
	if th.hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after shutdown", th.hub.ClientCount())
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := NewHub(DefaultConfig(), nil, zerolog.Nop())
	slow := &Client{id: 1, session: "s1", hub: hub, send: make(chan Message, 1), logger: zerolog.Nop()}
	hub.registerClient(slow)

	hub.deliver(outbound{session: "s1", msg: Message{Type: MessageTypeScoresUpdated}})
	if hub.ClientCount() != 1 {
		t.Fatal("client dropped while its queue had room")
	}
	hub.deliver(outbound{session: "s1", msg: Message{Type: MessageTypeScoresUpdated}})
	if hub.ClientCount() != 0 {
		t.Error("client with a full queue should be dropped")
	}

	<-slow.send
	if _, ok := <-slow.send; ok {
		t.Error("dropped client's queue should be closed")
	}

	// A late unregister from the read pump is harmless.
	hub.unregisterClient(slow)
}

func TestHub_SendWithoutSessionIsIgnored(t *testing.T) {
	hub := NewHub(DefaultConfig(), nil, zerolog.Nop())
	hub.Send("", MessageTypeScoresUpdated, nil)
	if len(hub.outbound) != 0 {
		t.Error("message without a session was queued")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin header", []string{"https://shop.example"}, "", true},
		{"listed origin", []string{"https://shop.example"}, "https://shop.example", true},
		{"case-insensitive", []string{"https://shop.example"}, "https://SHOP.example", true},
		{"unlisted origin", []string{"https://shop.example"}, "https://evil.example", false},
		{"wildcard", []string{"*"}, "https://anything.example", true},
		{"nothing allowed", nil, "https://shop.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(tt.allowed)(r); got != tt.want {
				t.Errorf("checkOrigin = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unlimited clients", func(c *Config) { c.MaxClientsPerSession = 0 }, false},
		{"zero send buffer", func(c *Config) { c.SendBuffer = 0 }, true},
		{"zero outbound buffer", func(c *Config) { c.OutboundBuffer = 0 }, true},
		{"negative cap", func(c *Config) { c.MaxClientsPerSession = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
