// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

func TestBus_TypedDelivery(t *testing.T) {
	bus := NewBus(DefaultConfig(), zerolog.Nop())
	defer func() { _ = bus.Close() }()

	got := make(chan BehaviorTracked, 1)
	err := Subscribe(bus, "test", func(_ context.Context, e BehaviorTracked) error {
		got <- e
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	bus.Publish(context.Background(), BehaviorTracked{SessionID: "s1", ProductID: "p1", Kind: "cart_add", HighImpact: true})

	select {
	case e := <-got:
		if e.SessionID != "s1" || e.ProductID != "p1" || !e.HighImpact {
			t.Errorf("event = %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	bus := NewBus(DefaultConfig(), zerolog.Nop())
	defer func() { _ = bus.Close() }()

	scores := make(chan ScoresUpdated, 1)
	_ = Subscribe(bus, "scores", func(_ context.Context, e ScoresUpdated) error {
		scores <- e
		return nil
	})

	bus.Publish(context.Background(), CatalogRefreshed{Products: 3})
	bus.Publish(context.Background(), ScoresUpdated{SessionID: "s2", Products: 4})

	select {
	case e := <-scores:
		if e.SessionID != "s2" {
			t.Errorf("scores subscriber received %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scores event not delivered")
	}
}

func TestBus_HandlerErrorsAndBadPayloadsDoNotStopDelivery(t *testing.T) {
	bus := NewBus(DefaultConfig(), zerolog.Nop())
	defer func() { _ = bus.Close() }()

	got := make(chan string, 4)
	_ = Subscribe(bus, "flaky", func(_ context.Context, e VariantResolved) error {
		got <- e.VariantID
		if e.VariantID == "boom" {
			panic("boom")
		}
		return errors.New("ignored")
	})

	// A raw undecodable message on the same topic.
	_ = bus.pubsub.Publish(TopicVariantResolved, message.NewMessage(watermill.NewUUID(), []byte("{bad")))
	bus.Publish(context.Background(), VariantResolved{VariantID: "boom"})
	bus.Publish(context.Background(), VariantResolved{VariantID: "ok"})

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case v := <-got:
			seen[v] = true
		case <-time.After(2 * time.Second):
			t.Fatalf("deliveries = %v, want boom and ok", seen)
		}
	}
	if !seen["boom"] || !seen["ok"] {
		t.Errorf("deliveries = %v, want boom and ok", seen)
	}
}

func TestBus_CloseIsIdempotent(t *testing.T) {
	bus := NewBus(DefaultConfig(), zerolog.Nop())
	if err := bus.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	bus.Publish(context.Background(), ScoresUpdated{})
	if err := Subscribe(bus, "late", func(context.Context, ScoresUpdated) error { return nil }); err == nil {
		t.Error("Subscribe after Close should fail")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Publish(context.Background(), BehaviorTracked{})
	r.Publish(context.Background(), ExperimentCompleted{})

	topics := r.Topics()
	if len(topics) != 2 || topics[0] != TopicBehaviorTracked || topics[1] != TopicExperimentCompleted {
		t.Errorf("Topics() = %v", topics)
	}
	if len(r.Events()) != 2 {
		t.Errorf("Events() len = %d", len(r.Events()))
	}
}
