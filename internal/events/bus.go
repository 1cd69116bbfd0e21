// Shopsense - Storefront Personalization and Recommendation Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shopsense

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/shopsense/internal/logging"
	"github.com/tomtom215/shopsense/internal/metrics"
)

// Publisher accepts typed payloads. Publish never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, p Payload)
}

// Config tunes the bus.
type Config struct {
	// Buffer is the per-subscriber output channel size.
	Buffer int64 `koanf:"buffer"`
}

// DefaultConfig returns the default bus settings.
func DefaultConfig() Config {
	return Config{Buffer: 256}
}

// Bus is a Watermill GoChannel pub/sub carrying typed payloads.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewBus creates an open bus.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBus(cfg Config, logger zerolog.Logger) *Bus {
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultConfig().Buffer
	}
	logger = logger.With().Str("component", "events").Logger()
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{
		pubsub: gochannel.NewGoChannel(
			gochannel.Config{OutputChannelBuffer: cfg.Buffer},
			logging.NewWatermillAdapter(logger),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish encodes p and sends it on its topic. Failures are logged.
func (b *Bus) Publish(ctx context.Context, p Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	data, err := json.Marshal(p)
	if err != nil {
		b.logger.Warn().Err(err).Str("topic", p.Topic()).Msg("encode event failed")
		return
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	if err := b.pubsub.Publish(p.Topic(), msg); err != nil {
		b.logger.Warn().Err(err).Str("topic", p.Topic()).Msg("publish event failed")
		return
	}
	metrics.RecordEventPublished(p.Topic())
}

// Subscribe registers fn for T's topic. Messages that fail to decode are
// logged and dropped; handler errors and panics are logged. name labels the
// subscriber in logs.
func Subscribe[T Payload](b *Bus, name string, fn func(ctx context.Context, event T) error) error {
	var zero T
	topic := zero.Topic()

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return fmt.Errorf("subscribe %s to %s: bus closed", name, topic)
	}

	ch, err := b.pubsub.Subscribe(b.ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s to %s: %w", name, topic, err)
	}

	logger := b.logger.With().Str("topic", topic).Str("subscriber", name).Logger()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range ch {
			deliver(b.ctx, logger, topic, msg, fn)
		}
	}()
	return nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func deliver[T Payload](ctx context.Context, logger zerolog.Logger, topic string, msg *message.Message, fn func(context.Context, T) error) {
	defer msg.Ack()

	var event T
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable event")
		metrics.RecordEventHandled(topic, err)
		return
	}

	if id := msg.Metadata.Get("correlation_id"); id != "" {
		ctx = logging.ContextWithCorrelationID(ctx, id)
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()
		return fn(ctx, event)
	}()
	if err != nil {
		logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("event handler failed")
	}
	metrics.RecordEventHandled(topic, err)
}

// Close stops delivery and waits for subscriber goroutines to exit.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	err := b.pubsub.Close()
	b.wg.Wait()
	if err != nil {
		return fmt.Errorf("close event bus: %w", err)
	}
	return nil
}

// Discard is a Publisher that drops everything.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, Payload) {}

// Recorder is a Publisher that keeps payloads in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Payload
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, p Payload) {
	r.mu.Lock()
	r.events = append(r.events, p)
	r.mu.Unlock()
}

// Events returns a copy of the recorded payloads.
func (r *Recorder) Events() []Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Payload(nil), r.events...)
}

// Topics returns the topics of the recorded payloads in order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Topic()
	}
	return out
}
