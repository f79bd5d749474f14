// TimerBridge - DDR Duration to Graphics Timer Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/timerbridge

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/timerbridge/internal/logging"
	"github.com/tomtom215/timerbridge/internal/metrics"
	"github.com/tomtom215/timerbridge/internal/timersync"
)

// Topic carries every timer sync event.
const Topic = "timersync.events"

// Metadata keys set on each message.
const (
	MetadataEventType = "event_type"
	MetadataRunID     = "sync_run_id"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("events: bus closed")

// BusConfig tunes the bus.
type BusConfig struct {
	// OutputBuffer is the per-subscriber buffer of the gochannel pub/sub.
	OutputBuffer int64

	// CloseTimeout bounds how long the router waits for sinks on shutdown.
	CloseTimeout time.Duration

	RetryMaxRetries      int
	RetryInitialInterval time.Duration
}

// DefaultBusConfig returns defaults sized for a handful of operator consoles.
func DefaultBusConfig() BusConfig {
	return BusConfig{
		OutputBuffer:         256,
		CloseTimeout:         5 * time.Second,
		RetryMaxRetries:      2,
		RetryInitialInterval: 50 * time.Millisecond,
	}
}

// SinkFunc consumes one JSON encoded event.
type SinkFunc func(payload []byte) error

type sink struct {
	name string
	fn   SinkFunc
}

// Bus publishes engine events and delivers them to registered sinks.
type Bus struct {
	cfg    BusConfig
	logger watermill.LoggerAdapter
	pubsub *gochannel.GoChannel

	mu      sync.Mutex
	sinks   []sink
	running chan struct{} // closed when the current router is running
	closed  bool
}

var _ timersync.Publisher = (*Bus)(nil)

// NewBus creates a bus. A nil logger discards watermill output.
func NewBus(cfg BusConfig, logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.OutputBuffer <= 0 {
		cfg.OutputBuffer = DefaultBusConfig().OutputBuffer
	}
	if cfg.CloseTimeout <= 0 {
		cfg.CloseTimeout = DefaultBusConfig().CloseTimeout
	}

	return &Bus{
		cfg:    cfg,
		logger: logger,
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.OutputBuffer,
		}, logger),
		running: make(chan struct{}),
	}
}

// AddSink registers a consumer. Sinks added after Serve starts take effect
// on the next router run.
func (b *Bus) AddSink(name string, fn SinkFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink{name: name, fn: fn})
}

// Publish encodes ev and publishes it. It does not wait for sinks.
func (b *Bus) Publish(ctx context.Context, ev timersync.Event) error {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		return ErrClosed
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		return fmt.Errorf("encode event: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetadataEventType, string(ev.Type))
	if runID := logging.SyncRunIDFromContext(ctx); runID != "" {
		msg.Metadata.Set(MetadataRunID, runID)
	}

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		metrics.EventsPublished.WithLabelValues(string(ev.Type), "error").Inc()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	metrics.EventsPublished.WithLabelValues(string(ev.Type), "success").Inc()
	return nil
}

// Serve runs a router delivering events to every sink until ctx is
// canceled. It implements suture.Service; each run builds a fresh router
// over the same pub/sub.
func (b *Bus) Serve(ctx context.Context) error {
	b.mu.Lock()
	running := b.running
	sinks := append([]sink(nil), b.sinks...)
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = make(chan struct{})
		b.mu.Unlock()
	}()

	// A router with no handlers stops on its own.
	if len(sinks) == 0 {
		close(running)
		<-ctx.Done()
		return ctx.Err()
	}

	router, err := b.newRouter(sinks)
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			close(running)
		case <-ctx.Done():
		}
	}()

	err = router.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *Bus) String() string { return "event-bus" }

// Running returns a channel closed once the current router delivers
// messages.
func (b *Bus) Running() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Close shuts the pub/sub down. Publish fails afterwards.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.pubsub.Close()
}

func (b *Bus) newRouter(sinks []sink) (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: b.cfg.CloseTimeout}, b.logger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	// Outermost first: a sink that still fails after retries is logged and
	// acked, since gochannel redelivers nacked messages forever.
	router.AddMiddleware(b.ackOnFailure, middleware.Recoverer)
	if b.cfg.RetryMaxRetries > 0 {
		retry := middleware.Retry{
			MaxRetries:      b.cfg.RetryMaxRetries,
			InitialInterval: b.cfg.RetryInitialInterval,
			Logger:          b.logger,
		}
		router.AddMiddleware(retry.Middleware)
	}

	// One subscription per sink so every sink sees every event. The router
	// must not close the shared pub/sub when it stops.
	sub := keepOpen{b.pubsub}
	for _, s := range sinks {
		fn := s.fn
		router.AddConsumerHandler(s.name, Topic, sub, func(msg *message.Message) error {
			return fn(msg.Payload)
		})
	}
	return router, nil
}

func (b *Bus) ackOnFailure(h message.HandlerFunc) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		out, err := h(msg)
		if err != nil {
			b.logger.Error("dropping event after failed delivery", err, watermill.LogFields{
				"message_uuid": msg.UUID,
				"handler":      message.HandlerNameFromCtx(msg.Context()),
				"event_type":   msg.Metadata.Get(MetadataEventType),
			})
			return nil, nil
		}
		return out, nil
	}
}

// keepOpen hides Close from the router; subscriptions end with their
// context instead.
type keepOpen struct {
	message.Subscriber
}

func (keepOpen) Close() error { return nil }
