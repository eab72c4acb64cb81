// Package bus is the runtime's internal lifecycle event bus: service
// registered/released and dead-letter notifications, published over
// watermill's in-memory gochannel transport to whoever calls Subscribe
// (neither the log service nor the admin inspector subscribes). It is
// deliberately restricted to
// gochannel — no AMQP, no network broker — because the runtime is a
// single process (spec.md §1 Non-goals).
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/webitel/actorhost/internal/domain/handle"
)

const (
	TopicRegistered = "service.registered"
	TopicReleased   = "service.released"
	TopicDeadLetter = "message.deadletter"
)

// LifecycleEvent is the payload published on TopicRegistered/TopicReleased.
type LifecycleEvent struct {
	Handle handle.Handle `json:"handle"`
	Module string        `json:"module,omitempty"`
	At     time.Time     `json:"at"`
}

// Bus wraps a watermill gochannel pub/sub pair.
type Bus struct {
	pubsub *gochannel.GoChannel
}

// New creates an in-memory bus. logger fans watermill's own diagnostics
// into the runtime's logger via the watermill.LoggerAdapter interface.
func New(logger watermill.LoggerAdapter) *Bus {
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
			Persistent:          false,
		}, logger),
	}
}

// PublishLifecycle publishes a LifecycleEvent to topic.
func (b *Bus) PublishLifecycle(topic string, ev LifecycleEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.pubsub.Publish(topic, message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe returns the channel of messages published to topic.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close releases the underlying pub/sub.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
