package bus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/webitel/actorhost/internal/domain/handle"
)

func TestPublishLifecycleDeliversToSubscriber(t *testing.T) {
	b := New(watermill.NopLogger{})
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, TopicRegistered)
	if err != nil {
		t.Fatal(err)
	}

	want := LifecycleEvent{Handle: handle.Handle(7), Module: "echo", At: time.Now()}
	if err := b.PublishLifecycle(TopicRegistered, want); err != nil {
		t.Fatal(err)
	}

	select {
	case m := <-msgs:
		m.Ack()
		if string(m.Payload) == "" {
			t.Fatal("expected a non-empty payload")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the published lifecycle event")
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New(watermill.NopLogger{})
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
	if err := b.PublishLifecycle(TopicReleased, LifecycleEvent{}); err == nil {
		t.Fatal("expected publishing after Close to fail")
	}
}
