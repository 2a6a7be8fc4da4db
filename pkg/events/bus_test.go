package events

import (
	"context"
	"testing"
	"time"
)

func TestBus_DeliversToSubscribers(t *testing.T) {
	b := NewBus(nil)
	ch := b.Subscribe("thing.created")

	b.Publish(context.Background(), "thing.created", 42)

	select {
	case env := <-ch:
		if env.Event != "thing.created" {
			t.Errorf("Event = %q, want %q", env.Event, "thing.created")
		}
		if env.Payload != 42 {
			t.Errorf("Payload = %v, want 42", env.Payload)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_SubscriptionFiltersByName(t *testing.T) {
	b := NewBus(nil)
	ch := b.Subscribe("thing.created")

	b.Publish(context.Background(), "thing.deleted", nil)

	select {
	case env := <-ch:
		t.Errorf("received unsubscribed event %q", env.Event)
	default:
	}
}

func TestBus_FanOut(t *testing.T) {
	b := NewBus(nil)
	first := b.Subscribe("thing.created")
	second := b.Subscribe("thing.created", "thing.deleted")

	b.Publish(context.Background(), "thing.created", nil)

	for i, ch := range []<-chan Envelope{first, second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d did not receive the event", i)
		}
	}
}

func TestBus_FullSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBus(nil)
	b.Subscribe("thing.created")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer+10; i++ {
			b.Publish(context.Background(), "thing.created", i)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}
