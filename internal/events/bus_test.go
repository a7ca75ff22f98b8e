package events

import (
	"testing"
	"time"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus(8)
	ch, cancel := bus.Subscribe()
	defer cancel()

	bus.Publish(Event{Kind: KindProgress, RunID: "r1", Progress: 0.5})

	select {
	case ev := <-ch:
		if ev.Kind != KindProgress || ev.RunID != "r1" {
			t.Errorf("unexpected event: %+v", ev)
		}
		if ev.Timestamp.IsZero() {
			t.Error("timestamp should be stamped on publish")
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus(1)
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(Event{Kind: KindProgress})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if bus.Dropped() == 0 {
		t.Error("expected dropped events with buffer size 1")
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	bus := NewBus(4)
	ch, cancel := bus.Subscribe()

	cancel()
	if bus.SubscriberCount() != 0 {
		t.Errorf("subscriber count = %d, want 0", bus.SubscriberCount())
	}
	// Channel must be closed.
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	// Second cancel is a no-op.
	cancel()
}
