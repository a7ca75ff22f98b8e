// Package events carries progress and status notifications out of the
// engine. Any consumer (CLI, tests, a future UI) subscribes to the bus;
// the engine never blocks on a slow subscriber.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"cycled/internal/logging"
)

// Kind classifies an event.
type Kind string

const (
	KindStateChange   Kind = "state_change"
	KindProgress      Kind = "progress"
	KindStepCompleted Kind = "step_completed"
	KindModelSwitch   Kind = "model_switch"
	KindError         Kind = "error"
)

// Event is one notification from the engine.
type Event struct {
	Kind      Kind
	RunID     string
	Agent     string
	Message   string
	Progress  float64 // 0..1, meaningful for KindProgress
	Timestamp time.Time
}

// Bus is a buffered fan-out publisher. Publish never blocks: events to a
// full subscriber channel are dropped and counted.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]chan Event
	nextID  int
	buffer  int
	dropped atomic.Int64
}

// NewBus creates a bus with the given per-subscriber buffer size.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: make(map[int]chan Event), buffer: buffer}
}

// Subscribe registers a consumer. The returned cancel function removes the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber without blocking.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.dropped.Add(1)
			logging.L(logging.CategoryEvents).Debugw("dropped event for slow subscriber",
				"kind", ev.Kind, "run_id", ev.RunID)
		}
	}
}

// Dropped returns how many events were discarded for slow subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
