package actor

import (
	"log/slog"
	"slices"
	"sync"
)

// Bus is a named publish/subscribe channel. Publishing delivers the event
// to every currently subscribed machine through the loop, in subscription
// order. The subscriber set is snapshotted at publish time, so a machine
// subscribing during dispatch does not receive the in-flight event. A bus
// holds no events and owns no subscribers; it exists only while its owning
// scope (the project) is alive.
type Bus struct {
	name string
	loop *Loop

	mu          sync.Mutex
	subscribers []string // ordered by subscription time
}

// NewBus creates an empty bus publishing through the given loop
func NewBus(name string, loop *Loop) *Bus {
	return &Bus{name: name, loop: loop}
}

// Name returns the bus name
func (b *Bus) Name() string { return b.name }

// Subscribe adds a machine id to the subscriber set. Subscribing an id
// that is already subscribed is a no-op (its original position is kept).
func (b *Bus) Subscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.Contains(b.subscribers, id) {
		return
	}
	b.subscribers = append(b.subscribers, id)
}

// Unsubscribe removes a machine id from the subscriber set
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = slices.DeleteFunc(b.subscribers, func(s string) bool {
		return s == id
	})
}

// Publish delivers ev to a snapshot of the current subscribers, in
// subscription order. Fire-and-forget: no back-pressure, no persistence.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	snapshot := make([]string, len(b.subscribers))
	copy(snapshot, b.subscribers)
	b.mu.Unlock()

	for _, id := range snapshot {
		b.loop.Dispatch(id, ev)
	}
}

// Subscribers returns the current subscriber count
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// logValue lets buses appear in structured logs by name
func (b *Bus) LogValue() slog.Value {
	return slog.StringValue(b.name)
}
