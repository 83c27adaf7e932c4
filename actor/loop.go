package actor

import (
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// envelope pairs an event with its target machine id
type envelope struct {
	target string
	event  Event
}

// Loop is the run-to-completion scheduler. Dispatch from any goroutine is
// safe: entries go into a FIFO queue, and exactly one caller at a time
// drains it, delivering each event fully before the next. Timer and network
// completions re-enter through Dispatch like any other event, so machine
// logic is effectively single-threaded.
type Loop struct {
	registry *Registry
	logger   *slog.Logger

	// OnDeliver, if set, observes every delivered event. Used by the
	// metric package; must not dispatch synchronously.
	OnDeliver func(target string, ev Event)

	mu       sync.Mutex
	queue    []envelope
	draining bool
}

// NewLoop creates a scheduler that delivers to machines in the registry
func NewLoop(registry *Registry, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		registry: registry,
		logger:   logger.With("component", "Loop"),
	}
}

// Dispatch enqueues an event for the target machine. If no drain is in
// progress the calling goroutine drains the queue; re-entrant dispatches
// made during a delivery are appended and processed in order.
func (l *Loop) Dispatch(target string, ev Event) {
	l.mu.Lock()
	l.queue = append(l.queue, envelope{target: target, event: ev})
	if l.draining {
		l.mu.Unlock()
		return
	}
	l.draining = true
	l.mu.Unlock()

	l.drain()
}

// Send is Dispatch with a constructed event
func (l *Loop) Send(target, eventType string, payload any) {
	l.Dispatch(target, NewEvent(eventType, payload))
}

// After schedules ev for target after d. The returned cancel function stops
// the timer if it has not fired; re-arming a debounce means calling cancel
// and scheduling again.
func (l *Loop) After(d time.Duration, target string, ev Event) (cancel func()) {
	t := time.AfterFunc(d, func() {
		l.Dispatch(target, ev)
	})
	return func() { t.Stop() }
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		env := l.queue[0]
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.deliver(env)
	}
}

// deliver hands one event to its target. Unknown targets are ignored
// (benign race with Stop); a panic inside Receive is contained so no
// failure in domain logic can take down the actor tree.
func (l *Loop) deliver(env envelope) {
	m, ok := l.registry.Lookup(env.target)
	if !ok {
		l.logger.Debug("dropping event for unknown actor",
			"target", env.target, "event", env.event.Type)
		return
	}

	if l.OnDeliver != nil {
		l.OnDeliver(env.target, env.event)
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("actor panicked handling event",
				"target", env.target,
				"event", env.event.Type,
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	m.Receive(env.event)
}
