package actor

// Event is an immutable tagged record delivered to machines. Type tags are
// declared as constants by each domain package; Payload holds an
// event-specific struct (or nil for signal-only events).
type Event struct {
	Type    string
	Payload any
}

// NewEvent creates an event with the given type tag and payload
func NewEvent(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload}
}

// Machine is an independently addressable state-machine instance.
//
// Receive applies at most one matching transition for the event; machines
// ignore events they have no transition for. Guards are evaluated inside
// Receive and must be total: a failed guard falls through to the next
// candidate transition or to a no-op, never to an error. Receive runs on
// the loop's single logical thread, so implementations need no locking
// around their own context.
type Machine interface {
	ID() string
	Receive(Event)
}

// Restorable is implemented by machines whose UI state is tracked by an
// undo history. Snapshot must be a pure projection of context with no side
// effects, and Restore(Snapshot()) must reproduce the context exactly.
type Restorable interface {
	Machine
	Snapshot() any
	Restore(snapshot any)
}
