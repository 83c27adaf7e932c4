// Package actor implements the hierarchical state machine runtime the
// annotation core is built on: addressable machines in a central registry,
// a run-to-completion event loop, per-domain publish/subscribe buses, and
// a reusable count-down barrier.
//
// # Scheduling model
//
// All machine logic runs on one logical thread. Dispatch appends to a FIFO
// queue; whichever goroutine finds the queue idle drains it, delivering
// each event fully before the next (run-to-completion). The only genuine
// asynchrony in the system is network I/O and timers, both of which
// re-enter through Dispatch as ordinary events, so no machine ever observes
// another machine mid-transition.
//
// # Ownership
//
// Every machine has exactly one owner: the parent that spawned it into the
// Registry. Siblings address each other by id through the registry and
// through buses, never by direct pointer, so stopping a machine invalidates
// it everywhere at once.
//
// # Delivery guarantees
//
// Events published on one bus are delivered to a given subscriber in
// publish order. Events across different buses have no relative ordering.
// A subscriber added during dispatch does not receive the in-flight event
// (the subscriber set is snapshotted at publish time). Unknown event types
// and unknown targets are ignored, never fatal.
package actor
