package history

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// State is the coordinator's barrier state
type State int

const (
	// StateIdle accepts SAVE/UNDO/REDO
	StateIdle State = iota
	// StateSaving waits for capture acknowledgments
	StateSaving
	// StateUndoing waits for restore acknowledgments
	StateUndoing
	// StateRedoing waits for restore acknowledgments
	StateRedoing
)

// String returns a string representation of the coordinator state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSaving:
		return "saving"
	case StateUndoing:
		return "undoing"
	case StateRedoing:
		return "redoing"
	default:
		return "unknown"
	}
}

// Coordinator sequences save/undo/redo across every registered history
// actor with barrier synchronization: one operation at a time, completed
// only when all UI histories registered at barrier start have acknowledged.
// Edit indices are monotonically increasing; undoing and then saving a
// fresh edit discards the redo tail.
type Coordinator struct {
	id       string
	loop     *actor.Loop
	registry *actor.Registry
	logger   *slog.Logger

	state State
	edit  int // current edit index: how many edits are applied
	max   int // high-water mark: highest edit reachable by redo

	uiHistories    []string // in registration order
	labelHistories []string
	barrier        *actor.Join

	// OnComplete, if set, is called when a barrier operation finishes,
	// with the operation's event type. Used for instrumentation.
	OnComplete func(operation string)
}

// NewCoordinator creates an undo coordinator with no registered histories
func NewCoordinator(id string, loop *actor.Loop, registry *actor.Registry, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		id:       id,
		loop:     loop,
		registry: registry,
		logger:   logger.With("component", "UndoCoordinator"),
	}
}

// ID implements actor.Machine
func (c *Coordinator) ID() string { return c.id }

// State returns the current barrier state
func (c *Coordinator) State() State { return c.state }

// EditIndex returns the current edit index
func (c *Coordinator) EditIndex() int { return c.edit }

// MaxEdit returns the highest recorded edit index
func (c *Coordinator) MaxEdit() int { return c.max }

// CanUndo reports whether an UNDO would be accepted right now
func (c *Coordinator) CanUndo() bool { return c.state == StateIdle && c.edit > 0 }

// CanRedo reports whether a REDO would be accepted right now
func (c *Coordinator) CanRedo() bool { return c.state == StateIdle && c.edit < c.max }

// Receive implements actor.Machine. Guard rejections (undo with nothing to
// undo, any operation while a barrier is active) are silent no-ops.
func (c *Coordinator) Receive(ev actor.Event) {
	switch ev.Type {
	case EventRegisterUI:
		c.registerUI(ev)
	case EventRegisterLabels:
		c.registerLabels(ev)
	case EventSave:
		c.save()
	case EventUndo:
		c.undo()
	case EventRedo:
		c.redo()
	case EventSaved:
		c.ack(ev, StateSaving)
	case EventRestored:
		c.ack(ev, StateUndoing, StateRedoing)
	}
}

func (c *Coordinator) registerUI(ev actor.Event) {
	reg, ok := ev.Payload.(Register)
	if !ok || reg.OwnerID == "" {
		return
	}
	h := NewUIHistory(reg.OwnerID+".ui-history", reg.OwnerID, c.id, c.loop, c.registry, c.logger)
	if err := c.registry.Spawn(c.id, h); err != nil {
		c.logger.Warn("ui history registration failed", "owner", reg.OwnerID, "error", err)
		return
	}
	// Baseline snapshot so an undo crossing the registration point has
	// something to restore to.
	h.capture(c.edit)
	c.uiHistories = append(c.uiHistories, h.ID())
}

func (c *Coordinator) registerLabels(ev actor.Event) {
	reg, ok := ev.Payload.(Register)
	if !ok || reg.OwnerID == "" {
		return
	}
	h := NewLabelHistory(reg.OwnerID+".label-history", reg.OwnerID, c.id, c.loop, c.registry, c.logger)
	if err := c.registry.Spawn(c.id, h); err != nil {
		c.logger.Warn("label history registration failed", "owner", reg.OwnerID, "error", err)
		return
	}
	c.labelHistories = append(c.labelHistories, h.ID())
}

// HistoryFor returns the history actor id that owner's snapshots should be
// sent to, or "" if the owner is not registered for label tracking.
func (c *Coordinator) HistoryFor(ownerID string) string {
	target := ownerID + ".label-history"
	for _, id := range c.labelHistories {
		if id == target {
			return id
		}
	}
	return ""
}

// save begins a new edit checkpoint. Always accepted from idle: capture is
// fanned out to UI histories (label histories receive it only to truncate
// their redo tails; their recording is edit-driven), the edit counter and
// high-water mark advance, and any redo tail beyond the new index is gone.
func (c *Coordinator) save() {
	if c.state != StateIdle {
		return
	}

	capture := Capture{EditIndex: c.edit}
	for _, id := range c.labelHistories {
		c.loop.Send(id, EventCapture, capture)
	}
	// Barrier covers the UI histories registered right now; later
	// registrants join from the next cycle.
	c.barrier = actor.NewJoin(c.uiHistories)
	c.state = StateSaving
	for _, id := range c.uiHistories {
		c.loop.Send(id, EventCapture, capture)
	}

	c.edit++
	c.max = c.edit
	c.logger.Debug("save checkpoint", "edit", c.edit)
	c.finishIfEmpty()
}

func (c *Coordinator) undo() {
	if !c.CanUndo() {
		return
	}

	restore := Restore{From: c.edit, To: c.edit - 1}
	c.barrier = actor.NewJoin(c.uiHistories)
	c.state = StateUndoing
	for _, id := range c.uiHistories {
		c.loop.Send(id, EventRestoreUndo, restore)
	}
	for _, id := range c.labelHistories {
		c.loop.Send(id, EventRestoreUndo, restore)
	}

	c.edit--
	c.logger.Debug("undo", "edit", c.edit)
	c.finishIfEmpty()
}

func (c *Coordinator) redo() {
	if !c.CanRedo() {
		return
	}

	restore := Restore{From: c.edit, To: c.edit + 1}
	c.barrier = actor.NewJoin(c.uiHistories)
	c.state = StateRedoing
	for _, id := range c.uiHistories {
		c.loop.Send(id, EventRestoreRedo, restore)
	}
	for _, id := range c.labelHistories {
		c.loop.Send(id, EventRestoreRedo, restore)
	}

	c.edit++
	c.logger.Debug("redo", "edit", c.edit)
	c.finishIfEmpty()
}

// ack counts one acknowledgment toward the active barrier. Acks arriving
// outside the matching state, from unregistered actors, or in duplicate
// are benign races and are ignored.
func (c *Coordinator) ack(ev actor.Event, accepted ...State) {
	match := false
	for _, s := range accepted {
		if c.state == s {
			match = true
			break
		}
	}
	if !match || c.barrier == nil {
		return
	}
	payload, ok := ev.Payload.(Ack)
	if !ok {
		return
	}
	if c.barrier.Ack(payload.ActorID) {
		c.complete()
	}
}

func (c *Coordinator) finishIfEmpty() {
	if c.barrier.Done() {
		c.complete()
	}
}

func (c *Coordinator) complete() {
	operation := c.state.String()
	c.state = StateIdle
	c.barrier = nil
	if c.OnComplete != nil {
		c.OnComplete(operation)
	}
}
