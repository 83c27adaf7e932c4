package history

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// UIHistory records cycle-driven snapshots for one undo-tracked UI actor.
// Snapshots are keyed by edit index: the entry at index k is the owner's
// state while k edits were applied. Restores walk back to the nearest
// recorded index at or before the target, which covers owners that
// registered after edit zero.
type UIHistory struct {
	id            string
	ownerID       string
	coordinatorID string
	loop          *actor.Loop
	registry      *actor.Registry
	logger        *slog.Logger

	snapshots map[int]any
}

// NewUIHistory creates a recorder bound to the given owner
func NewUIHistory(id, ownerID, coordinatorID string, loop *actor.Loop, registry *actor.Registry, logger *slog.Logger) *UIHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &UIHistory{
		id:            id,
		ownerID:       ownerID,
		coordinatorID: coordinatorID,
		loop:          loop,
		registry:      registry,
		logger:        logger.With("component", "UIHistory", "owner", ownerID),
		snapshots:     make(map[int]any),
	}
}

// ID implements actor.Machine
func (h *UIHistory) ID() string { return h.id }

// capture records the owner's current state at the given index
func (h *UIHistory) capture(editIndex int) {
	owner, ok := h.owner()
	if !ok {
		return
	}
	h.snapshots[editIndex] = owner.Snapshot()
}

func (h *UIHistory) owner() (actor.Restorable, bool) {
	m, ok := h.registry.Lookup(h.ownerID)
	if !ok {
		h.logger.Warn("history owner no longer registered")
		return nil, false
	}
	r, ok := m.(actor.Restorable)
	if !ok {
		h.logger.Warn("history owner is not restorable")
		return nil, false
	}
	return r, true
}

// Receive implements actor.Machine
func (h *UIHistory) Receive(ev actor.Event) {
	switch ev.Type {
	case EventCapture:
		capture, ok := ev.Payload.(Capture)
		if !ok {
			return
		}
		// A fresh edit invalidates any redo tail recorded past this index.
		for k := range h.snapshots {
			if k > capture.EditIndex {
				delete(h.snapshots, k)
			}
		}
		h.capture(capture.EditIndex)
		h.loop.Send(h.coordinatorID, EventSaved, Ack{ActorID: h.id})

	case EventRestoreUndo:
		restore, ok := ev.Payload.(Restore)
		if !ok {
			return
		}
		// The state being left was never captured by a SAVE (saves capture
		// pre-edit state), so record it now for the matching redo.
		if _, exists := h.snapshots[restore.From]; !exists {
			h.capture(restore.From)
		}
		h.restore(restore.To)
		h.loop.Send(h.coordinatorID, EventRestored, Ack{ActorID: h.id})

	case EventRestoreRedo:
		restore, ok := ev.Payload.(Restore)
		if !ok {
			return
		}
		h.restore(restore.To)
		h.loop.Send(h.coordinatorID, EventRestored, Ack{ActorID: h.id})
	}
}

// restore applies the snapshot recorded at the nearest index <= target
func (h *UIHistory) restore(target int) {
	owner, ok := h.owner()
	if !ok {
		return
	}
	for k := target; k >= 0; k-- {
		if snapshot, exists := h.snapshots[k]; exists {
			owner.Restore(snapshot)
			return
		}
	}
	h.logger.Debug("no snapshot at or before target", "target", target)
}
