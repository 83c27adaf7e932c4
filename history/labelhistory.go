package history

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// Appliable is implemented by label-owning machines tracked by a
// LabelHistory. Apply reinstates a previously emitted before/after state
// without recording a new snapshot.
type Appliable interface {
	actor.Machine
	Apply(snapshot any)
}

// labelEntry is one recorded edit: the owner's state immediately before
// and after. Several entries may share an edit index when one user action
// touches an owner more than once (or as a side effect of another edit).
type labelEntry struct {
	before any
	after  any
}

// LabelHistory records edit-driven snapshots for one data-owning actor.
// Unlike UIHistory it captures nothing on SAVE: the owner emits SNAPSHOT
// only when an edit changed its data, so unchanged save cycles cost
// nothing. Undo reapplies before-states newest first; redo reapplies
// after-states oldest first.
type LabelHistory struct {
	id            string
	ownerID       string
	coordinatorID string
	loop          *actor.Loop
	registry      *actor.Registry
	logger        *slog.Logger

	entries map[int][]labelEntry
}

// NewLabelHistory creates a recorder bound to the given owner
func NewLabelHistory(id, ownerID, coordinatorID string, loop *actor.Loop, registry *actor.Registry, logger *slog.Logger) *LabelHistory {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelHistory{
		id:            id,
		ownerID:       ownerID,
		coordinatorID: coordinatorID,
		loop:          loop,
		registry:      registry,
		logger:        logger.With("component", "LabelHistory", "owner", ownerID),
		entries:       make(map[int][]labelEntry),
	}
}

// ID implements actor.Machine
func (h *LabelHistory) ID() string { return h.id }

func (h *LabelHistory) owner() (Appliable, bool) {
	m, ok := h.registry.Lookup(h.ownerID)
	if !ok {
		h.logger.Warn("history owner no longer registered")
		return nil, false
	}
	a, ok := m.(Appliable)
	if !ok {
		h.logger.Warn("history owner is not appliable")
		return nil, false
	}
	return a, true
}

// Receive implements actor.Machine
func (h *LabelHistory) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSnapshot:
		snapshot, ok := ev.Payload.(Snapshot)
		if !ok {
			return
		}
		h.entries[snapshot.EditIndex] = append(h.entries[snapshot.EditIndex],
			labelEntry{before: snapshot.Before, after: snapshot.After})

	case EventCapture:
		// Label capture is edit-driven, not cycle-driven; a capture only
		// truncates the redo tail invalidated by the fresh edit.
		capture, ok := ev.Payload.(Capture)
		if !ok {
			return
		}
		for k := range h.entries {
			if k > capture.EditIndex {
				delete(h.entries, k)
			}
		}

	case EventRestoreUndo:
		restore, ok := ev.Payload.(Restore)
		if !ok {
			return
		}
		if owner, exists := h.owner(); exists {
			recorded := h.entries[restore.From]
			for i := len(recorded) - 1; i >= 0; i-- {
				owner.Apply(recorded[i].before)
			}
		}
		h.loop.Send(h.coordinatorID, EventRestored, Ack{ActorID: h.id})

	case EventRestoreRedo:
		restore, ok := ev.Payload.(Restore)
		if !ok {
			return
		}
		if owner, exists := h.owner(); exists {
			for _, entry := range h.entries[restore.To] {
				owner.Apply(entry.after)
			}
		}
		h.loop.Send(h.coordinatorID, EventRestored, Ack{ActorID: h.id})
	}
}
