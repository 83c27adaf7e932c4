package history

// Event types understood by the coordinator and the history actors.
const (
	// EventSave begins a new edit checkpoint (coordinator input, no payload)
	EventSave = "SAVE"
	// EventUndo rewinds one edit (coordinator input, no payload)
	EventUndo = "UNDO"
	// EventRedo replays one edit (coordinator input, no payload)
	EventRedo = "REDO"

	// EventCapture is fanned out to UI histories with a Capture payload
	EventCapture = "CAPTURE"
	// EventRestoreUndo is fanned out to all histories with a Restore payload
	EventRestoreUndo = "RESTORE_UNDO"
	// EventRestoreRedo is fanned out to all histories with a Restore payload
	EventRestoreRedo = "RESTORE_REDO"

	// EventSaved acknowledges a capture (Ack payload)
	EventSaved = "SAVED"
	// EventRestored acknowledges a restore (Ack payload)
	EventRestored = "RESTORED"

	// EventSnapshot records an edit-driven label change (Snapshot payload)
	EventSnapshot = "SNAPSHOT"

	// EventRegisterUI / EventRegisterLabels enroll an owner for undo
	// tracking (Register payload). Accepted at any point in the owner's
	// lifecycle; registration mid-barrier counts from the next cycle.
	EventRegisterUI     = "REGISTER_UI"
	EventRegisterLabels = "REGISTER_LABELS"
)

// Capture asks a UI history to snapshot its owner at the given edit index.
// Entries recorded beyond the index are stale redo state and are dropped.
type Capture struct {
	EditIndex int
}

// Restore asks a history to move its owner between edit indices.
// For undo To = From-1; for redo To = From+1.
type Restore struct {
	From int
	To   int
}

// Ack identifies the history actor answering a barrier operation
type Ack struct {
	ActorID string
}

// Snapshot carries the before/after state of one edit made by a
// label-owning actor. Before and After must be independent deep copies.
type Snapshot struct {
	EditIndex int
	Before    any
	After     any
}

// Register enrolls the machine with the given id for undo tracking.
// For EventRegisterUI the owner must implement actor.Restorable; for
// EventRegisterLabels it must implement Appliable.
type Register struct {
	OwnerID string
}
