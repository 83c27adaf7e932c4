// Package history implements undo/redo across the actor tree.
//
// Two kinds of recorder exist. A UIHistory is cycle-driven: on every SAVE
// it captures a full restorable snapshot of its owner (pan/zoom, selected
// tool, selection), keyed by the edit index the save began. A LabelHistory
// is edit-driven: label data can be large, so its owner proactively emits
// SNAPSHOT(editIndex, before, after) only when an edit actually changed
// something, and save cycles with no change record nothing.
//
// The Coordinator aggregates every recorder. SAVE fans out to UI histories
// only; UNDO and REDO fan out to both kinds. Each operation is a barrier:
// the coordinator leaves the saving/undoing/redoing state only once every
// UI history registered at barrier start has acknowledged, so operations
// can never interleave and corrupt history ordering. Recorders register
// lazily at any point; a registrant arriving mid-barrier joins from the
// next cycle.
package history
