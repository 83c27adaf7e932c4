// Package project holds the domain machines for one annotation project
// and the root actor that wires them together.
//
// Each machine owns one slice of state: canvas (viewport, cursor, pan
// and zoom), image/raw/labeled (displayed volume slice and rendering
// settings), select (foreground/background cells), cells (label raster
// and cell registry), divisions (lineage graph), spots (point overlay),
// and tools (active tool plus one machine per tool). Machines never
// share memory; they communicate through the scheduler loop and the
// project's named buses.
//
// The Project root spawns the machines, subscribes them to buses,
// registers histories with the undo coordinator, and turns label
// service results into checkpointed label changes. External callers
// use Project methods (Input, Edit, UndoEdit, DeleteCell, ...) which
// dispatch into the loop; reading machine state outside the loop is
// racy unless the loop has drained.
package project
