package history

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottjudy/deepcell-label/actor"
)

// fakeView is a Restorable UI machine with a position-like context
type fakeView struct {
	id   string
	x, y int
	zoom float64
}

func (f *fakeView) ID() string { return f.id }
func (f *fakeView) Receive(actor.Event) {}
func (f *fakeView) Snapshot() any { return fakeViewState{x: f.x, y: f.y, zoom: f.zoom} }

type fakeViewState struct {
	x, y int
	zoom float64
}

func (f *fakeView) Restore(snapshot any) {
	s, ok := snapshot.(fakeViewState)
	if !ok {
		return
	}
	f.x, f.y, f.zoom = s.x, s.y, s.zoom
}

// fakeLabels is an Appliable data machine whose state is a plain int
type fakeLabels struct {
	id    string
	value int
}

func (f *fakeLabels) ID() string { return f.id }
func (f *fakeLabels) Receive(actor.Event) {}
func (f *fakeLabels) Apply(snapshot any) {
	if v, ok := snapshot.(int); ok {
		f.value = v
	}
}

// silent is a machine that records Capture/Restore events without acking,
// keeping a barrier open for inspection
type silent struct {
	id     string
	events []actor.Event
}

func (s *silent) ID() string { return s.id }
func (s *silent) Receive(ev actor.Event) { s.events = append(s.events, ev) }

func newFixture(t *testing.T) (*actor.Registry, *actor.Loop, *Coordinator) {
	t.Helper()
	registry := actor.NewRegistry(slog.Default())
	loop := actor.NewLoop(registry, slog.Default())
	c := NewCoordinator("undo", loop, registry, slog.Default())
	require.NoError(t, registry.Spawn(actor.RootOwner, c))
	return registry, loop, c
}

func TestUndoRedoRoundTrip(t *testing.T) {
	registry, loop, c := newFixture(t)

	view := &fakeView{id: "canvas", x: 10, y: 20, zoom: 1}
	require.NoError(t, registry.Spawn(actor.RootOwner, view))
	loop.Send("undo", EventRegisterUI, Register{OwnerID: "canvas"})

	// Begin an edit, then mutate the view as part of it.
	loop.Send("undo", EventSave, nil)
	view.x, view.y, view.zoom = 50, 60, 2

	require.Equal(t, StateIdle, c.State())
	require.Equal(t, 1, c.EditIndex())

	loop.Send("undo", EventUndo, nil)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 0, c.EditIndex())
	assert.Equal(t, fakeViewState{x: 10, y: 20, zoom: 1},
		fakeViewState{x: view.x, y: view.y, zoom: view.zoom},
		"undo must restore the pre-edit snapshot exactly")

	loop.Send("undo", EventRedo, nil)
	assert.Equal(t, 1, c.EditIndex())
	assert.Equal(t, fakeViewState{x: 50, y: 60, zoom: 2},
		fakeViewState{x: view.x, y: view.y, zoom: view.zoom},
		"redo must reinstate the post-edit state")
}

func TestLabelHistoryIsEditDriven(t *testing.T) {
	registry, loop, c := newFixture(t)

	labels := &fakeLabels{id: "cells", value: 7}
	require.NoError(t, registry.Spawn(actor.RootOwner, labels))
	loop.Send("undo", EventRegisterLabels, Register{OwnerID: "cells"})

	historyID := c.HistoryFor("cells")
	require.NotEmpty(t, historyID)

	// Edit 1 changes the data and reports it.
	loop.Send("undo", EventSave, nil)
	labels.value = 8
	loop.Send(historyID, EventSnapshot, Snapshot{EditIndex: c.EditIndex(), Before: 7, After: 8})

	// Edit 2 does not touch the data: nothing is recorded.
	loop.Send("undo", EventSave, nil)

	loop.Send("undo", EventUndo, nil) // crosses edit 2, no-op for labels
	assert.Equal(t, 8, labels.value)

	loop.Send("undo", EventUndo, nil) // crosses edit 1
	assert.Equal(t, 7, labels.value)

	loop.Send("undo", EventRedo, nil)
	assert.Equal(t, 8, labels.value)
}

func TestMultipleSnapshotsShareOneEditBoundary(t *testing.T) {
	// A single user action may mutate two data owners (e.g. a cells edit
	// that collaterally updates divisions); one undo restores both.
	registry, loop, c := newFixture(t)

	cells := &fakeLabels{id: "cells", value: 1}
	divisions := &fakeLabels{id: "divisions", value: 100}
	require.NoError(t, registry.Spawn(actor.RootOwner, cells))
	require.NoError(t, registry.Spawn(actor.RootOwner, divisions))
	loop.Send("undo", EventRegisterLabels, Register{OwnerID: "cells"})
	loop.Send("undo", EventRegisterLabels, Register{OwnerID: "divisions"})

	loop.Send("undo", EventSave, nil)
	edit := c.EditIndex()
	cells.value = 2
	divisions.value = 200
	loop.Send(c.HistoryFor("cells"), EventSnapshot, Snapshot{EditIndex: edit, Before: 1, After: 2})
	loop.Send(c.HistoryFor("divisions"), EventSnapshot, Snapshot{EditIndex: edit, Before: 100, After: 200})

	loop.Send("undo", EventUndo, nil)
	assert.Equal(t, 1, cells.value)
	assert.Equal(t, 100, divisions.value)

	loop.Send("undo", EventRedo, nil)
	assert.Equal(t, 2, cells.value)
	assert.Equal(t, 200, divisions.value)
}

func TestRedoTruncatedByFreshEdit(t *testing.T) {
	registry, loop, c := newFixture(t)

	view := &fakeView{id: "canvas", x: 1}
	require.NoError(t, registry.Spawn(actor.RootOwner, view))
	loop.Send("undo", EventRegisterUI, Register{OwnerID: "canvas"})

	loop.Send("undo", EventSave, nil)
	view.x = 2
	loop.Send("undo", EventSave, nil)
	view.x = 3
	require.Equal(t, 2, c.MaxEdit())

	loop.Send("undo", EventUndo, nil)
	require.Equal(t, 1, c.EditIndex())
	require.True(t, c.CanRedo())

	// A fresh edit discards the redo tail beyond index 1.
	loop.Send("undo", EventSave, nil)
	view.x = 9
	assert.Equal(t, 2, c.MaxEdit())
	assert.False(t, c.CanRedo())

	before := c.EditIndex()
	loop.Send("undo", EventRedo, nil)
	assert.Equal(t, before, c.EditIndex(), "rejected redo must be a no-op")
}

func TestUndoGuardWithNoEdits(t *testing.T) {
	_, loop, c := newFixture(t)

	loop.Send("undo", EventUndo, nil)
	assert.Equal(t, 0, c.EditIndex())
	assert.Equal(t, StateIdle, c.State())
}

func TestBarrierCompleteness(t *testing.T) {
	registry, loop, c := newFixture(t)

	// Stub histories that never ack keep the barrier open.
	h1 := &silent{id: "h1"}
	h2 := &silent{id: "h2"}
	require.NoError(t, registry.Spawn(actor.RootOwner, h1))
	require.NoError(t, registry.Spawn(actor.RootOwner, h2))
	c.uiHistories = []string{"h1", "h2"}

	loop.Send("undo", EventSave, nil)
	require.Equal(t, StateSaving, c.State())

	// A second operation while the barrier is open is rejected.
	editDuring := c.EditIndex()
	loop.Send("undo", EventSave, nil)
	loop.Send("undo", EventUndo, nil)
	assert.Equal(t, editDuring, c.EditIndex())
	assert.Equal(t, StateSaving, c.State())

	// Stray and duplicate acks must not complete the barrier early.
	loop.Send("undo", EventSaved, Ack{ActorID: "intruder"})
	loop.Send("undo", EventSaved, Ack{ActorID: "h1"})
	loop.Send("undo", EventSaved, Ack{ActorID: "h1"})
	assert.Equal(t, StateSaving, c.State())

	loop.Send("undo", EventSaved, Ack{ActorID: "h2"})
	assert.Equal(t, StateIdle, c.State())
}

func TestRegistrationMidBarrierJoinsNextCycle(t *testing.T) {
	registry, loop, c := newFixture(t)

	h1 := &silent{id: "h1"}
	require.NoError(t, registry.Spawn(actor.RootOwner, h1))
	c.uiHistories = []string{"h1"}

	loop.Send("undo", EventSave, nil)
	require.Equal(t, StateSaving, c.State())

	// Register a real owner while the barrier is open.
	view := &fakeView{id: "late-canvas"}
	require.NoError(t, registry.Spawn(actor.RootOwner, view))
	loop.Send("undo", EventRegisterUI, Register{OwnerID: "late-canvas"})
	require.Equal(t, StateSaving, c.State())

	// Only h1 was counted for the in-flight barrier.
	loop.Send("undo", EventSaved, Ack{ActorID: "h1"})
	assert.Equal(t, StateIdle, c.State())

	// The late registrant participates from the next cycle. Its history
	// acks normally, while the stub keeps the barrier open until acked.
	loop.Send("undo", EventSave, nil)
	assert.Equal(t, StateSaving, c.State())
	loop.Send("undo", EventSaved, Ack{ActorID: "h1"})
	assert.Equal(t, StateIdle, c.State())
}

func TestSaveWithNoHistoriesCompletesImmediately(t *testing.T) {
	_, loop, c := newFixture(t)

	loop.Send("undo", EventSave, nil)
	assert.Equal(t, StateIdle, c.State())
	assert.Equal(t, 1, c.EditIndex())
	assert.Equal(t, 1, c.MaxEdit())
}

func TestStrayAckWhileIdleIsIgnored(t *testing.T) {
	_, loop, c := newFixture(t)

	loop.Send("undo", EventSaved, Ack{ActorID: "nobody"})
	loop.Send("undo", EventRestored, Ack{ActorID: "nobody"})
	assert.Equal(t, StateIdle, c.State())
}

func TestOnCompleteReportsOperation(t *testing.T) {
	registry, loop, c := newFixture(t)

	var ops []string
	c.OnComplete = func(op string) { ops = append(ops, op) }

	view := &fakeView{id: "canvas"}
	require.NoError(t, registry.Spawn(actor.RootOwner, view))
	loop.Send("undo", EventRegisterUI, Register{OwnerID: "canvas"})

	loop.Send("undo", EventSave, nil)
	loop.Send("undo", EventUndo, nil)
	loop.Send("undo", EventRedo, nil)

	assert.Equal(t, []string{"saving", "undoing", "redoing"}, ops)
}
