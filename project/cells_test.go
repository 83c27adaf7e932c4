package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/history"
)

type labelFixture struct {
	loop      *actor.Loop
	undo      *history.Coordinator
	cells     *CellsMachine
	divisions *DivisionsMachine
	cellsRec  *recorder
	divRec    *recorder
}

// newLabelFixture wires cells and divisions machines to an undo
// coordinator the way the project does, with no UI histories so barrier
// operations complete immediately.
func newLabelFixture(t *testing.T, raster *Raster, mappings []CellMapping, divisions []Division) *labelFixture {
	t.Helper()
	registry := actor.NewRegistry(nil)
	loop := actor.NewLoop(registry, nil)
	cellsBus := actor.NewBus("cells", loop)
	divBus := actor.NewBus("divisions", loop)

	undo := history.NewCoordinator("undo", loop, registry, nil)
	require.NoError(t, registry.Spawn(actor.RootOwner, undo))

	div := NewDivisionsMachine("divisions", NewDivisionGraph(divisions...), undo, loop, divBus, nil)
	cells := NewCellsMachine("cells", div.ID(), raster, NewCellRegistry(mappings...), undo, loop, cellsBus, nil)
	require.NoError(t, registry.Spawn(actor.RootOwner, div))
	require.NoError(t, registry.Spawn(actor.RootOwner, cells))

	loop.Send(undo.ID(), history.EventRegisterLabels, history.Register{OwnerID: cells.ID()})
	loop.Send(undo.ID(), history.EventRegisterLabels, history.Register{OwnerID: div.ID()})

	cellsRec := &recorder{id: "cells-recorder"}
	divRec := &recorder{id: "div-recorder"}
	require.NoError(t, registry.Spawn(actor.RootOwner, cellsRec))
	require.NoError(t, registry.Spawn(actor.RootOwner, divRec))
	cellsBus.Subscribe(cellsRec.ID())
	divBus.Subscribe(divRec.ID())

	return &labelFixture{
		loop:      loop,
		undo:      undo,
		cells:     cells,
		divisions: div,
		cellsRec:  cellsRec,
		divRec:    divRec,
	}
}

// edit opens an undo boundary and delivers one local edit, the way the
// project's convenience methods do
func (f *labelFixture) edit(target, eventType string, payload any) {
	f.loop.Send(f.undo.ID(), history.EventSave, nil)
	f.loop.Send(target, eventType, payload)
}

func overlapRaster(t *testing.T) *Raster {
	t.Helper()
	r := NewRaster(1, 1, 4, 1)
	require.NoError(t, r.SetPlane(0, 0, []uint32{1, 1, 2, 0}))
	return r
}

func TestCellsDeleteKeepsSharedValues(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 1, Feature: 0, Frame: 0},
		{Cell: 3, Value: 2, Feature: 0, Frame: 0},
	}, nil)

	// value 1 still resolves through cell 2, so pixels stay
	f.edit(f.cells.ID(), EventDeleteCell, CellEdit{Cell: 1})
	assert.False(t, f.cells.Registry().HasCell(1))
	assert.Equal(t, uint32(1), f.cells.Raster().Get(0, 0, 0, 0))

	// last resolver gone: orphaned pixels are zeroed
	f.edit(f.cells.ID(), EventDeleteCell, CellEdit{Cell: 2})
	assert.Equal(t, uint32(0), f.cells.Raster().Get(0, 0, 0, 0))
	assert.Equal(t, uint32(0), f.cells.Raster().Get(0, 0, 1, 0))
	assert.Equal(t, uint32(2), f.cells.Raster().Get(0, 0, 2, 0))

	require.NoError(t, CheckConsistency(f.cells.Raster(), f.cells.Registry()))
}

func TestCellsDeleteUnknownCellIsNoOp(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
	}, nil)

	before := f.undo.EditIndex()
	f.loop.Send(f.cells.ID(), EventDeleteCell, CellEdit{Cell: 99})
	assert.Equal(t, before, f.undo.EditIndex())
	assert.Empty(t, f.cellsRec.ofType(EventCells))
}

func TestCellsDeletionRepairsLineageInSameUndoStep(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, []Division{
		{Parent: 1, Daughters: []uint32{2, 3}, Frame: 0},
	})

	f.edit(f.cells.ID(), EventDeleteCell, CellEdit{Cell: 2})
	assert.False(t, f.cells.Registry().HasCell(2))
	division, ok := f.divisions.Graph().DivisionFor(1)
	require.True(t, ok)
	assert.Equal(t, []uint32{3}, division.Daughters)

	// both machines recorded under the same edit, so one undo restores both
	f.loop.Send(f.undo.ID(), history.EventUndo, nil)
	assert.True(t, f.cells.Registry().HasCell(2))
	assert.Equal(t, uint32(2), f.cells.Raster().Get(0, 0, 2, 0))
	division, ok = f.divisions.Graph().DivisionFor(1)
	require.True(t, ok)
	assert.Equal(t, []uint32{2, 3}, division.Daughters)

	// and one redo reapplies both
	f.loop.Send(f.undo.ID(), history.EventRedo, nil)
	assert.False(t, f.cells.Registry().HasCell(2))
	division, ok = f.divisions.Graph().DivisionFor(1)
	require.True(t, ok)
	assert.Equal(t, []uint32{3}, division.Daughters)
}

func TestCellsApplyLabelsMergesPlaneAndMappings(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, nil)

	f.edit(f.cells.ID(), EventApplyLabels, ApplyLabels{
		Feature: 0,
		Frame:   0,
		Plane:   []uint32{3, 3, 0, 0},
		Mappings: []CellMapping{
			{Cell: 5, Value: 3, Feature: 0, Frame: 0},
		},
	})

	assert.Equal(t, uint32(3), f.cells.Raster().Get(0, 0, 0, 0))
	assert.True(t, f.cells.Registry().HasCell(5))
	assert.False(t, f.cells.Registry().HasCell(1))
	require.NoError(t, CheckConsistency(f.cells.Raster(), f.cells.Registry()))

	changed := f.cellsRec.ofType(EventCells)
	require.NotEmpty(t, changed)
	assert.Equal(t, CellsChanged{EditIndex: 1}, changed[len(changed)-1].Payload)
}

func TestCellsApplyLabelsRejectedWholesale(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, nil)

	// plane introduces value 9 with no mapping for it
	f.edit(f.cells.ID(), EventApplyLabels, ApplyLabels{
		Feature:  0,
		Frame:    0,
		Plane:    []uint32{9, 9, 0, 0},
		Mappings: nil,
	})

	// neither side changed
	assert.Equal(t, uint32(1), f.cells.Raster().Get(0, 0, 0, 0))
	assert.True(t, f.cells.Registry().HasCell(1))
	assert.Empty(t, f.cellsRec.ofType(EventCells))

	// wrong-sized plane is rejected the same way
	f.edit(f.cells.ID(), EventApplyLabels, ApplyLabels{
		Feature: 0,
		Frame:   0,
		Plane:   []uint32{1, 2},
	})
	assert.Equal(t, uint32(1), f.cells.Raster().Get(0, 0, 0, 0))
}

func TestCellsSwapAndReplace(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, []Division{
		{Parent: 1, Daughters: []uint32{2}, Frame: 0},
	})

	f.edit(f.cells.ID(), EventSwapCells, CellPairEdit{A: 1, B: 2})
	assert.Equal(t, []uint32{2}, f.cells.Registry().CellsAt(0, 0, 1))
	assert.Equal(t, []uint32{1}, f.cells.Registry().CellsAt(0, 0, 2))

	// replace consumes cell 1; the lineage drops everything it anchored
	f.edit(f.cells.ID(), EventReplaceCells, CellPairEdit{A: 2, B: 1})
	assert.False(t, f.cells.Registry().HasCell(1))
	assert.Equal(t, []uint32{2}, f.cells.Registry().CellsAt(0, 0, 2))
	_, ok := f.divisions.Graph().DivisionFor(1)
	assert.False(t, ok)
	assert.False(t, f.divisions.Graph().References(1))
}

func TestCellsNewCellTakesFreshID(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 7, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, nil)

	f.edit(f.cells.ID(), EventNewCell, NewCell{Value: 2, Feature: 0, Frame: 0})
	assert.True(t, f.cells.Registry().HasCell(8))
	assert.ElementsMatch(t, []uint32{2, 8}, f.cells.Registry().CellsAt(0, 0, 2))
}

func TestCellsHoverBroadcastsOnChange(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 1, Feature: 0, Frame: 0},
	}, nil)

	f.loop.Send(f.cells.ID(), EventCoordinates, Coordinates{X: 0, Y: 0})
	f.loop.Send(f.cells.ID(), EventCoordinates, Coordinates{X: 1, Y: 0}) // same value

	hovering := f.cellsRec.ofType(EventHovering)
	require.Len(t, hovering, 1)
	assert.Equal(t, Hovering{Cells: []uint32{1, 2}}, hovering[0].Payload)

	// onto background: hover clears
	f.loop.Send(f.cells.ID(), EventCoordinates, Coordinates{X: 3, Y: 0})
	hovering = f.cellsRec.ofType(EventHovering)
	require.Len(t, hovering, 2)
	assert.Equal(t, Hovering{Cells: nil}, hovering[1].Payload)
}

func TestDivisionsDaughterEditsUndoCleanly(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, nil)

	f.edit(f.divisions.ID(), EventAddDaughter, DaughterEdit{Parent: 1, Daughter: 2, Frame: 3})
	division, ok := f.divisions.Graph().DivisionFor(1)
	require.True(t, ok)
	assert.Equal(t, []uint32{2}, division.Daughters)
	assert.Equal(t, 3, division.Frame)

	f.edit(f.divisions.ID(), EventRemoveDaughter, DaughterEdit{Daughter: 2})
	_, ok = f.divisions.Graph().DivisionFor(1)
	assert.False(t, ok, "empty division is pruned")

	f.loop.Send(f.undo.ID(), history.EventUndo, nil)
	division, ok = f.divisions.Graph().DivisionFor(1)
	require.True(t, ok)
	assert.Equal(t, []uint32{2}, division.Daughters)
}

func TestDivisionsIgnoreUnrelatedDeletion(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), []CellMapping{
		{Cell: 1, Value: 1, Feature: 0, Frame: 0},
		{Cell: 2, Value: 2, Feature: 0, Frame: 0},
	}, []Division{
		{Parent: 5, Daughters: []uint32{6}, Frame: 0},
	})

	f.edit(f.cells.ID(), EventDeleteCell, CellEdit{Cell: 1})
	assert.Empty(t, f.divRec.ofType(EventDivisions), "lineage untouched, nothing broadcast")

	// undoing the deletion leaves the unrelated division alone
	f.loop.Send(f.undo.ID(), history.EventUndo, nil)
	division, ok := f.divisions.Graph().DivisionFor(5)
	require.True(t, ok)
	assert.Equal(t, []uint32{6}, division.Daughters)
}

func TestDivisionsGuardInvalidDaughterEdits(t *testing.T) {
	f := newLabelFixture(t, overlapRaster(t), nil, nil)

	f.loop.Send(f.divisions.ID(), EventAddDaughter, DaughterEdit{Parent: 1, Daughter: 1, Frame: 0})
	f.loop.Send(f.divisions.ID(), EventAddDaughter, DaughterEdit{Parent: 0, Daughter: 2, Frame: 0})
	f.loop.Send(f.divisions.ID(), EventRemoveDaughter, DaughterEdit{Daughter: 9})

	assert.Empty(t, f.divisions.Graph().Divisions())
	assert.Empty(t, f.divRec.ofType(EventDivisions))
}
