package project

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/history"
)

// DivisionsMachine owns the parent/daughter lineage. Besides direct
// daughter edits it reacts to cell deletions from the cells machine,
// recording the lineage repair under the same edit index as the deletion
// so one undo reverses both.
type DivisionsMachine struct {
	id        string
	loop      *actor.Loop
	bus       *actor.Bus
	editIndex editIndexer
	logger    *slog.Logger

	graph *DivisionGraph
}

// NewDivisionsMachine creates the divisions machine owning the graph
func NewDivisionsMachine(id string, graph *DivisionGraph, editIndex editIndexer,
	loop *actor.Loop, bus *actor.Bus, logger *slog.Logger) *DivisionsMachine {
	if logger == nil {
		logger = slog.Default()
	}
	if graph == nil {
		graph = NewDivisionGraph()
	}
	return &DivisionsMachine{
		id:        id,
		loop:      loop,
		bus:       bus,
		editIndex: editIndex,
		logger:    logger.With("component", "Divisions"),
		graph:     graph,
	}
}

// ID implements actor.Machine
func (m *DivisionsMachine) ID() string { return m.id }

// Graph returns the lineage graph (owned by this machine)
func (m *DivisionsMachine) Graph() *DivisionGraph { return m.graph }

// Apply implements history.Appliable: reinstate a recorded graph
func (m *DivisionsMachine) Apply(snapshot any) {
	g, ok := snapshot.(*DivisionGraph)
	if !ok {
		return
	}
	m.graph = g.Clone()
	m.broadcast()
}

// Receive implements actor.Machine
func (m *DivisionsMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventAddDaughter:
		edit, ok := ev.Payload.(DaughterEdit)
		if !ok || edit.Parent == 0 || edit.Daughter == 0 || edit.Parent == edit.Daughter {
			return
		}
		before := m.graph.Clone()
		m.graph.AddDaughter(edit.Parent, edit.Daughter, edit.Frame)
		m.record(before)

	case EventRemoveDaughter:
		edit, ok := ev.Payload.(DaughterEdit)
		if !ok {
			return
		}
		if _, linked := m.graph.ParentOf(edit.Daughter); !linked {
			return
		}
		before := m.graph.Clone()
		m.graph.RemoveDaughter(edit.Daughter)
		m.record(before)

	case EventCellDeleted:
		edit, ok := ev.Payload.(CellEdit)
		if !ok || !m.graph.References(edit.Cell) {
			return // no lineage change, no history entry
		}
		before := m.graph.Clone()
		m.graph.RemoveCell(edit.Cell)
		m.record(before)
	}
}

// record reports one applied graph change to this machine's label history
// and announces it on the divisions bus
func (m *DivisionsMachine) record(before *DivisionGraph) {
	m.loop.Send(m.id+".label-history", history.EventSnapshot, history.Snapshot{
		EditIndex: m.editIndex.EditIndex(),
		Before:    before,
		After:     m.graph.Clone(),
	})
	m.broadcast()
}

func (m *DivisionsMachine) broadcast() {
	m.bus.Publish(actor.NewEvent(EventDivisions, m.graph.Divisions()))
}
