package project

import (
	"encoding/json"
	"log/slog"
	"slices"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/errors"
	"github.com/scottjudy/deepcell-label/history"
)

// editIndexer reads the current edit index; the undo coordinator
// implements it. Cells and divisions key their snapshots by it so every
// change made during one edit shares one undo boundary.
type editIndexer interface {
	EditIndex() int
}

// cellsSnapshot is the before/after state recorded per edit
type cellsSnapshot struct {
	raster   *Raster
	registry *CellRegistry
}

// CellsMachine owns the raster label arrays and the cell registry, and
// keeps them mutually consistent: every edit updates both atomically or
// neither. Each applied edit is reported to the machine's label history;
// a deletion additionally notifies the divisions machine so the lineage
// is maintained inside the same edit boundary.
type CellsMachine struct {
	id          string
	loop        *actor.Loop
	bus         *actor.Bus // cells bus
	divisionsID string
	editIndex   editIndexer
	logger      *slog.Logger

	raster   *Raster
	registry *CellRegistry

	// displayed slice, followed via the image bus, used for hover lookup
	frame   int
	feature int

	lastHover []uint32
}

// NewCellsMachine creates the cells machine owning the given label data
func NewCellsMachine(id, divisionsID string, raster *Raster, registry *CellRegistry,
	editIndex editIndexer, loop *actor.Loop, bus *actor.Bus, logger *slog.Logger) *CellsMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CellsMachine{
		id:          id,
		loop:        loop,
		bus:         bus,
		divisionsID: divisionsID,
		editIndex:   editIndex,
		logger:      logger.With("component", "Cells"),
		raster:      raster,
		registry:    registry,
	}
}

// ID implements actor.Machine
func (m *CellsMachine) ID() string { return m.id }

// MaxCell returns the highest cell id in use
func (m *CellsMachine) MaxCell() uint32 { return m.registry.MaxCell() }

// Raster returns the label raster (owned by this machine; read-only for
// callers outside the loop)
func (m *CellsMachine) Raster() *Raster { return m.raster }

// Registry returns the cell registry (owned by this machine)
func (m *CellsMachine) Registry() *CellRegistry { return m.registry }

// Apply implements history.Appliable: reinstate a recorded state
func (m *CellsMachine) Apply(snapshot any) {
	s, ok := snapshot.(cellsSnapshot)
	if !ok {
		return
	}
	m.raster = s.raster.Clone()
	m.registry = s.registry.Clone()
	m.broadcast()
}

// Receive implements actor.Machine
func (m *CellsMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventDeleteCell:
		if edit, ok := ev.Payload.(CellEdit); ok {
			m.deleteCell(edit.Cell)
		}
	case EventSwapCells:
		if edit, ok := ev.Payload.(CellPairEdit); ok {
			m.swapCells(edit.A, edit.B)
		}
	case EventReplaceCells:
		if edit, ok := ev.Payload.(CellPairEdit); ok {
			m.replaceCells(edit.A, edit.B)
		}
	case EventNewCell:
		if edit, ok := ev.Payload.(NewCell); ok {
			m.newCell(edit)
		}
	case EventApplyLabels:
		switch payload := ev.Payload.(type) {
		case ApplyLabels:
			m.applyLabels(payload)
		case []byte:
			var parsed ApplyLabels
			if err := json.Unmarshal(payload, &parsed); err != nil {
				m.logger.Warn("undecodable edit payload", "error", err)
				return
			}
			m.applyLabels(parsed)
		}
	case EventImage:
		if img, ok := ev.Payload.(Image); ok {
			m.frame, m.feature = img.Frame, img.Feature
		}
	case EventCoordinates:
		if coords, ok := ev.Payload.(Coordinates); ok {
			m.hover(coords)
		}
	}
}

// hover resolves the pixel under the cursor to cells and broadcasts the
// list when it changed
func (m *CellsMachine) hover(coords Coordinates) {
	value := m.raster.Get(m.feature, m.frame, coords.X, coords.Y)
	var cells []uint32
	if value != 0 {
		cells = m.registry.CellsAt(m.feature, m.frame, value)
	}
	if slices.Equal(cells, m.lastHover) {
		return
	}
	m.lastHover = cells
	m.bus.Publish(actor.NewEvent(EventHovering, Hovering{Cells: cells}))
}

func (m *CellsMachine) snapshot() cellsSnapshot {
	return cellsSnapshot{raster: m.raster.Clone(), registry: m.registry.Clone()}
}

// record reports one applied edit to this machine's label history and
// announces the change on the cells bus
func (m *CellsMachine) record(before cellsSnapshot) {
	edit := m.editIndex.EditIndex()
	m.loop.Send(m.id+".label-history", history.EventSnapshot, history.Snapshot{
		EditIndex: edit,
		Before:    before,
		After:     m.snapshot(),
	})
	m.broadcast()
}

func (m *CellsMachine) broadcast() {
	m.bus.Publish(actor.NewEvent(EventCells, CellsChanged{EditIndex: m.editIndex.EditIndex()}))
}

// deleteCell removes a cell from the registry and zeroes any raster value
// left without a resolving cell
func (m *CellsMachine) deleteCell(cell uint32) {
	mappings := m.registry.MappingsFor(cell)
	if len(mappings) == 0 {
		return // unknown cell, nothing to do
	}
	before := m.snapshot()

	m.registry.RemoveCell(cell)
	for _, mapping := range mappings {
		if len(m.registry.CellsAt(mapping.Feature, mapping.Frame, mapping.Value)) == 0 {
			m.raster.ZeroValue(mapping.Feature, mapping.Frame, mapping.Value)
		}
	}

	m.record(before)
	m.loop.Send(m.divisionsID, EventCellDeleted, CellEdit{Cell: cell})
}

func (m *CellsMachine) swapCells(a, b uint32) {
	if a == b || (!m.registry.HasCell(a) && !m.registry.HasCell(b)) {
		return
	}
	before := m.snapshot()
	m.registry.SwapCells(a, b)
	m.record(before)
}

// replaceCells relabels cell b as cell a; b ceases to exist
func (m *CellsMachine) replaceCells(a, b uint32) {
	if a == b || !m.registry.HasCell(b) {
		return
	}
	before := m.snapshot()
	m.registry.ReplaceCell(a, b)
	m.record(before)
	m.loop.Send(m.divisionsID, EventCellDeleted, CellEdit{Cell: b})
}

// newCell maps a raw value to a fresh cell id
func (m *CellsMachine) newCell(edit NewCell) {
	if edit.Value == 0 {
		return
	}
	before := m.snapshot()
	m.registry.Add(CellMapping{
		Cell:    m.registry.MaxCell() + 1,
		Value:   edit.Value,
		Feature: edit.Feature,
		Frame:   edit.Frame,
	})
	m.record(before)
}

// applyLabels merges a service edit result: a replacement plane plus the
// mappings valid for it. Applied atomically: the merge is validated on a
// copy first and abandoned wholesale if it would desync raster and
// registry.
func (m *CellsMachine) applyLabels(payload ApplyLabels) {
	before := m.snapshot()

	raster := m.raster.Clone()
	if err := raster.SetPlane(payload.Feature, payload.Frame, payload.Plane); err != nil {
		m.logger.Warn("rejecting edit payload", "error", err)
		return
	}
	registry := m.registry.Clone()
	for _, old := range registry.Mappings() {
		if old.Feature == payload.Feature && old.Frame == payload.Frame {
			registry.RemoveMapping(old)
		}
	}
	for _, mapping := range payload.Mappings {
		registry.Add(mapping)
	}
	if err := CheckConsistency(raster, registry); err != nil {
		m.logger.Error("edit payload desyncs raster and registry",
			"error", errors.WrapFatal(err, "Cells", "applyLabels", "consistency check"))
		return
	}

	m.raster = raster
	m.registry = registry
	m.record(before)
}
