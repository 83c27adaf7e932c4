package project

import (
	"encoding/json"
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/editapi"
)

// Tool names accepted by SET_TOOL
const (
	ToolSelect    = "select"
	ToolBrush     = "brush"
	ToolFlood     = "flood"
	ToolThreshold = "threshold"
	ToolWatershed = "watershed"
)

// ToolsMachine owns which tool is active and routes canvas interaction
// (clicks, coordinates, drags) to it. The active tool survives undo/redo
// as UI state.
type ToolsMachine struct {
	id     string
	loop   *actor.Loop
	logger *slog.Logger

	tool    string
	toolIDs map[string]string
}

// NewToolsMachine creates the tool router; toolIDs maps tool names to the
// actor ids of the tool machines.
func NewToolsMachine(id string, toolIDs map[string]string, loop *actor.Loop, logger *slog.Logger) *ToolsMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ToolsMachine{
		id:      id,
		loop:    loop,
		logger:  logger.With("component", "Tools"),
		tool:    ToolSelect,
		toolIDs: toolIDs,
	}
}

// ID implements actor.Machine
func (m *ToolsMachine) ID() string { return m.id }

// Tool returns the active tool name
func (m *ToolsMachine) Tool() string { return m.tool }

type toolsState struct {
	Tool string
}

// Snapshot implements actor.Restorable
func (m *ToolsMachine) Snapshot() any { return toolsState{Tool: m.tool} }

// Restore implements actor.Restorable
func (m *ToolsMachine) Restore(snapshot any) {
	if s, ok := snapshot.(toolsState); ok {
		if _, known := m.toolIDs[s.Tool]; known {
			m.tool = s.Tool
		}
	}
}

// Receive implements actor.Machine
func (m *ToolsMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSetTool:
		set, ok := ev.Payload.(SetTool)
		if !ok {
			return
		}
		if _, known := m.toolIDs[set.Tool]; !known {
			m.logger.Warn("unknown tool", "tool", set.Tool)
			return
		}
		m.tool = set.Tool

	case EventClick, EventCoordinates, EventDragged, EventMouseUp:
		m.loop.Dispatch(m.toolIDs[m.tool], ev)
	}
}

// jsonArg encodes one edit argument the way the service decodes it
func jsonArg(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// FloodMachine issues flood-fill edits. The flood target cycles through
// the cells under the cursor: a plain click floods the target if it is
// still hovered and advances to the next hovered cell (wrapping to the
// selected foreground after the last); if the target is no longer under
// the cursor the click only retargets. A modifier click snaps the target
// to the topmost hovered cell without editing.
type FloodMachine struct {
	id        string
	loop      *actor.Loop
	editAPIID string
	logger    *slog.Logger

	hovering   []uint32
	floodCell  uint32
	foreground uint32
}

// NewFloodMachine creates the flood tool
func NewFloodMachine(id, editAPIID string, loop *actor.Loop, logger *slog.Logger) *FloodMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &FloodMachine{
		id:        id,
		loop:      loop,
		editAPIID: editAPIID,
		logger:    logger.With("component", "Flood"),
	}
}

// ID implements actor.Machine
func (m *FloodMachine) ID() string { return m.id }

// FloodCell returns the current flood target
func (m *FloodMachine) FloodCell() uint32 { return m.floodCell }

// Receive implements actor.Machine
func (m *FloodMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventHovering:
		if h, ok := ev.Payload.(Hovering); ok {
			m.hovering = h.Cells
		}
	case EventSelected:
		if s, ok := ev.Payload.(Selected); ok {
			m.foreground = s.Foreground
		}
	case EventClick:
		if click, ok := ev.Payload.(Click); ok {
			m.click(click)
		}
	}
}

func (m *FloodMachine) click(click Click) {
	hovered := click.Cells
	if hovered == nil {
		hovered = m.hovering
	}

	if click.Modifier {
		if len(hovered) > 0 {
			m.floodCell = hovered[0]
		}
		return
	}

	at := -1
	for i, cell := range hovered {
		if cell == m.floodCell {
			at = i
			break
		}
	}
	if at < 0 {
		// target not under the cursor: retarget only, no edit
		if len(hovered) > 0 {
			m.floodCell = hovered[0]
		} else {
			m.floodCell = m.foreground
		}
		return
	}

	m.loop.Send(m.editAPIID, editapi.EventEdit, editapi.Edit{
		Action: "flood",
		Args: map[string]string{
			"foreground": jsonArg(m.foreground),
			"background": jsonArg(m.floodCell),
			"x":          jsonArg(click.X),
			"y":          jsonArg(click.Y),
		},
	})

	// advance the cycle for the next click
	if at == len(hovered)-1 {
		m.floodCell = m.foreground
	} else {
		m.floodCell = hovered[at+1]
	}
}

// BrushMachine issues draw edits. It accumulates the pixel trace while a
// drag is in progress and sends it as one edit on mouse up.
type BrushMachine struct {
	id        string
	loop      *actor.Loop
	editAPIID string
	logger    *slog.Logger

	size       int
	erase      bool
	foreground uint32
	coords     Coordinates
	trace      []Coordinates
	tracing    bool
}

// Brush adjustment events
const (
	// EventSetBrushSize sets the stroke radius (SetIndex payload)
	EventSetBrushSize = "SET_BRUSH_SIZE"
	// EventToggleErase flips between painting and erasing
	EventToggleErase = "TOGGLE_ERASE"
)

// NewBrushMachine creates the brush tool
func NewBrushMachine(id, editAPIID string, loop *actor.Loop, logger *slog.Logger) *BrushMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrushMachine{
		id:        id,
		loop:      loop,
		editAPIID: editAPIID,
		logger:    logger.With("component", "Brush"),
		size:      1,
	}
}

// ID implements actor.Machine
func (m *BrushMachine) ID() string { return m.id }

// Size returns the stroke radius
func (m *BrushMachine) Size() int { return m.size }

// Receive implements actor.Machine
func (m *BrushMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSetBrushSize:
		if set, ok := ev.Payload.(SetIndex); ok && set.Index >= 1 {
			m.size = set.Index
		}
	case EventToggleErase:
		m.erase = !m.erase
	case EventSelected:
		if s, ok := ev.Payload.(Selected); ok {
			m.foreground = s.Foreground
		}
	case EventCoordinates:
		if coords, ok := ev.Payload.(Coordinates); ok {
			m.coords = coords
			if m.tracing {
				m.trace = append(m.trace, coords)
			}
		}
	case EventDragged:
		if !m.tracing {
			m.tracing = true
			m.trace = append(m.trace, m.coords)
		}
	case EventMouseUp:
		m.finishStroke()
	}
}

func (m *BrushMachine) finishStroke() {
	if !m.tracing {
		return
	}
	m.tracing = false
	trace := m.trace
	m.trace = nil
	if len(trace) == 0 || m.foreground == 0 {
		return
	}

	// the service expects the trace as one list of (x, y) pairs
	points := make([][2]int, len(trace))
	for i, p := range trace {
		points[i] = [2]int{p.X, p.Y}
	}
	m.loop.Send(m.editAPIID, editapi.EventEdit, editapi.Edit{
		Action: "draw",
		Args: map[string]string{
			"trace":      jsonArg(points),
			"brush_size": jsonArg(m.size),
			"label":      jsonArg(m.foreground),
			"erase":      jsonArg(m.erase),
		},
	})
}

// ThresholdMachine issues threshold edits from two corner clicks
type ThresholdMachine struct {
	id        string
	loop      *actor.Loop
	editAPIID string
	logger    *slog.Logger

	foreground uint32
	firstSet   bool
	firstX     int
	firstY     int
}

// NewThresholdMachine creates the threshold tool
func NewThresholdMachine(id, editAPIID string, loop *actor.Loop, logger *slog.Logger) *ThresholdMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ThresholdMachine{
		id:        id,
		loop:      loop,
		editAPIID: editAPIID,
		logger:    logger.With("component", "Threshold"),
	}
}

// ID implements actor.Machine
func (m *ThresholdMachine) ID() string { return m.id }

// Receive implements actor.Machine
func (m *ThresholdMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSelected:
		if s, ok := ev.Payload.(Selected); ok {
			m.foreground = s.Foreground
		}
	case EventClick:
		click, ok := ev.Payload.(Click)
		if !ok {
			return
		}
		if !m.firstSet {
			m.firstSet = true
			m.firstX, m.firstY = click.X, click.Y
			return
		}
		m.firstSet = false
		if m.foreground == 0 {
			return
		}
		m.loop.Send(m.editAPIID, editapi.EventEdit, editapi.Edit{
			Action: "threshold",
			Args: map[string]string{
				"x1":    jsonArg(m.firstX),
				"y1":    jsonArg(m.firstY),
				"x2":    jsonArg(click.X),
				"y2":    jsonArg(click.Y),
				"label": jsonArg(m.foreground),
			},
		})
	}
}

// WatershedMachine splits one cell by two seed clicks inside it
type WatershedMachine struct {
	id        string
	loop      *actor.Loop
	editAPIID string
	logger    *slog.Logger

	hovering []uint32
	seedSet  bool
	seedCell uint32
	seedX    int
	seedY    int
}

// NewWatershedMachine creates the watershed tool
func NewWatershedMachine(id, editAPIID string, loop *actor.Loop, logger *slog.Logger) *WatershedMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatershedMachine{
		id:        id,
		loop:      loop,
		editAPIID: editAPIID,
		logger:    logger.With("component", "Watershed"),
	}
}

// ID implements actor.Machine
func (m *WatershedMachine) ID() string { return m.id }

// Receive implements actor.Machine
func (m *WatershedMachine) Receive(ev actor.Event) {
	if ev.Type == EventHovering {
		if h, ok := ev.Payload.(Hovering); ok {
			m.hovering = h.Cells
		}
		return
	}
	if ev.Type != EventClick {
		return
	}
	click, ok := ev.Payload.(Click)
	if !ok {
		return
	}
	hovered := click.Cells
	if hovered == nil {
		hovered = m.hovering
	}
	if len(hovered) == 0 {
		m.seedSet = false
		return
	}
	cell := hovered[0]
	if !m.seedSet {
		m.seedSet = true
		m.seedCell, m.seedX, m.seedY = cell, click.X, click.Y
		return
	}
	m.seedSet = false
	if cell != m.seedCell {
		return // both seeds must land in the same cell
	}
	m.loop.Send(m.editAPIID, editapi.EventEdit, editapi.Edit{
		Action: "watershed",
		Args: map[string]string{
			"label": jsonArg(cell),
			"x1":    jsonArg(m.seedX),
			"y1":    jsonArg(m.seedY),
			"x2":    jsonArg(click.X),
			"y2":    jsonArg(click.Y),
		},
	})
}

// SelectToolMachine turns clicks into selection changes: plain click sets
// the foreground to the topmost hovered cell, modifier click sets the
// background.
type SelectToolMachine struct {
	id       string
	loop     *actor.Loop
	selectID string
	logger   *slog.Logger

	hovering []uint32
}

// NewSelectToolMachine creates the select tool
func NewSelectToolMachine(id, selectID string, loop *actor.Loop, logger *slog.Logger) *SelectToolMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectToolMachine{
		id:       id,
		loop:     loop,
		selectID: selectID,
		logger:   logger.With("component", "SelectTool"),
	}
}

// ID implements actor.Machine
func (m *SelectToolMachine) ID() string { return m.id }

// Receive implements actor.Machine
func (m *SelectToolMachine) Receive(ev actor.Event) {
	if ev.Type == EventHovering {
		if h, ok := ev.Payload.(Hovering); ok {
			m.hovering = h.Cells
		}
		return
	}
	if ev.Type != EventClick {
		return
	}
	click, ok := ev.Payload.(Click)
	if !ok {
		return
	}
	hovered := click.Cells
	if hovered == nil {
		hovered = m.hovering
	}
	if len(hovered) == 0 {
		return
	}
	target := EventSetForeground
	if click.Modifier {
		target = EventSetBackground
	}
	m.loop.Send(m.selectID, target, SetCell{Cell: hovered[0]})
}
