package project

// Canvas input events
const (
	// EventMouseDown / EventMouseUp / EventMouseMove carry a Cursor payload
	// with the pointer position in canvas pixels.
	EventMouseDown = "MOUSE_DOWN"
	EventMouseUp   = "MOUSE_UP"
	EventMouseMove = "MOUSE_MOVE"
	// EventWheel zooms, anchored at the cursor (Wheel payload)
	EventWheel = "WHEEL"
	// EventKeyDown / EventKeyUp carry a Key payload ("space" gates panning
	// in no-pan mode)
	EventKeyDown = "KEY_DOWN"
	EventKeyUp   = "KEY_UP"
	// EventSetPanOnDrag switches interaction mode (SetPanOnDrag payload)
	EventSetPanOnDrag = "SET_PAN_ON_DRAG"
	// EventAvailableSpace resizes the viewport (AvailableSpace payload)
	EventAvailableSpace = "AVAILABLE_SPACE"
	// eventSettled is the canvas's own debounce timer firing
	eventSettled = "SETTLED"
)

// Canvas broadcasts
const (
	// EventCoordinates publishes the integer image pixel under the cursor
	// (Coordinates payload); suppressed unless the pixel changed.
	EventCoordinates = "COORDINATES"
	// EventPosition publishes the view origin and zoom (Position payload)
	EventPosition = "POSITION"
	// EventMoving publishes the transient moving flag (Moving payload)
	EventMoving = "MOVING"
	// EventDragged forwards a raw drag to listeners in no-pan mode
	// (Dragged payload)
	EventDragged = "DRAGGED"
)

// Image events and broadcasts
const (
	// EventSetFrame / EventSetFeature / EventSetChannel navigate the
	// image (SetIndex payload); out-of-range requests are ignored.
	EventSetFrame   = "SET_FRAME"
	EventSetFeature = "SET_FEATURE"
	EventSetChannel = "SET_CHANNEL"
	// EventImage publishes the displayed (frame, feature, channel)
	EventImage = "IMAGE"
)

// Select events and broadcasts
const (
	// EventSetForeground / EventSetBackground pick cells (SetCell payload)
	EventSetForeground = "SET_FOREGROUND"
	EventSetBackground = "SET_BACKGROUND"
	// EventSwitchSelection swaps foreground and background
	EventSwitchSelection = "SWITCH"
	// EventResetSelection clears the background selection
	EventResetSelection = "RESET"
	// EventNewForeground selects an unused cell id as foreground
	EventNewForeground = "NEW_FOREGROUND"
	// EventSelected publishes the selection (Selected payload)
	EventSelected = "SELECTED"
	// EventHovering publishes the cells under the cursor (Hovering payload)
	EventHovering = "HOVERING"
)

// Cells events and broadcasts
const (
	// EventDeleteCell removes a cell everywhere (CellEdit payload)
	EventDeleteCell = "DELETE_CELL"
	// EventSwapCells exchanges two cell ids (CellPairEdit payload)
	EventSwapCells = "SWAP_CELLS"
	// EventReplaceCells relabels cell B as cell A (CellPairEdit payload)
	EventReplaceCells = "REPLACE_CELLS"
	// EventNewCell maps a raw value to a fresh cell id (NewCell payload)
	EventNewCell = "NEW_CELL"
	// EventApplyLabels merges a service edit result (ApplyLabels payload)
	EventApplyLabels = "APPLY_LABELS"
	// EventCells publishes that cell data changed (CellsChanged payload)
	EventCells = "CELLS"
	// EventCellDeleted tells the divisions machine to drop a cell
	// (CellEdit payload); carries the edit index of the triggering edit so
	// both snapshots share one undo boundary.
	EventCellDeleted = "CELL_DELETED"
)

// Division events and broadcasts
const (
	// EventAddDaughter links a daughter to a parent (DaughterEdit payload)
	EventAddDaughter = "ADD_DAUGHTER"
	// EventRemoveDaughter unlinks a daughter (DaughterEdit payload)
	EventRemoveDaughter = "REMOVE_DAUGHTER"
	// EventDivisions publishes that the lineage changed
	EventDivisions = "DIVISIONS"
)

// Spots events
const (
	// EventSetSpotsVisible toggles the overlay (SetVisible payload)
	EventSetSpotsVisible = "SET_SPOTS_VISIBLE"
	// EventRedraw asks the rendering surface to repaint the overlay
	EventRedraw = "REDRAW"
)

// Tool events
const (
	// EventSetTool selects the active tool (SetTool payload)
	EventSetTool = "SET_TOOL"
	// EventClick is a definitive click (mouse up without a drag),
	// published by the canvas and routed to the active tool (Click payload)
	EventClick = "CLICK"
)

// Cursor is a pointer position in canvas pixels
type Cursor struct {
	X     float64
	Y     float64
	Shift bool
}

// Wheel is a zoom request anchored at the cursor
type Wheel struct {
	DeltaY float64
	X      float64
	Y      float64
}

// Key is a key press or release
type Key struct {
	Key string
}

// SetPanOnDrag switches between pan-on-drag and no-pan interaction
type SetPanOnDrag struct {
	PanOnDrag bool
}

// AvailableSpace is the viewport size in device pixels
type AvailableSpace struct {
	Width  int
	Height int
}

// Coordinates is the integer image pixel under the cursor
type Coordinates struct {
	X int
	Y int
}

// Position is the visible-window origin (image coordinates) and zoom
type Position struct {
	SX   float64
	SY   float64
	Zoom float64
}

// Moving is the transient moving flag
type Moving struct {
	Moving bool
}

// Dragged is a raw drag delta in canvas pixels, forwarded in no-pan mode
type Dragged struct {
	DX float64
	DY float64
}

// SetIndex navigates one image axis
type SetIndex struct {
	Index int
}

// Image is the displayed slice of the image volume
type Image struct {
	Frame   int
	Feature int
	Channel int
}

// SetCell picks one cell
type SetCell struct {
	Cell uint32
}

// Selected is the current selection
type Selected struct {
	Foreground uint32
	Background uint32
}

// Hovering is the ordered list of cells under the cursor
type Hovering struct {
	Cells []uint32
}

// CellEdit names one cell
type CellEdit struct {
	Cell uint32
}

// CellPairEdit names two cells (a receives, b is consumed for replace)
type CellPairEdit struct {
	A uint32
	B uint32
}

// NewCell maps a raw value to a fresh cell id
type NewCell struct {
	Value   uint32
	Feature int
	Frame   int
}

// ApplyLabels is a service edit result: a full replacement plane plus the
// mappings valid for it.
type ApplyLabels struct {
	Feature  int           `json:"feature"`
	Frame    int           `json:"frame"`
	Plane    []uint32      `json:"labels"`
	Mappings []CellMapping `json:"cells"`
}

// CellsChanged announces an applied cell edit
type CellsChanged struct {
	EditIndex int
}

// DaughterEdit links or unlinks a daughter cell
type DaughterEdit struct {
	Parent   uint32
	Daughter uint32
	Frame    int
}

// SetVisible toggles an overlay
type SetVisible struct {
	Visible bool
}

// SetTool selects a tool by name
type SetTool struct {
	Tool string
}

// Click is a definitive click: the image pixel, the cells under it, and
// the modifier state.
type Click struct {
	X        int
	Y        int
	Cells    []uint32
	Modifier bool
}
