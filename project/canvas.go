package project

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/scottjudy/deepcell-label/actor"
)

// Canvas owns pan/zoom/scale and the cursor-to-image coordinate mapping.
//
// Two interaction modes exist. With pan-on-drag, a click-drag pans the
// view. With pan-on-drag off, drags are forwarded raw on the canvas bus
// (a drawing tool needs them) and panning requires a held space bar.
//
// Zoom is anchored at the cursor: the image point under the pointer stays
// fixed as zoom changes. Zoom never drops below 1 (fit-to-view) and the
// visible-window origin is clamped to [0, dim*(1-1/zoom)] on both axes.
type Canvas struct {
	id     string
	loop   *actor.Loop
	bus    *actor.Bus
	logger *slog.Logger

	width  int // image dimensions in pixels
	height int

	availableWidth  int
	availableHeight int
	scale           float64 // canvas pixels per image pixel at zoom 1

	zoom float64
	sx   float64 // visible-window origin, image coordinates
	sy   float64

	panOnDrag bool
	spaceHeld bool
	shiftHeld bool
	dragging  bool
	moved     bool // pointer moved since mouse down; suppresses the click

	cursorX float64 // last pointer position, canvas pixels
	cursorY float64

	// last broadcast integer pixel, for de-duplication
	lastIX int
	lastIY int

	// transient moving flag, cleared settleDelay after the last position
	// change; read by overlay consumers to skip expensive redraws mid-pan
	moving      atomic.Bool
	settleDelay time.Duration
	settleGen   int
	cancelTimer func()
}

// settled is the payload of the canvas's debounce timer event; Gen guards
// against a timer that fired just before being re-armed
type settled struct {
	Gen int
}

// NewCanvas creates the canvas machine for an image of the given size
func NewCanvas(id string, width, height int, settleDelay time.Duration, loop *actor.Loop, bus *actor.Bus, logger *slog.Logger) *Canvas {
	if logger == nil {
		logger = slog.Default()
	}
	if settleDelay <= 0 {
		settleDelay = 200 * time.Millisecond
	}
	return &Canvas{
		id:          id,
		loop:        loop,
		bus:         bus,
		logger:      logger.With("component", "Canvas"),
		width:       width,
		height:      height,
		scale:       1,
		zoom:        1,
		panOnDrag:   true,
		lastIX:      -1,
		lastIY:      -1,
		settleDelay: settleDelay,
	}
}

// ID implements actor.Machine
func (c *Canvas) ID() string { return c.id }

// Zoom returns the current zoom level
func (c *Canvas) Zoom() float64 { return c.zoom }

// Origin returns the visible-window origin in image coordinates
func (c *Canvas) Origin() (sx, sy float64) { return c.sx, c.sy }

// Moving reports whether the view changed within the settle delay
func (c *Canvas) Moving() bool { return c.moving.Load() }

// ImageCoords maps a canvas pixel to image coordinates
func (c *Canvas) ImageCoords(px, py float64) (float64, float64) {
	return c.sx + px/(c.scale*c.zoom), c.sy + py/(c.scale*c.zoom)
}

// canvasState is the restorable snapshot of the view
type canvasState struct {
	SX   float64
	SY   float64
	Zoom float64
}

// Snapshot implements actor.Restorable
func (c *Canvas) Snapshot() any {
	return canvasState{SX: c.sx, SY: c.sy, Zoom: c.zoom}
}

// Restore implements actor.Restorable
func (c *Canvas) Restore(snapshot any) {
	s, ok := snapshot.(canvasState)
	if !ok {
		return
	}
	c.sx, c.sy, c.zoom = s.SX, s.SY, s.Zoom
	c.bus.Publish(actor.NewEvent(EventPosition, Position{SX: c.sx, SY: c.sy, Zoom: c.zoom}))
}

// Receive implements actor.Machine
func (c *Canvas) Receive(ev actor.Event) {
	switch ev.Type {
	case EventWheel:
		wheel, ok := ev.Payload.(Wheel)
		if !ok {
			return
		}
		c.zoomAt(c.zoom*math.Exp(-wheel.DeltaY/200), wheel.X, wheel.Y)

	case EventMouseDown:
		cursor, ok := ev.Payload.(Cursor)
		if !ok {
			return
		}
		c.dragging = true
		c.moved = false
		c.shiftHeld = cursor.Shift
		c.cursorX, c.cursorY = cursor.X, cursor.Y

	case EventMouseUp:
		c.mouseUp()

	case EventMouseMove:
		cursor, ok := ev.Payload.(Cursor)
		if !ok {
			return
		}
		c.mouseMove(cursor)

	case EventKeyDown:
		if key, ok := ev.Payload.(Key); ok && key.Key == " " {
			c.spaceHeld = true
		}

	case EventKeyUp:
		if key, ok := ev.Payload.(Key); ok && key.Key == " " {
			c.spaceHeld = false
		}

	case EventSetPanOnDrag:
		if mode, ok := ev.Payload.(SetPanOnDrag); ok {
			c.panOnDrag = mode.PanOnDrag
		}

	case EventAvailableSpace:
		space, ok := ev.Payload.(AvailableSpace)
		if !ok || space.Width <= 0 || space.Height <= 0 {
			return
		}
		c.availableWidth, c.availableHeight = space.Width, space.Height
		c.scale = math.Min(
			float64(space.Width)/float64(c.width),
			float64(space.Height)/float64(c.height))

	case eventSettled:
		s, ok := ev.Payload.(settled)
		if !ok || s.Gen != c.settleGen {
			return // stale timer, a newer movement re-armed the debounce
		}
		c.moving.Store(false)
		c.bus.Publish(actor.NewEvent(EventMoving, Moving{Moving: false}))
	}
}

func (c *Canvas) mouseMove(cursor Cursor) {
	dx := cursor.X - c.cursorX
	dy := cursor.Y - c.cursorY
	c.cursorX, c.cursorY = cursor.X, cursor.Y
	c.shiftHeld = cursor.Shift

	if c.dragging && (dx != 0 || dy != 0) {
		c.moved = true
		if c.panOnDrag || c.spaceHeld {
			c.pan(dx, dy)
		} else {
			c.bus.Publish(actor.NewEvent(EventDragged, Dragged{DX: dx, DY: dy}))
		}
	}

	c.broadcastCoordinates()
}

// mouseUp ends a drag. A press-release with no movement in between is a
// definitive click, published with the image pixel under the cursor; the
// cells under it are filled in by whoever caches hovering state.
func (c *Canvas) mouseUp() {
	wasDragging := c.dragging
	c.dragging = false
	if !wasDragging {
		return
	}
	if c.moved {
		c.bus.Publish(actor.NewEvent(EventMouseUp, nil))
		return
	}
	fx, fy := c.ImageCoords(c.cursorX, c.cursorY)
	c.bus.Publish(actor.NewEvent(EventClick, Click{
		X:        int(math.Floor(fx)),
		Y:        int(math.Floor(fy)),
		Modifier: c.shiftHeld,
	}))
}

// broadcastCoordinates publishes the integer pixel under the cursor,
// suppressed unless it differs from the last broadcast one.
func (c *Canvas) broadcastCoordinates() {
	fx, fy := c.ImageCoords(c.cursorX, c.cursorY)
	ix, iy := int(math.Floor(fx)), int(math.Floor(fy))
	if ix == c.lastIX && iy == c.lastIY {
		return
	}
	c.lastIX, c.lastIY = ix, iy
	c.bus.Publish(actor.NewEvent(EventCoordinates, Coordinates{X: ix, Y: iy}))
}

func (c *Canvas) pan(dx, dy float64) {
	c.sx = c.clampX(c.sx - dx/(c.scale*c.zoom))
	c.sy = c.clampY(c.sy - dy/(c.scale*c.zoom))
	c.positionChanged()
}

// zoomAt changes zoom keeping the image point under (px, py) fixed
func (c *Canvas) zoomAt(newZoom, px, py float64) {
	newZoom = math.Max(1, newZoom)
	if newZoom == c.zoom {
		return
	}
	ix, iy := c.ImageCoords(px, py)
	c.zoom = newZoom
	c.sx = c.clampX(ix - px/(c.scale*c.zoom))
	c.sy = c.clampY(iy - py/(c.scale*c.zoom))
	c.positionChanged()
}

func (c *Canvas) clampX(sx float64) float64 {
	return math.Min(math.Max(sx, 0), float64(c.width)*(1-1/c.zoom))
}

func (c *Canvas) clampY(sy float64) float64 {
	return math.Min(math.Max(sy, 0), float64(c.height)*(1-1/c.zoom))
}

// positionChanged broadcasts the new view and (re)arms the settle timer
func (c *Canvas) positionChanged() {
	c.bus.Publish(actor.NewEvent(EventPosition, Position{SX: c.sx, SY: c.sy, Zoom: c.zoom}))

	if !c.moving.Load() {
		c.moving.Store(true)
		c.bus.Publish(actor.NewEvent(EventMoving, Moving{Moving: true}))
	}
	if c.cancelTimer != nil {
		c.cancelTimer()
	}
	c.settleGen++
	c.cancelTimer = c.loop.After(c.settleDelay, c.id, actor.NewEvent(eventSettled, settled{Gen: c.settleGen}))

	c.broadcastCoordinates()
}
