package project

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// Spot is one point annotation in image coordinates
type Spot struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Frame int     `json:"frame"`
}

// SpotsMachine owns the spot overlay. It listens to the canvas bus and
// asks for a repaint whenever the view changes, except that while the
// view is actively moving it skips repaints once the number of visible
// spots exceeds the threshold; a final repaint runs when movement
// settles.
type SpotsMachine struct {
	id     string
	bus    *actor.Bus // spots bus
	logger *slog.Logger

	spots     []Spot
	visible   bool
	frame     int
	moving    bool
	threshold int
	skipped   int
}

// NewSpotsMachine creates the spots machine with the given annotations
func NewSpotsMachine(id string, spots []Spot, threshold int, bus *actor.Bus, logger *slog.Logger) *SpotsMachine {
	if logger == nil {
		logger = slog.Default()
	}
	if threshold <= 0 {
		threshold = 1000
	}
	return &SpotsMachine{
		id:        id,
		bus:       bus,
		logger:    logger.With("component", "Spots"),
		spots:     spots,
		visible:   true,
		threshold: threshold,
	}
}

// ID implements actor.Machine
func (m *SpotsMachine) ID() string { return m.id }

// Visible reports whether the overlay is shown
func (m *SpotsMachine) Visible() bool { return m.visible }

// Skipped returns how many repaints were suppressed mid-movement
func (m *SpotsMachine) Skipped() int { return m.skipped }

// VisibleCount returns the number of spots on the displayed frame, or
// zero when the overlay is hidden
func (m *SpotsMachine) VisibleCount() int {
	if !m.visible {
		return 0
	}
	n := 0
	for _, s := range m.spots {
		if s.Frame == m.frame {
			n++
		}
	}
	return n
}

// Receive implements actor.Machine
func (m *SpotsMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventPosition:
		if m.moving && m.VisibleCount() > m.threshold {
			m.skipped++
			return
		}
		m.redraw()

	case EventMoving:
		moving, ok := ev.Payload.(Moving)
		if !ok {
			return
		}
		m.moving = moving.Moving
		if !m.moving {
			m.redraw() // catch up on anything skipped mid-pan
		}

	case EventImage:
		if img, ok := ev.Payload.(Image); ok && img.Frame != m.frame {
			m.frame = img.Frame
			m.redraw()
		}

	case EventSetSpotsVisible:
		if set, ok := ev.Payload.(SetVisible); ok && set.Visible != m.visible {
			m.visible = set.Visible
			m.redraw()
		}
	}
}

func (m *SpotsMachine) redraw() {
	m.bus.Publish(actor.NewEvent(EventRedraw, nil))
}
