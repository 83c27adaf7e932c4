package project

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// Display adjustment events
const (
	// EventSetBrightness / EventSetContrast adjust the raw channel
	// (SetLevel payload, clamped to [-1, 1])
	EventSetBrightness = "SET_BRIGHTNESS"
	EventSetContrast   = "SET_CONTRAST"
	// EventToggleInvert inverts the raw channel
	EventToggleInvert = "TOGGLE_INVERT"
	// EventSetOpacity adjusts the label overlay (SetLevel payload, [0, 1])
	EventSetOpacity = "SET_OPACITY"
	// EventToggleOutline toggles label outlines
	EventToggleOutline = "TOGGLE_OUTLINE"
	// EventToggleHighlight toggles highlighting the selected cell
	EventToggleHighlight = "TOGGLE_HIGHLIGHT"
	// EventRawDisplay / EventLabeledDisplay broadcast display settings
	EventRawDisplay     = "RAW_DISPLAY"
	EventLabeledDisplay = "LABELED_DISPLAY"
)

// SetLevel carries one display level adjustment
type SetLevel struct {
	Level float64
}

// RawDisplay is the raw channel's display settings
type RawDisplay struct {
	Channel    int
	Brightness float64
	Contrast   float64
	Invert     bool
}

// LabeledDisplay is the label overlay's display settings
type LabeledDisplay struct {
	Feature   int
	Opacity   float64
	Outline   bool
	Highlight bool
}

// RawMachine owns display state for the raw image channel. It follows the
// displayed channel via the image bus.
type RawMachine struct {
	id     string
	bus    *actor.Bus // raw bus for broadcasts
	logger *slog.Logger

	channel    int
	brightness float64
	contrast   float64
	invert     bool
}

// NewRawMachine creates the raw display machine
func NewRawMachine(id string, bus *actor.Bus, logger *slog.Logger) *RawMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RawMachine{id: id, bus: bus, logger: logger.With("component", "Raw")}
}

// ID implements actor.Machine
func (m *RawMachine) ID() string { return m.id }

type rawState struct {
	Brightness float64
	Contrast   float64
	Invert     bool
}

// Snapshot implements actor.Restorable
func (m *RawMachine) Snapshot() any {
	return rawState{Brightness: m.brightness, Contrast: m.contrast, Invert: m.invert}
}

// Restore implements actor.Restorable
func (m *RawMachine) Restore(snapshot any) {
	s, ok := snapshot.(rawState)
	if !ok {
		return
	}
	m.brightness, m.contrast, m.invert = s.Brightness, s.Contrast, s.Invert
	m.broadcast()
}

// Receive implements actor.Machine
func (m *RawMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSetBrightness:
		if level, ok := ev.Payload.(SetLevel); ok {
			m.brightness = clamp(level.Level, -1, 1)
			m.broadcast()
		}
	case EventSetContrast:
		if level, ok := ev.Payload.(SetLevel); ok {
			m.contrast = clamp(level.Level, -1, 1)
			m.broadcast()
		}
	case EventToggleInvert:
		m.invert = !m.invert
		m.broadcast()
	case EventImage:
		if img, ok := ev.Payload.(Image); ok && img.Channel != m.channel {
			m.channel = img.Channel
			m.broadcast()
		}
	}
}

func (m *RawMachine) broadcast() {
	m.bus.Publish(actor.NewEvent(EventRawDisplay, RawDisplay{
		Channel:    m.channel,
		Brightness: m.brightness,
		Contrast:   m.contrast,
		Invert:     m.invert,
	}))
}

// LabeledMachine owns display state for the label overlay. It follows the
// displayed feature via the image bus.
type LabeledMachine struct {
	id     string
	bus    *actor.Bus // labeled bus for broadcasts
	logger *slog.Logger

	feature   int
	opacity   float64
	outline   bool
	highlight bool
}

// NewLabeledMachine creates the labeled display machine
func NewLabeledMachine(id string, bus *actor.Bus, logger *slog.Logger) *LabeledMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabeledMachine{
		id:      id,
		bus:     bus,
		logger:  logger.With("component", "Labeled"),
		opacity: 0.3,
		outline: true,
	}
}

// ID implements actor.Machine
func (m *LabeledMachine) ID() string { return m.id }

type labeledState struct {
	Opacity   float64
	Outline   bool
	Highlight bool
}

// Snapshot implements actor.Restorable
func (m *LabeledMachine) Snapshot() any {
	return labeledState{Opacity: m.opacity, Outline: m.outline, Highlight: m.highlight}
}

// Restore implements actor.Restorable
func (m *LabeledMachine) Restore(snapshot any) {
	s, ok := snapshot.(labeledState)
	if !ok {
		return
	}
	m.opacity, m.outline, m.highlight = s.Opacity, s.Outline, s.Highlight
	m.broadcast()
}

// Receive implements actor.Machine
func (m *LabeledMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSetOpacity:
		if level, ok := ev.Payload.(SetLevel); ok {
			m.opacity = clamp(level.Level, 0, 1)
			m.broadcast()
		}
	case EventToggleOutline:
		m.outline = !m.outline
		m.broadcast()
	case EventToggleHighlight:
		m.highlight = !m.highlight
		m.broadcast()
	case EventImage:
		if img, ok := ev.Payload.(Image); ok && img.Feature != m.feature {
			m.feature = img.Feature
			m.broadcast()
		}
	}
}

func (m *LabeledMachine) broadcast() {
	m.bus.Publish(actor.NewEvent(EventLabeledDisplay, LabeledDisplay{
		Feature:   m.feature,
		Opacity:   m.opacity,
		Outline:   m.outline,
		Highlight: m.highlight,
	}))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
