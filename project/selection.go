package project

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// cellCounter exposes the highest cell id in use; the cells machine
// implements it. Used to pick a fresh id for NEW_FOREGROUND.
type cellCounter interface {
	MaxCell() uint32
}

// SelectMachine owns the foreground/background cell selection. Selecting
// the current foreground as foreground deselects it; the same for
// background, so a repeated click toggles.
type SelectMachine struct {
	id     string
	bus    *actor.Bus
	cells  cellCounter
	logger *slog.Logger

	foreground uint32
	background uint32
}

// NewSelectMachine creates the selection machine
func NewSelectMachine(id string, cells cellCounter, bus *actor.Bus, logger *slog.Logger) *SelectMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SelectMachine{
		id:     id,
		bus:    bus,
		cells:  cells,
		logger: logger.With("component", "Select"),
	}
}

// ID implements actor.Machine
func (m *SelectMachine) ID() string { return m.id }

// Foreground returns the selected foreground cell (zero for none)
func (m *SelectMachine) Foreground() uint32 { return m.foreground }

// Background returns the selected background cell (zero for none)
func (m *SelectMachine) Background() uint32 { return m.background }

type selectState struct {
	Foreground uint32
	Background uint32
}

// Snapshot implements actor.Restorable
func (m *SelectMachine) Snapshot() any {
	return selectState{Foreground: m.foreground, Background: m.background}
}

// Restore implements actor.Restorable
func (m *SelectMachine) Restore(snapshot any) {
	s, ok := snapshot.(selectState)
	if !ok {
		return
	}
	m.foreground, m.background = s.Foreground, s.Background
	m.broadcast()
}

// Receive implements actor.Machine
func (m *SelectMachine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventSetForeground:
		set, ok := ev.Payload.(SetCell)
		if !ok {
			return
		}
		if set.Cell == m.foreground {
			m.foreground = 0
		} else {
			m.foreground = set.Cell
			if m.background == set.Cell {
				m.background = 0
			}
		}
		m.broadcast()

	case EventSetBackground:
		set, ok := ev.Payload.(SetCell)
		if !ok {
			return
		}
		if set.Cell == m.background {
			m.background = 0
		} else {
			m.background = set.Cell
			if m.foreground == set.Cell {
				m.foreground = 0
			}
		}
		m.broadcast()

	case EventSwitchSelection:
		m.foreground, m.background = m.background, m.foreground
		m.broadcast()

	case EventResetSelection:
		if m.background == 0 {
			return
		}
		m.background = 0
		m.broadcast()

	case EventNewForeground:
		if m.cells == nil {
			return
		}
		m.foreground = m.cells.MaxCell() + 1
		if m.background == m.foreground {
			m.background = 0
		}
		m.broadcast()
	}
}

func (m *SelectMachine) broadcast() {
	m.bus.Publish(actor.NewEvent(EventSelected, Selected{
		Foreground: m.foreground,
		Background: m.background,
	}))
}
