package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottjudy/deepcell-label/actor"
)

type fixedCounter uint32

func (c fixedCounter) MaxCell() uint32 { return uint32(c) }

func newSelectFixture(t *testing.T, counter cellCounter) (*SelectMachine, *actor.Loop, *recorder) {
	t.Helper()
	registry := actor.NewRegistry(nil)
	loop := actor.NewLoop(registry, nil)
	bus := actor.NewBus("select", loop)

	m := NewSelectMachine("select", counter, bus, nil)
	require.NoError(t, registry.Spawn(actor.RootOwner, m))

	rec := &recorder{id: "recorder"}
	require.NoError(t, registry.Spawn(actor.RootOwner, rec))
	bus.Subscribe(rec.ID())
	return m, loop, rec
}

func TestSelectToggleSemantics(t *testing.T) {
	m, loop, _ := newSelectFixture(t, fixedCounter(9))

	loop.Send(m.ID(), EventSetForeground, SetCell{Cell: 4})
	assert.Equal(t, uint32(4), m.Foreground())

	// re-selecting deselects
	loop.Send(m.ID(), EventSetForeground, SetCell{Cell: 4})
	assert.Zero(t, m.Foreground())

	// a cell moves between slots rather than occupying both
	loop.Send(m.ID(), EventSetForeground, SetCell{Cell: 4})
	loop.Send(m.ID(), EventSetBackground, SetCell{Cell: 4})
	assert.Zero(t, m.Foreground())
	assert.Equal(t, uint32(4), m.Background())
}

func TestSelectSwitchAndReset(t *testing.T) {
	m, loop, rec := newSelectFixture(t, fixedCounter(9))

	loop.Send(m.ID(), EventSetForeground, SetCell{Cell: 4})
	loop.Send(m.ID(), EventSetBackground, SetCell{Cell: 7})
	loop.Send(m.ID(), EventSwitchSelection, nil)
	assert.Equal(t, uint32(7), m.Foreground())
	assert.Equal(t, uint32(4), m.Background())

	loop.Send(m.ID(), EventResetSelection, nil)
	assert.Zero(t, m.Background())

	// resetting an empty background broadcasts nothing
	n := len(rec.ofType(EventSelected))
	loop.Send(m.ID(), EventResetSelection, nil)
	assert.Len(t, rec.ofType(EventSelected), n)
}

func TestSelectNewForeground(t *testing.T) {
	m, loop, rec := newSelectFixture(t, fixedCounter(9))

	loop.Send(m.ID(), EventNewForeground, nil)
	assert.Equal(t, uint32(10), m.Foreground())

	selected := rec.ofType(EventSelected)
	require.NotEmpty(t, selected)
	assert.Equal(t, Selected{Foreground: 10}, selected[len(selected)-1].Payload)
}
