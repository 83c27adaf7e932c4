package project

import (
	"log/slog"

	"github.com/scottjudy/deepcell-label/actor"
)

// ImageMachine owns which slice of the image volume is displayed: the
// frame within the movie, the segmentation feature, and the raw channel.
// Out-of-range navigation is silently ignored.
type ImageMachine struct {
	id     string
	bus    *actor.Bus
	logger *slog.Logger

	frames   int
	features int
	channels int

	frame   int
	feature int
	channel int
}

// NewImageMachine creates the image machine for the given dimensions
func NewImageMachine(id string, frames, features, channels int, bus *actor.Bus, logger *slog.Logger) *ImageMachine {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageMachine{
		id:       id,
		bus:      bus,
		logger:   logger.With("component", "Image"),
		frames:   frames,
		features: features,
		channels: channels,
	}
}

// ID implements actor.Machine
func (m *ImageMachine) ID() string { return m.id }

// Frame returns the displayed frame
func (m *ImageMachine) Frame() int { return m.frame }

// Feature returns the displayed feature
func (m *ImageMachine) Feature() int { return m.feature }

// Channel returns the displayed channel
func (m *ImageMachine) Channel() int { return m.channel }

// imageState is the restorable snapshot
type imageState struct {
	Frame   int
	Feature int
	Channel int
}

// Snapshot implements actor.Restorable
func (m *ImageMachine) Snapshot() any {
	return imageState{Frame: m.frame, Feature: m.feature, Channel: m.channel}
}

// Restore implements actor.Restorable
func (m *ImageMachine) Restore(snapshot any) {
	s, ok := snapshot.(imageState)
	if !ok {
		return
	}
	m.frame, m.feature, m.channel = s.Frame, s.Feature, s.Channel
	m.broadcast()
}

// Receive implements actor.Machine
func (m *ImageMachine) Receive(ev actor.Event) {
	set, ok := ev.Payload.(SetIndex)
	if !ok {
		return
	}
	switch ev.Type {
	case EventSetFrame:
		if set.Index >= 0 && set.Index < m.frames && set.Index != m.frame {
			m.frame = set.Index
			m.broadcast()
		}
	case EventSetFeature:
		if set.Index >= 0 && set.Index < m.features && set.Index != m.feature {
			m.feature = set.Index
			m.broadcast()
		}
	case EventSetChannel:
		if set.Index >= 0 && set.Index < m.channels && set.Index != m.channel {
			m.channel = set.Index
			m.broadcast()
		}
	}
}

func (m *ImageMachine) broadcast() {
	m.bus.Publish(actor.NewEvent(EventImage, Image{
		Frame:   m.frame,
		Feature: m.feature,
		Channel: m.channel,
	}))
}
