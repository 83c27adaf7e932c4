package project

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/editapi"
	"github.com/scottjudy/deepcell-label/history"
)

// Config sizes one project
type Config struct {
	// ID identifies the project; a fresh uuid is assigned when empty
	ID string

	Width    int
	Height   int
	Frames   int
	Features int
	Channels int

	// SettleDelay is the canvas movement debounce (default 200ms)
	SettleDelay time.Duration
	// SpotThreshold caps mid-movement overlay repaints (default 1000)
	SpotThreshold int
	// EditTimeout bounds one service request (default 30s)
	EditTimeout time.Duration

	// initial annotations
	Mappings  []CellMapping
	Divisions []Division
	Spots     []Spot
}

func (c *Config) applyDefaults() {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Width <= 0 {
		c.Width = 1
	}
	if c.Height <= 0 {
		c.Height = 1
	}
	if c.Frames <= 0 {
		c.Frames = 1
	}
	if c.Features <= 0 {
		c.Features = 1
	}
	if c.Channels <= 0 {
		c.Channels = 1
	}
}

// Project assembles one annotation session: the actor arena, the event
// buses, every domain machine, the undo coordinator, and the edit-API
// machine, wired together. The project is itself an actor; the edit-API
// machine reports to it, and it turns successful edits into an undo
// checkpoint plus a label merge.
type Project struct {
	id       string
	registry *actor.Registry
	loop     *actor.Loop
	logger   *slog.Logger

	buses map[string]*actor.Bus

	Canvas    *Canvas
	Image     *ImageMachine
	Raw       *RawMachine
	Labeled   *LabeledMachine
	Select    *SelectMachine
	Cells     *CellsMachine
	Divisions *DivisionsMachine
	Spots     *SpotsMachine
	Tools     *ToolsMachine
	Flood     *FloodMachine
	Brush     *BrushMachine
	Undo      *history.Coordinator
	EditAPI   *editapi.Machine

	// OnError, if set, is called with the failing action and the service's
	// message whenever a request fails. Called from inside the loop.
	OnError func(action, message string)

	mu        sync.Mutex
	lastError string
}

// New assembles a project from its configuration and an edit service
// client. Every machine is spawned and subscribed before New returns, so
// the project is immediately usable.
func New(cfg Config, client *editapi.Client, logger *slog.Logger) (*Project, error) {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("project", cfg.ID)

	registry := actor.NewRegistry(logger)
	loop := actor.NewLoop(registry, logger)

	p := &Project{
		id:       cfg.ID,
		registry: registry,
		loop:     loop,
		logger:   logger.With("component", "Project"),
		buses:    make(map[string]*actor.Bus),
	}
	for _, name := range []string{"canvas", "image", "select", "cells", "divisions", "raw", "labeled", "spots"} {
		p.buses[name] = actor.NewBus(name, loop)
	}
	if err := registry.Spawn(actor.RootOwner, p); err != nil {
		return nil, err
	}

	id := func(suffix string) string { return cfg.ID + "." + suffix }

	p.Undo = history.NewCoordinator(id("undo"), loop, registry, logger)

	raster := NewRaster(cfg.Features, cfg.Frames, cfg.Width, cfg.Height)
	cellRegistry := NewCellRegistry(cfg.Mappings...)

	p.Canvas = NewCanvas(id("canvas"), cfg.Width, cfg.Height, cfg.SettleDelay, loop, p.buses["canvas"], logger)
	p.Image = NewImageMachine(id("image"), cfg.Frames, cfg.Features, cfg.Channels, p.buses["image"], logger)
	p.Raw = NewRawMachine(id("raw"), p.buses["raw"], logger)
	p.Labeled = NewLabeledMachine(id("labeled"), p.buses["labeled"], logger)
	p.Divisions = NewDivisionsMachine(id("divisions"), NewDivisionGraph(cfg.Divisions...), p.Undo, loop, p.buses["divisions"], logger)
	p.Cells = NewCellsMachine(id("cells"), p.Divisions.ID(), raster, cellRegistry, p.Undo, loop, p.buses["cells"], logger)
	p.Select = NewSelectMachine(id("select"), p.Cells, p.buses["select"], logger)
	p.Spots = NewSpotsMachine(id("spots"), cfg.Spots, cfg.SpotThreshold, p.buses["spots"], logger)
	p.EditAPI = editapi.NewMachine(id("editapi"), p.id, loop, client, cfg.EditTimeout, logger)

	p.Flood = NewFloodMachine(id("flood"), p.EditAPI.ID(), loop, logger)
	p.Brush = NewBrushMachine(id("brush"), p.EditAPI.ID(), loop, logger)
	threshold := NewThresholdMachine(id("threshold"), p.EditAPI.ID(), loop, logger)
	watershed := NewWatershedMachine(id("watershed"), p.EditAPI.ID(), loop, logger)
	selectTool := NewSelectToolMachine(id("select-tool"), p.Select.ID(), loop, logger)
	p.Tools = NewToolsMachine(id("tools"), map[string]string{
		ToolSelect:    selectTool.ID(),
		ToolBrush:     p.Brush.ID(),
		ToolFlood:     p.Flood.ID(),
		ToolThreshold: threshold.ID(),
		ToolWatershed: watershed.ID(),
	}, loop, logger)

	machines := []actor.Machine{
		p.Undo, p.Canvas, p.Image, p.Raw, p.Labeled, p.Divisions, p.Cells,
		p.Select, p.Spots, p.EditAPI,
		p.Flood, p.Brush, threshold, watershed, selectTool, p.Tools,
	}
	for _, m := range machines {
		if err := registry.Spawn(p.id, m); err != nil {
			registry.Stop(p.id)
			return nil, err
		}
	}

	p.subscribe()
	p.registerHistories()
	return p, nil
}

func (p *Project) subscribe() {
	canvas := p.buses["canvas"]
	canvas.Subscribe(p.Cells.ID()) // hover lookup on COORDINATES
	canvas.Subscribe(p.Tools.ID()) // click/drag routing to the active tool
	canvas.Subscribe(p.Spots.ID()) // repaint gating on POSITION/MOVING

	image := p.buses["image"]
	for _, id := range []string{p.Cells.ID(), p.Raw.ID(), p.Labeled.ID(), p.Spots.ID()} {
		image.Subscribe(id)
	}

	// hovering fan-out to the tools that resolve clicks to cells
	cells := p.buses["cells"]
	for _, id := range []string{p.Flood.ID(), p.Tools.toolIDs[ToolWatershed], p.Tools.toolIDs[ToolSelect]} {
		cells.Subscribe(id)
	}

	sel := p.buses["select"]
	for _, id := range []string{p.Flood.ID(), p.Brush.ID(), p.Tools.toolIDs[ToolThreshold]} {
		sel.Subscribe(id)
	}
}

// registerHistories enrolls every machine in undo tracking: view and
// selection state as UI histories restored per cycle, label data as
// edit-driven label histories.
func (p *Project) registerHistories() {
	undoID := p.Undo.ID()
	for _, owner := range []string{
		p.Canvas.ID(), p.Image.ID(), p.Raw.ID(), p.Labeled.ID(),
		p.Select.ID(), p.Tools.ID(),
	} {
		p.loop.Send(undoID, history.EventRegisterUI, history.Register{OwnerID: owner})
	}
	for _, owner := range []string{p.Cells.ID(), p.Divisions.ID()} {
		p.loop.Send(undoID, history.EventRegisterLabels, history.Register{OwnerID: owner})
	}
}

// ID implements actor.Machine
func (p *Project) ID() string { return p.id }

// Loop returns the project's scheduler
func (p *Project) Loop() *actor.Loop { return p.loop }

// Registry returns the project's actor arena
func (p *Project) Registry() *actor.Registry { return p.registry }

// Bus returns a named event bus, or nil for an unknown name
func (p *Project) Bus(name string) *actor.Bus { return p.buses[name] }

// LastError returns the most recent service error message, cleared by the
// next successful edit
func (p *Project) LastError() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastError
}

func (p *Project) setLastError(msg string) {
	p.mu.Lock()
	p.lastError = msg
	p.mu.Unlock()
}

// Close stops every actor in the project
func (p *Project) Close() {
	p.registry.Stop(p.id)
}

// Receive implements actor.Machine: the project handles the edit-API
// machine's reports.
func (p *Project) Receive(ev actor.Event) {
	switch ev.Type {
	case editapi.EventEdited:
		edited, ok := ev.Payload.(editapi.Edited)
		if !ok {
			return
		}
		p.setLastError("")
		// Undo and redo are restored from local history; the service
		// response only confirms it stayed in sync.
		if edited.Action == "undo" || edited.Action == "redo" {
			return
		}
		// Checkpoint first so the merge below lands on the new edit index.
		p.loop.Send(p.Undo.ID(), history.EventSave, nil)
		p.loop.Send(p.Cells.ID(), EventApplyLabels, edited.Payload)

	case editapi.EventError:
		failure, ok := ev.Payload.(editapi.Error)
		if !ok {
			return
		}
		p.setLastError(failure.Message)
		p.logger.Warn("service request failed", "action", failure.Action, "message", failure.Message)
		if p.OnError != nil {
			p.OnError(failure.Action, failure.Message)
		}

	case editapi.EventUploaded:
		p.logger.Info("project exported")
	}
}

// Input dispatches a raw interaction event to the canvas
func (p *Project) Input(eventType string, payload any) {
	p.loop.Send(p.Canvas.ID(), eventType, payload)
}

// Dispatch sends an event to an arbitrary actor in the project
func (p *Project) Dispatch(target, eventType string, payload any) {
	p.loop.Send(target, eventType, payload)
}

// Edit sends one label edit to the service
func (p *Project) Edit(action string, args map[string]string) {
	p.loop.Send(p.EditAPI.ID(), editapi.EventEdit, editapi.Edit{Action: action, Args: args})
}

// Upload exports the project to a bucket
func (p *Project) Upload(bucket string) {
	p.loop.Send(p.EditAPI.ID(), editapi.EventUpload, editapi.Upload{Bucket: bucket})
}

// UndoEdit reverses the most recent edit locally and tells the service to
// do the same
func (p *Project) UndoEdit() {
	if !p.Undo.CanUndo() {
		return
	}
	p.loop.Send(p.Undo.ID(), history.EventUndo, nil)
	p.loop.Send(p.EditAPI.ID(), editapi.EventBackendUndo, nil)
}

// RedoEdit re-applies the most recently undone edit
func (p *Project) RedoEdit() {
	if !p.Undo.CanRedo() {
		return
	}
	p.loop.Send(p.Undo.ID(), history.EventRedo, nil)
	p.loop.Send(p.EditAPI.ID(), editapi.EventBackendRedo, nil)
}

// checkpoint opens a new edit boundary and then delivers one local edit,
// so its snapshots land on the fresh index
func (p *Project) checkpoint(target, eventType string, payload any) {
	p.loop.Send(p.Undo.ID(), history.EventSave, nil)
	p.loop.Send(target, eventType, payload)
}

// DeleteCell removes a cell from every frame and feature
func (p *Project) DeleteCell(cell uint32) {
	p.checkpoint(p.Cells.ID(), EventDeleteCell, CellEdit{Cell: cell})
}

// SwapCells exchanges two cell ids everywhere
func (p *Project) SwapCells(a, b uint32) {
	p.checkpoint(p.Cells.ID(), EventSwapCells, CellPairEdit{A: a, B: b})
}

// ReplaceCells relabels cell b as cell a
func (p *Project) ReplaceCells(a, b uint32) {
	p.checkpoint(p.Cells.ID(), EventReplaceCells, CellPairEdit{A: a, B: b})
}

// CreateCell maps a raw value to a fresh cell id
func (p *Project) CreateCell(value uint32, feature, frame int) {
	p.checkpoint(p.Cells.ID(), EventNewCell, NewCell{Value: value, Feature: feature, Frame: frame})
}

// AddDaughter links a daughter cell to a parent at a frame
func (p *Project) AddDaughter(parent, daughter uint32, frame int) {
	p.checkpoint(p.Divisions.ID(), EventAddDaughter, DaughterEdit{Parent: parent, Daughter: daughter, Frame: frame})
}

// RemoveDaughter unlinks a daughter cell from its division
func (p *Project) RemoveDaughter(daughter uint32) {
	p.checkpoint(p.Divisions.ID(), EventRemoveDaughter, DaughterEdit{Daughter: daughter})
}
