// Package deepcell provides the state coordination core for a cell
// annotation tool: a run-to-completion actor scheduler, event buses,
// undo/redo history, and a set of domain machines that track images,
// segmentation labels, lineage, and editing tools for one project.
//
// # Architecture
//
// Every piece of mutable state lives in a machine owned by a single
// scheduler loop. Machines never call each other; they exchange events
// through the loop and through named buses:
//
//	┌─────────────────────────────────────┐
//	│          Gateway (websocket)        │  Client commands in,
//	│   /ws  /healthz  /metrics           │  bus envelopes out
//	└─────────────────┬───────────────────┘
//	                  ↓ dispatches into
//	┌─────────────────────────────────────┐
//	│          Project (root actor)       │  Spawns machines,
//	│  canvas, image, raw, labeled,       │  owns the buses,
//	│  select, cells, divisions, spots,   │  routes edit results
//	│  tools, flood, brush, ...           │
//	└─────────────────┬───────────────────┘
//	                  ↓ checkpoints via
//	┌──────────────────────┬──────────────┐
//	│  History coordinator │  Edit API    │  Undo barrier and
//	│  (undo/redo barrier) │  (label RPC) │  label service client
//	└──────────────────────┴──────────────┘
//
// Undo is split in two kinds of history. UI histories snapshot view
// state (frame, tool, selection) on every save cycle; label histories
// record before/after label snapshots keyed by edit index, written only
// when an edit actually changes labels. One SAVE barrier groups both,
// so a service edit and its view state restore as a single step.
//
// Label edits that need pixel math (flood, draw, threshold, watershed)
// are proxied to an external label service over HTTP. The edit API
// machine serializes them, and the project applies each result as a
// checkpointed label change, keeping local undo authoritative.
//
// # Packages
//
// Coordination:
//   - actor: scheduler loop, event bus, actor registry, join barrier
//   - history: undo coordinator, UI and label history machines
//
// Domain:
//   - project: the machines and the project root that wires them
//   - editapi: HTTP client and actor proxy for the label service
//
// Infrastructure:
//   - gateway: websocket fan-out, command dispatch, health, scrape
//   - config: file plus environment configuration
//   - metric: Prometheus metrics and instrumentation hooks
//   - errors: structured error handling with severity classes
//
// # Usage
//
// Build a project and serve it:
//
//	client := editapi.NewClient(cfg.Service.URL, projectID, nil)
//	p, _ := project.New(project.Config{ID: projectID}, client, logger)
//	defer p.Close()
//
//	gw, _ := gateway.New(gateway.Config{Addr: cfg.Server.Addr}, p, metrics, logger)
//	_ = gw.Run(ctx)
//
// Clients connect to /ws, send JSON commands (SET_FRAME, CLICK via the
// mouse events, EDIT, UNDO, REDO), and receive every bus event as a
// JSON envelope tagged with its bus and type.
package deepcell
