package editapi

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/scottjudy/deepcell-label/actor"
)

// Event types accepted and emitted by the machine
const (
	// EventEdit requests a label edit (Edit payload). Accepted from idle.
	EventEdit = "EDIT"
	// EventBackendUndo / EventBackendRedo drive the service's own history
	EventBackendUndo = "BACKEND_UNDO"
	EventBackendRedo = "BACKEND_REDO"
	// EventUpload exports the project (Upload payload). Runs concurrently
	// with edit requests.
	EventUpload = "UPLOAD"

	// EventEdited reports a successful edit to the parent (Edited payload)
	EventEdited = "EDITED"
	// EventError reports a failed request to the parent (Error payload)
	EventError = "ERROR"
	// EventUploaded reports a completed export to the parent
	EventUploaded = "UPLOADED"

	// internal completion events delivered back to the machine
	eventEditDone   = "EDIT_DONE"
	eventUploadDone = "UPLOAD_DONE"
)

// Edit names a service action with its arguments (already stringified the
// way the service expects, typically JSON-encoded scalars)
type Edit struct {
	Action string
	Args   map[string]string
}

// Upload names the destination bucket for an export
type Upload struct {
	Bucket string
}

// Edited carries the service's updated label payload
type Edited struct {
	Action  string
	Payload []byte
}

// Error carries the service-provided failure message
type Error struct {
	Action  string
	Message string
}

type editDone struct {
	action  string
	payload []byte
	err     error
	elapsed time.Duration
}

type uploadDone struct {
	err error
}

// State is the machine's request state
type State int

const (
	// StateIdle accepts new edit/undo/redo requests
	StateIdle State = iota
	// StateLoading has one outstanding request
	StateLoading
)

// String returns a string representation of the state
func (s State) String() string {
	if s == StateLoading {
		return "loading"
	}
	return "idle"
}

// Machine proxies edit requests to the labeling service. One outstanding
// edit/undo/redo request at a time: requests arriving while loading are
// dropped (the caller disables controls while loading; there is no queue).
// Uploading is tracked independently so exports never wait on edits.
type Machine struct {
	id       string
	parentID string
	loop     *actor.Loop
	client   *Client
	logger   *slog.Logger
	timeout  time.Duration

	// OnResult, if set, observes every completed edit/undo/redo request
	// with its outcome ("ok" or "error") and duration. Used for
	// instrumentation.
	OnResult func(action, status string, elapsed time.Duration)

	// observable from other goroutines (tests, UI gating)
	state     atomic.Int32
	uploading atomic.Bool
}

// NewMachine creates an edit machine reporting to parentID
func NewMachine(id, parentID string, loop *actor.Loop, client *Client, timeout time.Duration, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Machine{
		id:       id,
		parentID: parentID,
		loop:     loop,
		client:   client,
		logger:   logger.With("component", "EditAPI"),
		timeout:  timeout,
	}
}

// ID implements actor.Machine
func (m *Machine) ID() string { return m.id }

// State returns the current request state
func (m *Machine) State() State { return State(m.state.Load()) }

// Uploading reports whether an export is in flight
func (m *Machine) Uploading() bool { return m.uploading.Load() }

// Receive implements actor.Machine
func (m *Machine) Receive(ev actor.Event) {
	switch ev.Type {
	case EventEdit:
		edit, ok := ev.Payload.(Edit)
		if !ok {
			return
		}
		m.request(edit.Action, func(ctx context.Context) ([]byte, error) {
			return m.client.Edit(ctx, edit.Action, edit.Args)
		})

	case EventBackendUndo:
		m.request("undo", func(ctx context.Context) ([]byte, error) {
			return m.client.Undo(ctx)
		})

	case EventBackendRedo:
		m.request("redo", func(ctx context.Context) ([]byte, error) {
			return m.client.Redo(ctx)
		})

	case eventEditDone:
		done, ok := ev.Payload.(editDone)
		if !ok {
			return
		}
		m.state.Store(int32(StateIdle))
		if done.err != nil {
			m.observe(done.action, "error", done.elapsed)
			m.logger.Warn("edit request failed", "action", done.action, "error", done.err)
			m.loop.Send(m.parentID, EventError, Error{Action: done.action, Message: done.err.Error()})
			return
		}
		m.observe(done.action, "ok", done.elapsed)
		m.loop.Send(m.parentID, EventEdited, Edited{Action: done.action, Payload: done.payload})

	case EventUpload:
		upload, ok := ev.Payload.(Upload)
		if !ok {
			return
		}
		if m.uploading.Load() {
			m.logger.Warn("upload rejected: already uploading")
			return
		}
		m.uploading.Store(true)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			defer cancel()
			err := m.client.Upload(ctx, upload.Bucket)
			m.loop.Send(m.id, eventUploadDone, uploadDone{err: err})
		}()

	case eventUploadDone:
		done, ok := ev.Payload.(uploadDone)
		if !ok {
			return
		}
		m.uploading.Store(false)
		if done.err != nil {
			m.logger.Warn("upload failed", "error", done.err)
			m.loop.Send(m.parentID, EventError, Error{Action: "upload", Message: done.err.Error()})
			return
		}
		m.loop.Send(m.parentID, EventUploaded, nil)
	}
}

// request issues a single-flight call; a request while loading is dropped
func (m *Machine) request(action string, call func(context.Context) ([]byte, error)) {
	if m.State() == StateLoading {
		m.logger.Warn("request rejected: edit in flight", "action", action)
		return
	}
	m.state.Store(int32(StateLoading))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		start := time.Now()
		payload, err := call(ctx)
		m.loop.Send(m.id, eventEditDone, editDone{
			action:  action,
			payload: payload,
			err:     err,
			elapsed: time.Since(start),
		})
	}()
}

func (m *Machine) observe(action, status string, elapsed time.Duration) {
	if m.OnResult != nil {
		m.OnResult(action, status, elapsed)
	}
}
