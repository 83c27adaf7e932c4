package editapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottjudy/deepcell-label/actor"
)

// parentStub collects events reported by the machine
type parentStub struct {
	mu     sync.Mutex
	events []actor.Event
}

func (p *parentStub) ID() string { return "project" }

func (p *parentStub) Receive(ev actor.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *parentStub) byType(eventType string) []actor.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []actor.Event
	for _, ev := range p.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func newEditFixture(t *testing.T, handler http.Handler) (*actor.Loop, *Machine, *parentStub) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	registry := actor.NewRegistry(slog.Default())
	loop := actor.NewLoop(registry, slog.Default())
	parent := &parentStub{}
	require.NoError(t, registry.Spawn(actor.RootOwner, parent))

	client := NewClient(server.URL, "proj1", server.Client())
	m := NewMachine("editapi", "project", loop, client, 5*time.Second, slog.Default())
	require.NoError(t, registry.Spawn("project", m))
	return loop, m, parent
}

func TestEditReportsPayloadToParent(t *testing.T) {
	var gotPath, gotArgs string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotArgs = r.PostForm.Get("foreground")
		_ = json.NewEncoder(w).Encode(map[string]any{"labels": []int{1, 2}})
	})
	loop, _, parent := newEditFixture(t, handler)

	loop.Send("editapi", EventEdit, Edit{
		Action: "flood",
		Args:   map[string]string{"foreground": "5", "background": "3", "x": "10", "y": "12"},
	})

	require.Eventually(t, func() bool {
		return len(parent.byType(EventEdited)) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "/edit/proj1/flood", gotPath)
	assert.Equal(t, "5", gotArgs)

	edited := parent.byType(EventEdited)[0].Payload.(Edited)
	assert.Equal(t, "flood", edited.Action)
	assert.JSONEq(t, `{"labels":[1,2]}`, string(edited.Payload))
}

func TestServiceErrorBodyBecomesErrorEvent(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "label 7 does not exist"})
	})
	loop, m, parent := newEditFixture(t, handler)

	loop.Send("editapi", EventEdit, Edit{Action: "replace"})

	require.Eventually(t, func() bool {
		return len(parent.byType(EventError)) == 1
	}, time.Second, 5*time.Millisecond)

	errEvent := parent.byType(EventError)[0].Payload.(Error)
	assert.Contains(t, errEvent.Message, "label 7 does not exist")
	assert.Equal(t, StateIdle, m.State(), "machine returns to idle after a failure")
	assert.Empty(t, parent.byType(EventEdited))
}

func TestEditSingleFlight(t *testing.T) {
	var requests atomic.Int32
	release := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
		_, _ = w.Write([]byte(`{}`))
	})
	loop, m, parent := newEditFixture(t, handler)

	loop.Send("editapi", EventEdit, Edit{Action: "flood"})
	require.Eventually(t, func() bool { return m.State() == StateLoading },
		time.Second, time.Millisecond)

	// A second edit while loading must not produce a second request.
	loop.Send("editapi", EventEdit, Edit{Action: "flood"})
	loop.Send("editapi", EventBackendUndo, nil)

	close(release)
	require.Eventually(t, func() bool { return m.State() == StateIdle },
		time.Second, time.Millisecond)

	assert.Equal(t, int32(1), requests.Load())
	assert.Len(t, parent.byType(EventEdited), 1, "one loading-idle cycle per accepted request")
}

func TestUndoRedoRoutes(t *testing.T) {
	var paths []string
	var mu sync.Mutex
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		_, _ = w.Write([]byte(`{}`))
	})
	loop, _, parent := newEditFixture(t, handler)

	loop.Send("editapi", EventBackendUndo, nil)
	require.Eventually(t, func() bool { return len(parent.byType(EventEdited)) == 1 },
		time.Second, time.Millisecond)
	loop.Send("editapi", EventBackendRedo, nil)
	require.Eventually(t, func() bool { return len(parent.byType(EventEdited)) == 2 },
		time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/undo/proj1", "/redo/proj1"}, paths)
}

func TestUploadRunsConcurrentlyWithEdit(t *testing.T) {
	releaseEdit := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/upload/bucket1/proj1" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		<-releaseEdit
		_, _ = w.Write([]byte(`{}`))
	})
	loop, m, parent := newEditFixture(t, handler)

	loop.Send("editapi", EventEdit, Edit{Action: "watershed"})
	require.Eventually(t, func() bool { return m.State() == StateLoading },
		time.Second, time.Millisecond)

	// Upload is not blocked by the in-flight edit.
	loop.Send("editapi", EventUpload, Upload{Bucket: "bucket1"})
	require.Eventually(t, func() bool { return len(parent.byType(EventUploaded)) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, StateLoading, m.State())

	close(releaseEdit)
	require.Eventually(t, func() bool { return m.State() == StateIdle },
		time.Second, time.Millisecond)
}
