package actor

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/scottjudy/deepcell-label/errors"
)

// RootOwner is the owner id used when spawning a machine with no parent.
const RootOwner = ""

// Registry is the actor arena: a central id-to-machine map. A spawning
// parent holds the owning key; siblings hold the same key as a non-owning
// lookup handle. Stopping a machine removes the arena entry and recursively
// stops the machines it spawned, invalidating every handle at once.
type Registry struct {
	machines map[string]Machine
	children map[string][]string // owner id -> spawned ids, in spawn order
	logger   *slog.Logger
	mu       sync.RWMutex
}

// NewRegistry creates an empty actor registry
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		machines: make(map[string]Machine),
		children: make(map[string][]string),
		logger:   logger.With("component", "Registry"),
	}
}

// Spawn registers a machine under the given owner. Duplicate ids are
// invalid: an id must address exactly one machine for its whole lifetime.
func (r *Registry) Spawn(ownerID string, m Machine) error {
	if m == nil || m.ID() == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Spawn", "machine validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := m.ID()
	if _, exists := r.machines[id]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %q", errors.ErrActorExists, id),
			"Registry", "Spawn", "duplicate id check")
	}

	r.machines[id] = m
	if ownerID != RootOwner {
		r.children[ownerID] = append(r.children[ownerID], id)
	}

	r.logger.Debug("spawned actor", "id", id, "owner", ownerID)
	return nil
}

// Stop removes a machine and, recursively, every machine it spawned.
// Stopping an unknown id is a no-op.
func (r *Registry) Stop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked(id)
}

func (r *Registry) stopLocked(id string) {
	if _, exists := r.machines[id]; !exists {
		return
	}
	for _, child := range r.children[id] {
		r.stopLocked(child)
	}
	delete(r.children, id)
	delete(r.machines, id)
	r.logger.Debug("stopped actor", "id", id)
}

// Lookup returns the machine registered under id, if any
func (r *Registry) Lookup(id string) (Machine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.machines[id]
	return m, ok
}

// Children returns the ids spawned by owner, in spawn order
func (r *Registry) Children(owner string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.children[owner]))
	copy(out, r.children[owner])
	return out
}

// Len returns the number of registered machines
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.machines)
}
