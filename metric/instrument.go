package metric

import (
	"time"

	"github.com/scottjudy/deepcell-label/actor"
	"github.com/scottjudy/deepcell-label/editapi"
	"github.com/scottjudy/deepcell-label/history"
)

// InstrumentLoop counts every event the scheduler delivers, labeled by
// event type
func (r *Registry) InstrumentLoop(projectID string, loop *actor.Loop) {
	events := r.Metrics.EventsDispatched
	loop.OnDeliver = func(_ string, ev actor.Event) {
		events.WithLabelValues(projectID, ev.Type).Inc()
	}
}

// InstrumentEditAPI records edit outcomes and request latency
func (r *Registry) InstrumentEditAPI(projectID string, m *editapi.Machine) {
	edits := r.Metrics.EditsTotal
	duration := r.Metrics.EditDuration
	m.OnResult = func(action, status string, elapsed time.Duration) {
		edits.WithLabelValues(projectID, action, status).Inc()
		duration.WithLabelValues(projectID, action).Observe(elapsed.Seconds())
	}
}

// InstrumentUndo counts completed barrier cycles and tracks the edit index
func (r *Registry) InstrumentUndo(projectID string, c *history.Coordinator) {
	operations := r.Metrics.UndoOperations
	editIndex := r.Metrics.EditIndex
	c.OnComplete = func(operation string) {
		operations.WithLabelValues(projectID, operation).Inc()
		editIndex.WithLabelValues(projectID).Set(float64(c.EditIndex()))
	}
}
