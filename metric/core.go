package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level metrics shared by every project
type Metrics struct {
	// actor scheduler
	EventsDispatched *prometheus.CounterVec

	// edit service
	EditsTotal   *prometheus.CounterVec
	EditDuration *prometheus.HistogramVec

	// undo coordination
	UndoOperations *prometheus.CounterVec
	EditIndex      *prometheus.GaugeVec

	// gateway
	ClientsConnected  *prometheus.GaugeVec
	ClientsDropped    *prometheus.CounterVec
	MessagesBroadcast *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EventsDispatched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deepcell",
				Subsystem: "actor",
				Name:      "events_dispatched_total",
				Help:      "Total number of events delivered by the scheduler",
			},
			[]string{"project", "event"},
		),

		EditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deepcell",
				Subsystem: "edits",
				Name:      "total",
				Help:      "Total number of label edit requests by outcome",
			},
			[]string{"project", "action", "status"},
		),

		EditDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "deepcell",
				Subsystem: "edits",
				Name:      "duration_seconds",
				Help:      "Label edit request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"project", "action"},
		),

		UndoOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deepcell",
				Subsystem: "undo",
				Name:      "operations_total",
				Help:      "Completed save/undo/redo barrier cycles",
			},
			[]string{"project", "operation"},
		),

		EditIndex: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "deepcell",
				Subsystem: "undo",
				Name:      "edit_index",
				Help:      "Current edit index (number of applied edits)",
			},
			[]string{"project"},
		),

		ClientsConnected: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "deepcell",
				Subsystem: "gateway",
				Name:      "clients_connected",
				Help:      "Currently connected websocket clients",
			},
			[]string{"project"},
		),

		ClientsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deepcell",
				Subsystem: "gateway",
				Name:      "clients_dropped_total",
				Help:      "Clients disconnected for not keeping up",
			},
			[]string{"project"},
		),

		MessagesBroadcast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "deepcell",
				Subsystem: "gateway",
				Name:      "messages_broadcast_total",
				Help:      "Events broadcast to websocket clients per bus",
			},
			[]string{"project", "bus"},
		),
	}
}
