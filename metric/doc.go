// Package metric provides Prometheus instrumentation: a registry carrying
// the core platform metrics (scheduler throughput, edit outcomes, undo
// cycles, gateway connections) plus registration for component-specific
// collectors, and hooks that attach the core metrics to a running project.
package metric
