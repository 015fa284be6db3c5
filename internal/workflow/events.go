package workflow

import "time"

// Event names dispatched to listeners.
const (
	EventMetricUpdated = "metric:updated"
	EventStateSaved    = "state:saved"
)

// Event is delivered to listeners after the engine persists something.
type Event struct {
	Name      string
	Timestamp time.Time
	// Metric is set for metric:updated events.
	Metric *MetricEntry
	// State is a snapshot of the persisted state for state:saved events.
	State *State
}

// Listener receives engine events. Calls are synchronous, in
// registration order, on the goroutine that performed the operation.
type Listener interface {
	OnWorkflowEvent(Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(Event)

// OnWorkflowEvent calls f(ev).
func (f ListenerFunc) OnWorkflowEvent(ev Event) { f(ev) }
