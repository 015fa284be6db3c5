package gate

// Event names delivered to listeners.
const (
	EventTriggered    = "gate:triggered"
	EventReviewed     = "gate:reviewed"
	EventResolved     = "gate:resolved"
	EventNotification = "gate:notification"
)

// Event carries a snapshot of the gate after the change.
type Event struct {
	Name         string
	Gate         *Gate
	Notification *Notification
}

// Listener receives gate events synchronously, after the change is saved.
// Listeners must not call back into the Manager.
type Listener interface {
	OnGateEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

// OnGateEvent calls f(e).
func (f ListenerFunc) OnGateEvent(e Event) { f(e) }
