package sim

// VTimeInSec is a point in simulated time, in seconds.
type VTimeInSec float64

// Minutes converts a duration in simulated minutes to VTimeInSec. Yard
// process-time tables are commonly written in minutes.
func Minutes(m float64) VTimeInSec {
	return VTimeInSec(m * 60)
}

// An Event is something that will happen in the simulated future.
type Event interface {
	// Time returns the time at which the event fires.
	Time() VTimeInSec

	// Handler returns the handler that processes the event.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary events
	// are handled after all same-time primary events are handled.
	IsSecondary() bool
}

// EventBase provides the fields and getters shared by concrete events.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates an EventBase firing at time t, handled by handler.
func NewEventBase(t VTimeInSec, handler Handler) *EventBase {
	e := new(EventBase)
	e.ID = GetIDGenerator().Generate()
	e.time = t
	e.handler = handler
	return e
}

// Time returns the time at which the event fires.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler that processes the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// MakeSecondary marks the event as a secondary event.
func (e *EventBase) MakeSecondary() {
	e.secondary = true
}

// A Handler defines a domain for events. An event is always scheduled by one
// handler and, when fired, may only directly modify that handler's state.
type Handler interface {
	Handle(e Event) error
}
