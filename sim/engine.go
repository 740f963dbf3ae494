package sim

// TimeTeller can be used to get the current simulated time.
type TimeTeller interface {
	CurrentTime() VTimeInSec
}

// EventScheduler can be used to schedule and cancel future events.
type EventScheduler interface {
	Schedule(e Event)

	// Cancel removes a not-yet-fired event from the schedule. Cancelling an
	// event that already fired, or was never scheduled, has no effect.
	Cancel(e Event)
}

// A SimulationEndHandler is called once after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInSec)
}

// An Engine drives a discrete event simulation.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until no event is left.
	Run() error

	// RunUntil processes events until no event is left or the next event
	// would fire after the horizon. Events beyond the horizon stay queued;
	// they are reported by the caller as incomplete, not treated as errors.
	RunUntil(horizon VTimeInSec) error

	// Pause prevents the engine from triggering more events until Continue
	// is called.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	// RegisterSimulationEndHandler registers a handler invoked after the
	// simulation finishes.
	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all registered SimulationEndHandlers.
	Finished()
}
