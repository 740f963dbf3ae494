package sim

import (
	"log"
	"reflect"
	"sync"
)

// A SerialEngine runs events one after another on a single goroutine. All
// events are totally ordered by (time, insertion sequence), so two runs over
// the same schedule produce identical dispatch orders.
type SerialEngine struct {
	HookableBase

	timeLock       sync.RWMutex
	time           VTimeInSec
	queue          EventQueue
	secondaryQueue EventQueue

	cancelled map[Event]struct{}

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	simulationEndHandlers []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine.
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()
	e.secondaryQueue = NewEventQueue()
	e.cancelled = make(map[Event]struct{})

	return e
}

// Schedule registers an event to fire in the future.
func (e *SerialEngine) Schedule(evt Event) {
	now := e.readNow()
	if evt.Time() < now {
		log.Panic("scheduling an event earlier than current time")
	}

	if evt.IsSecondary() {
		e.secondaryQueue.Push(evt)
		return
	}

	e.queue.Push(evt)
}

// Cancel marks a scheduled event as cancelled. The event stays in the queue
// but is discarded instead of dispatched when its time comes.
func (e *SerialEngine) Cancel(evt Event) {
	e.cancelled[evt] = struct{}{}
}

func (e *SerialEngine) readNow() VTimeInSec {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()
	return t
}

func (e *SerialEngine) writeNow(t VTimeInSec) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine.
func (e *SerialEngine) Run() error {
	return e.runUntil(-1)
}

// RunUntil processes events up to and including the horizon. Later events
// remain queued.
func (e *SerialEngine) RunUntil(horizon VTimeInSec) error {
	return e.runUntil(horizon)
}

func (e *SerialEngine) runUntil(horizon VTimeInSec) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for {
		if e.noMoreEvent() {
			return nil
		}

		e.pauseLock.Lock()

		evt, ok := e.nextEvent(horizon)
		if !ok {
			e.pauseLock.Unlock()
			return nil
		}

		if _, isCancelled := e.cancelled[evt]; isCancelled {
			delete(e.cancelled, evt)
			e.pauseLock.Unlock()
			continue
		}

		now := e.readNow()
		if evt.Time() < now {
			log.Panicf(
				"cannot run event in the past, evt %s @ %.10f, now %.10f",
				reflect.TypeOf(evt), evt.Time(), now,
			)
		}
		e.writeNow(evt.Time())

		hookCtx := HookCtx{
			Domain: e,
			Pos:    HookPosBeforeEvent,
			Item:   evt,
		}
		e.InvokeHook(hookCtx)

		handler := evt.Handler()
		_ = handler.Handle(evt)

		hookCtx.Pos = HookPosAfterEvent
		e.InvokeHook(hookCtx)

		e.pauseLock.Unlock()
	}
}

func (e *SerialEngine) noMoreEvent() bool {
	return e.queue.Len() == 0 && e.secondaryQueue.Len() == 0
}

// nextEvent pops the earliest event over both queues. Primary events win
// time ties against secondary events. Returns false once the earliest event
// lies beyond the horizon.
func (e *SerialEngine) nextEvent(horizon VTimeInSec) (Event, bool) {
	var evt Event

	switch {
	case e.queue.Len() == 0:
		evt = e.secondaryQueue.Peek()
	case e.secondaryQueue.Len() == 0:
		evt = e.queue.Peek()
	default:
		primaryEvt := e.queue.Peek()
		secondaryEvt := e.secondaryQueue.Peek()
		if primaryEvt.Time() <= secondaryEvt.Time() {
			evt = primaryEvt
		} else {
			evt = secondaryEvt
		}
	}

	if horizon >= 0 && evt.Time() > horizon {
		return nil, false
	}

	if evt.IsSecondary() {
		return e.secondaryQueue.Pop(), true
	}
	return e.queue.Pop(), true
}

// Pause prevents the SerialEngine from triggering more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the time of the event currently being processed.
func (e *SerialEngine) CurrentTime() VTimeInSec {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler invoked after the
// simulation finishes.
func (e *SerialEngine) RegisterSimulationEndHandler(
	handler SimulationEndHandler,
) {
	e.simulationEndHandlers = append(e.simulationEndHandlers, handler)
}

// Finished calls all the registered SimulationEndHandlers. It should be
// called once, after Run or RunUntil returns.
func (e *SerialEngine) Finished() {
	now := e.readNow()
	for _, h := range e.simulationEndHandlers {
		h.Handle(now)
	}
}
