// Package recording collects the structured event stream a simulation run
// emits and derives the end-of-run KPI summary from it. The engine
// guarantees events arrive in non-decreasing timestamp order.
package recording

import "sync"

// Event kinds emitted by the fleet driver.
const (
	EvtTrainArrived    = "train-arrived"
	EvtTrainDeparted   = "train-departed"
	EvtWagonClassified = "wagon-classified"
	EvtWagonParked     = "wagon-parked"
	EvtWagonAssigned   = "wagon-assigned"
	EvtWorkshopEnter   = "workshop-enter"
	EvtWorkshopExit    = "workshop-exit"
	EvtMissionStarted  = "mission-started"
	EvtMissionDone     = "mission-done"
	EvtMissionFailed   = "mission-failed"
	EvtBlocked         = "blocked"
	EvtSafetyRejected  = "safety-rejected"
)

// A SimEvent is one structured record of the simulation log. Fields are
// flat scalars so the record maps directly onto a database row; Detail
// carries free-form metadata as a short string.
type SimEvent struct {
	Time     float64 // simulated seconds
	Kind     string
	Entity   string
	Location string
	Status   string
	Duration float64 // simulated seconds
	Detail   string
}

// A Recorder consumes the event stream.
type Recorder interface {
	Record(e SimEvent)
}

// MemoryRecorder keeps every event in order. It backs the summary
// computation and most tests. The engine goroutine records while the
// monitoring server reads, so access is guarded.
type MemoryRecorder struct {
	mu     sync.Mutex
	events []SimEvent
}

// NewMemoryRecorder creates an empty in-memory recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Record appends an event.
func (r *MemoryRecorder) Record(e SimEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events in emission order.
func (r *MemoryRecorder) Events() []SimEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SimEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Tee fans one event stream out to several recorders.
type Tee []Recorder

// Record forwards the event to every recorder.
func (t Tee) Record(e SimEvent) {
	for _, r := range t {
		r.Record(e)
	}
}
