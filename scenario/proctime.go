package scenario

import (
	"fmt"

	"github.com/railwerk/yardsim/sim"
)

// Operation names looked up in the process-time table.
const (
	OpCouple           = "couple"
	OpDecouple         = "decouple"
	OpPosition         = "position"
	OpReverse          = "reverse"
	OpTrainPreparation = "train-preparation"
)

// A ProcessEntry is the duration and resource requirement of one operation
// type. PerWagon is added once per wagon involved.
type ProcessEntry struct {
	Duration  sim.VTimeInSec
	PerWagon  sim.VTimeInSec
	Resources []string
}

// Total returns the duration of the operation applied to n wagons.
func (e ProcessEntry) Total(n int) sim.VTimeInSec {
	return e.Duration + sim.VTimeInSec(n)*e.PerWagon
}

// A ProcessTimeTable maps operation names, optionally qualified by
// location, to durations and resource requirements.
type ProcessTimeTable struct {
	entries    map[string]ProcessEntry
	byLocation map[string]ProcessEntry
}

// NewProcessTimeTable creates an empty table.
func NewProcessTimeTable() *ProcessTimeTable {
	return &ProcessTimeTable{
		entries:    make(map[string]ProcessEntry),
		byLocation: make(map[string]ProcessEntry),
	}
}

// Set registers the entry for an operation.
func (t *ProcessTimeTable) Set(op string, e ProcessEntry) {
	t.entries[op] = e
}

// SetAt registers a location-specific override for an operation.
func (t *ProcessTimeTable) SetAt(op, location string, e ProcessEntry) {
	t.byLocation[op+"@"+location] = e
}

// Lookup resolves an operation at a location. Location-specific overrides
// win over the generic entry.
func (t *ProcessTimeTable) Lookup(op, location string) (ProcessEntry, bool) {
	if location != "" {
		if e, ok := t.byLocation[op+"@"+location]; ok {
			return e, true
		}
	}
	e, ok := t.entries[op]
	return e, ok
}

// MustLookup is Lookup for operations the scenario is required to define.
func (t *ProcessTimeTable) MustLookup(op, location string) ProcessEntry {
	e, ok := t.Lookup(op, location)
	if !ok {
		panic(fmt.Sprintf("process-time table has no entry for %q", op))
	}
	return e
}
