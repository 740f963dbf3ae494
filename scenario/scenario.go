// Package scenario defines the validated root aggregate consumed by the
// simulation: rolling stock, workshops, locomotives, the process-time
// table, and the run configuration. A scenario is assembled and validated
// once before the clock starts and is never mutated afterwards; all mutable
// run state lives with the fleet driver and the resource coordinators.
//
// Parsing scenarios from JSON or CSV is a concern of external tooling; this
// package only accepts already-resolved values.
package scenario

import (
	"fmt"

	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

// A Wagon is one vehicle arriving with a train.
type Wagon struct {
	ID            string
	Length        float64 // meters, including coupler allowance
	Loaded        bool
	NeedsRetrofit bool
}

// A Train is an ordered set of wagons with an arrival time. Wagon
// membership is reassignable: an outbound train may leave with different
// wagons than it arrived with.
type Train struct {
	ID       string
	Arrival  sim.VTimeInSec
	WagonIDs []string
}

// A Locomotive is a shunting engine with a validity window. Outside the
// window it cannot be dispatched.
type Locomotive struct {
	ID        string
	HomeTrack string
	Validity  yard.Window
}

// A Workshop is bound to one workshop-type track. Stations bound the number
// of wagons retrofitted concurrently.
type Workshop struct {
	ID             string
	TrackID        string
	Stations       int
	ProcessingTime sim.VTimeInSec // per wagon
}

// A Scenario owns everything one simulation run needs.
type Scenario struct {
	Layout      *yard.Layout
	Trains      []*Train
	Wagons      map[string]*Wagon
	Locomotives []*Locomotive
	Workshops   []*Workshop
	ProcTable   *ProcessTimeTable
	Config      Config
}

// New validates and assembles a scenario. Any structural inconsistency is
// fatal here, before the simulation clock ever starts.
func New(
	layout *yard.Layout,
	trains []*Train,
	wagons []*Wagon,
	locomotives []*Locomotive,
	workshops []*Workshop,
	procTable *ProcessTimeTable,
	cfg Config,
) (*Scenario, error) {
	if layout == nil {
		return nil, fmt.Errorf("scenario: layout is required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if procTable == nil {
		procTable = NewProcessTimeTable()
	}

	s := &Scenario{
		Layout:      layout,
		Trains:      trains,
		Wagons:      make(map[string]*Wagon),
		Locomotives: locomotives,
		Workshops:   workshops,
		ProcTable:   procTable,
		Config:      cfg,
	}

	for _, w := range wagons {
		if _, dup := s.Wagons[w.ID]; dup {
			return nil, fmt.Errorf("scenario: duplicate wagon %q", w.ID)
		}
		if w.Length <= 0 {
			return nil, fmt.Errorf(
				"scenario: wagon %q: length must be positive", w.ID)
		}
		s.Wagons[w.ID] = w
	}

	if err := s.validateTrains(); err != nil {
		return nil, err
	}
	if err := s.validateLocomotives(); err != nil {
		return nil, err
	}
	if err := s.validateWorkshops(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Scenario) validateTrains() error {
	seen := make(map[string]string)
	for _, t := range s.Trains {
		if t.Arrival < 0 {
			return fmt.Errorf("scenario: train %q: negative arrival", t.ID)
		}
		for _, wID := range t.WagonIDs {
			if _, ok := s.Wagons[wID]; !ok {
				return fmt.Errorf(
					"scenario: train %q references unknown wagon %q",
					t.ID, wID)
			}
			if other, dup := seen[wID]; dup {
				return fmt.Errorf(
					"scenario: wagon %q arrives with both train %q and %q",
					wID, other, t.ID)
			}
			seen[wID] = t.ID
		}
	}
	return nil
}

func (s *Scenario) validateLocomotives() error {
	for _, l := range s.Locomotives {
		track, ok := s.Layout.Track(l.HomeTrack)
		if !ok {
			return fmt.Errorf(
				"scenario: locomotive %q: unknown home track %q",
				l.ID, l.HomeTrack)
		}
		if track.Type != yard.TrackParking &&
			track.Type != yard.TrackCirculating {
			return fmt.Errorf(
				"scenario: locomotive %q: home track %q is %s, want parking or circulating",
				l.ID, l.HomeTrack, track.Type)
		}
	}
	return nil
}

func (s *Scenario) validateWorkshops() error {
	boundTracks := make(map[string]string)
	for _, w := range s.Workshops {
		track, ok := s.Layout.Track(w.TrackID)
		if !ok {
			return fmt.Errorf(
				"scenario: workshop %q: unknown track %q", w.ID, w.TrackID)
		}
		if track.Type != yard.TrackWorkshop {
			return fmt.Errorf(
				"scenario: workshop %q: track %q is %s, want workshop",
				w.ID, w.TrackID, track.Type)
		}
		if other, dup := boundTracks[w.TrackID]; dup {
			return fmt.Errorf(
				"scenario: track %q bound to both workshop %q and %q",
				w.TrackID, other, w.ID)
		}
		boundTracks[w.TrackID] = w.ID
		if w.Stations <= 0 {
			return fmt.Errorf(
				"scenario: workshop %q: station count must be positive", w.ID)
		}
		if w.ProcessingTime <= 0 {
			return fmt.Errorf(
				"scenario: workshop %q: processing time must be positive",
				w.ID)
		}
	}
	return nil
}
