// Package simulation assembles a full yard simulation from a validated
// scenario: the engine, the resource coordinators, the shunting stack, the
// fleet driver, and the recording backends. Use the Builder to construct
// one.
package simulation

import (
	"github.com/railwerk/yardsim/fleet"
	"github.com/railwerk/yardsim/monitoring"
	"github.com/railwerk/yardsim/recording"
	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/sim"
)

// A Simulation is one runnable yard simulation.
type Simulation struct {
	id string

	engine sim.Engine
	scn    *scenario.Scenario
	driver *fleet.Driver

	events       *recording.MemoryRecorder
	dataRecorder recording.DataRecorder
	monitor      *monitoring.Monitor

	stations map[string]int
	started  bool
}

// ID returns the unique ID of the simulation.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the event engine driving the simulation.
func (s *Simulation) Engine() sim.Engine {
	return s.engine
}

// Driver returns the fleet driver, for inspecting entity states.
func (s *Simulation) Driver() *fleet.Driver {
	return s.driver
}

// Scenario returns the scenario the simulation runs.
func (s *Simulation) Scenario() *scenario.Scenario {
	return s.scn
}

// Monitor returns the monitor, or nil when monitoring is off.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// Events returns the events recorded so far, in emission order.
func (s *Simulation) Events() []recording.SimEvent {
	return s.events.Events()
}

// Run executes the simulation: until the configured horizon when one is
// set, otherwise until the event queue drains. Calling Run again resumes a
// horizon-bounded run with a later horizon.
func (s *Simulation) Run() error {
	if !s.started {
		s.driver.Start()
		s.started = true
	}

	var err error
	if s.scn.Config.Horizon > 0 {
		err = s.engine.RunUntil(s.scn.Config.Horizon)
	} else {
		err = s.engine.Run()
	}
	if err != nil {
		return err
	}

	s.engine.Finished()

	return nil
}

// Summary computes the KPI summary of the run so far. Entities still
// pending at the horizon show up as incomplete.
func (s *Simulation) Summary() recording.Summary {
	return recording.BuildSummary(
		s.events.Events(),
		float64(s.engine.CurrentTime()),
		s.stations,
	)
}

// Terminate flushes and closes the recording backends.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		s.dataRecorder.Close()
	}
}
