package simulation

import (
	"io"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/railwerk/yardsim/fleet"
	"github.com/railwerk/yardsim/monitoring"
	"github.com/railwerk/yardsim/recording"
	"github.com/railwerk/yardsim/resources"
	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/selection"
	"github.com/railwerk/yardsim/shunting"
	"github.com/railwerk/yardsim/sim"
)

// Builder builds a simulation over a scenario.
type Builder struct {
	scn *scenario.Scenario
	log *logrus.Logger

	maxShuntSpeed float64

	monitorOn   bool
	monitorPort int
	openBrowser bool

	dbRecordingOn  bool
	outputFileName string
}

// MakeBuilder creates a builder with monitoring and database recording off.
func MakeBuilder() Builder {
	return Builder{}
}

// WithScenario sets the scenario to simulate. Required.
func (b Builder) WithScenario(scn *scenario.Scenario) Builder {
	b.scn = scn
	return b
}

// WithLogger sets the logger. By default logs are discarded.
func (b Builder) WithLogger(log *logrus.Logger) Builder {
	b.log = log
	return b
}

// WithMaxShuntSpeed caps every shunting movement, in m/s. Zero means no
// cap beyond the per-edge limits.
func (b Builder) WithMaxShuntSpeed(speed float64) Builder {
	b.maxShuntSpeed = speed
	return b
}

// WithMonitoring starts the monitoring server when the simulation is built.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithMonitorPort sets the port of the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithBrowser opens the monitoring page in the local browser.
func (b Builder) WithBrowser() Builder {
	b.openBrowser = true
	return b
}

// WithDataRecording writes the event stream to a SQLite database in
// addition to keeping it in memory.
func (b Builder) WithDataRecording() Builder {
	b.dbRecordingOn = true
	return b
}

// WithOutputFileName sets the database file name used with data recording.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

func (b Builder) parametersMustBeValid() {
	if b.scn == nil {
		panic("a scenario is required to build a simulation")
	}
	if !b.monitorOn && (b.monitorPort != 0 || b.openBrowser) {
		panic("monitor options cannot be set when monitoring is disabled")
	}
	if !b.dbRecordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when data recording is disabled")
	}
}

// Build assembles the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	log := b.log
	if log == nil {
		log = logrus.New()
		log.SetOutput(io.Discard)
	}

	s := &Simulation{
		id:     xid.New().String(),
		scn:    b.scn,
		events: recording.NewMemoryRecorder(),
	}

	s.engine = sim.NewSerialEngine()
	s.engine.AcceptHook(sim.NewEventLogger(log))

	cfg := b.scn.Config
	layout := b.scn.Layout

	policy, err := selection.New(cfg.SelectionPolicy, cfg.Seed)
	if err != nil {
		// The scenario validated the policy name already.
		panic(err)
	}

	tracks := resources.NewTrackCoordinator(
		layout, cfg.AdmissionThreshold, policy)
	workshops := resources.NewWorkshopCoordinator(b.scn.Workshops)
	locos := resources.NewLocomotiveCoordinator(b.scn.Locomotives)
	throats := resources.NewThroatCoordinator(layout)

	planner := shunting.NewPlanner(layout, b.scn.ProcTable)
	resolver := shunting.NewResolver(planner, layout, log)
	safety := shunting.NewSafetyController(layout, b.maxShuntSpeed)

	s.stations = make(map[string]int)
	for _, w := range b.scn.Workshops {
		s.stations[w.ID] = w.Stations
	}

	rec := recording.Tee{s.events}
	if b.dbRecordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "yardsim_" + s.id
		}
		s.dataRecorder = recording.NewDataRecorder(outputPath)
		rec = append(rec, recording.NewSQLiteRecorder(s.dataRecorder))
	}
	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		if b.openBrowser {
			s.monitor.WithBrowser()
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.RegisterYard(layout, s.stations)
		s.monitor.TrackRetrofitProgress(countRetrofitWagons(b.scn))
		rec = append(rec, s.monitor)
		s.monitor.StartServer()
	}

	s.driver = fleet.NewDriver(s.engine, b.scn, tracks, workshops, locos,
		throats, planner, resolver, safety, rec, log)

	return s
}

func countRetrofitWagons(scn *scenario.Scenario) int {
	n := 0
	for _, t := range scn.Trains {
		for _, wID := range t.WagonIDs {
			w := scn.Wagons[wID]
			if w.NeedsRetrofit && !w.Loaded {
				n++
			}
		}
	}
	return n
}
