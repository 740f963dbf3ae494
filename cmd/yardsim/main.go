// Command yardsim runs a retrofit-yard simulation and prints the KPI
// summary. Without a scenario flag it runs a built-in demonstration yard.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/selection"
	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/simulation"
)

var rootCmd = &cobra.Command{
	Use:   "yardsim",
	Short: "Discrete-event simulation of a wagon retrofit yard",
}

var runFlags struct {
	horizonMin float64
	seed       int64
	lotSize    int
	threshold  float64
	policy     string
	wagons     int
	stations   int

	monitor     bool
	monitorPort int
	browser     bool

	record bool
	output string

	verbose bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demonstration scenario",
	RunE:  runSimulation,
}

func init() {
	f := runCmd.Flags()
	f.Float64Var(&runFlags.horizonMin, "horizon", 0,
		"end the run after this many simulated minutes (0 = run to completion)")
	f.Int64Var(&runFlags.seed, "seed", 0, "seed for random choices")
	f.IntVar(&runFlags.lotSize, "lot-size", 4,
		"wagons batched per feeder mission")
	f.Float64Var(&runFlags.threshold, "threshold", 0.8,
		"fraction of track capacity that may be occupied")
	f.StringVar(&runFlags.policy, "policy", selection.PolicyFirstAvailable,
		"track selection policy (round-robin, least-occupied, "+
			"first-available, random)")
	f.IntVar(&runFlags.wagons, "wagons", 12,
		"wagons arriving in the demonstration scenario")
	f.IntVar(&runFlags.stations, "stations", 3,
		"workshop stations in the demonstration scenario")

	f.BoolVar(&runFlags.monitor, "monitor", false,
		"serve live status over HTTP")
	f.IntVar(&runFlags.monitorPort, "monitor-port", 0,
		"port of the monitoring server (0 = random)")
	f.BoolVar(&runFlags.browser, "browser", false,
		"open the monitoring page in the local browser")

	f.BoolVar(&runFlags.record, "record", false,
		"write the event stream to a SQLite database")
	f.StringVar(&runFlags.output, "output", "",
		"database file name used with --record")

	f.BoolVar(&runFlags.verbose, "verbose", false, "log every event")

	rootCmd.AddCommand(runCmd)
}

func runSimulation(_ *cobra.Command, _ []string) error {
	applyEnv()

	log := logrus.New()
	if runFlags.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	scn, err := demoScenario(scenario.Config{
		AdmissionThreshold: runFlags.threshold,
		LotSize:            runFlags.lotSize,
		SelectionPolicy:    runFlags.policy,
		Seed:               runFlags.seed,
		Horizon:            sim.Minutes(runFlags.horizonMin),
	}, runFlags.wagons, runFlags.stations)
	if err != nil {
		return err
	}

	b := simulation.MakeBuilder().
		WithScenario(scn).
		WithLogger(log)
	if runFlags.monitor {
		b = b.WithMonitoring()
		if runFlags.monitorPort > 0 {
			b = b.WithMonitorPort(runFlags.monitorPort)
		}
		if runFlags.browser {
			b = b.WithBrowser()
		}
	}
	if runFlags.record {
		b = b.WithDataRecording()
		if runFlags.output != "" {
			b = b.WithOutputFileName(runFlags.output)
		}
	}

	s := b.Build()
	atexit.Register(s.Terminate)

	if err := s.Run(); err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	fmt.Print(s.Summary().String())

	return nil
}

// applyEnv lets a .env file or the environment preset the monitoring
// flags, so deployments do not need to repeat them on every invocation.
func applyEnv() {
	_ = godotenv.Load()

	if v := os.Getenv("YARDSIM_MONITOR"); v == "1" || v == "true" {
		runFlags.monitor = true
	}
	if v := os.Getenv("YARDSIM_MONITOR_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			runFlags.monitorPort = port
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Fatal(err)
	}
	atexit.Exit(0)
}
