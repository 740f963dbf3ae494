package main

import (
	"fmt"

	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

// demoScenario builds a two-workshop yard: trains arrive at a collection
// group, feeder missions cross the entry throat, and retrofitted wagons
// gather on a dedicated track before departing.
//
//	c1 \           / w1
//	    m -- f -- g      r -- p
//	c2 /           \ w2 /
func demoScenario(
	cfg scenario.Config,
	wagonCount, stations int,
) (*scenario.Scenario, error) {
	nodes := []yard.Node{
		{ID: "c1", X: 0, Y: 0},
		{ID: "c2", X: 0, Y: 200},
		{ID: "m", X: 150, Y: 100},
		{ID: "f", X: 300, Y: 100},
		{ID: "g", X: 450, Y: 100},
		{ID: "w1", X: 600, Y: 0},
		{ID: "w2", X: 600, Y: 200},
		{ID: "r", X: 750, Y: 100},
		{ID: "p", X: 900, Y: 100},
	}
	edges := []yard.Edge{
		{ID: "e_c1m", From: "c1", To: "m", Length: 150, Bidirectional: true},
		{ID: "e_c2m", From: "c2", To: "m", Length: 150, Bidirectional: true},
		{ID: "e_mf", From: "m", To: "f", Length: 150, Bidirectional: true},
		{ID: "e_fg", From: "f", To: "g", Length: 150, Bidirectional: true},
		{ID: "e_gw1", From: "g", To: "w1", Length: 180,
			SpeedLimit: 5, Bidirectional: true},
		{ID: "e_gw2", From: "g", To: "w2", Length: 180,
			SpeedLimit: 5, Bidirectional: true},
		{ID: "e_w1r", From: "w1", To: "r", Length: 180, Bidirectional: true},
		{ID: "e_w2r", From: "w2", To: "r", Length: 180, Bidirectional: true},
		{ID: "e_rp", From: "r", To: "p", Length: 150, Bidirectional: true},
	}
	tracks := []*yard.Track{
		{ID: "T_c1", Type: yard.TrackCollection, Capacity: 500, NodeID: "c1"},
		{ID: "T_c2", Type: yard.TrackCollection, Capacity: 500, NodeID: "c2"},
		{ID: "T_feed", Type: yard.TrackFeeder, Capacity: 400, NodeID: "f"},
		{ID: "T_ws1", Type: yard.TrackWorkshop, Capacity: 300, NodeID: "w1"},
		{ID: "T_ws2", Type: yard.TrackWorkshop, Capacity: 300, NodeID: "w2"},
		{ID: "T_ret", Type: yard.TrackRetrofitted, Capacity: 800, NodeID: "r"},
		{ID: "T_park", Type: yard.TrackParking, Capacity: 800, NodeID: "p"},
	}
	// The entry throat serializes routes over node m; the declared
	// connections share that switch, so crossings never run in parallel.
	throats := []yard.Throat{{
		ID:       "th_entry",
		Switches: []string{"m"},
		Entries:  []string{"c1", "c2"},
		Exits:    []string{"f"},
		Limit:    1,
		Connections: []yard.ThroatConnection{
			{From: "c1", To: "f", Switches: []string{"m"}},
			{From: "c2", To: "f", Switches: []string{"m"}},
		},
	}}

	layout, err := yard.NewLayout(nodes, edges, tracks, throats, nil, 8)
	if err != nil {
		return nil, err
	}

	proc := scenario.NewProcessTimeTable()
	proc.Set(scenario.OpCouple,
		scenario.ProcessEntry{Duration: sim.Minutes(1), PerWagon: 15})
	proc.Set(scenario.OpDecouple,
		scenario.ProcessEntry{Duration: sim.Minutes(1), PerWagon: 15})
	proc.Set(scenario.OpReverse,
		scenario.ProcessEntry{Duration: sim.Minutes(2)})
	proc.Set(scenario.OpTrainPreparation,
		scenario.ProcessEntry{Duration: sim.Minutes(10), PerWagon: 30})
	// Coupling on the second collection track is slower; its head sits on
	// a grade.
	proc.SetAt(scenario.OpCouple, "T_c2",
		scenario.ProcessEntry{Duration: sim.Minutes(2), PerWagon: 15})

	wagons := make([]*scenario.Wagon, 0, wagonCount)
	var first, second []string
	for i := 1; i <= wagonCount; i++ {
		id := fmt.Sprintf("W%02d", i)
		w := &scenario.Wagon{ID: id, Length: 18, NeedsRetrofit: true}
		// Every sixth wagon arrives loaded and skips the workshops.
		if i%6 == 0 {
			w.Loaded = true
			w.NeedsRetrofit = false
		}
		wagons = append(wagons, w)
		if i <= wagonCount/2 {
			first = append(first, id)
		} else {
			second = append(second, id)
		}
	}

	trains := []*scenario.Train{
		{ID: "TR1", Arrival: 0, WagonIDs: first},
		{ID: "TR2", Arrival: sim.Minutes(30), WagonIDs: second},
	}

	locos := []*scenario.Locomotive{
		{ID: "L1", HomeTrack: "T_park"},
		{ID: "L2", HomeTrack: "T_park",
			Validity: yard.Window{Start: 0, End: sim.Minutes(480)}},
	}

	workshops := []*scenario.Workshop{
		{ID: "ws1", TrackID: "T_ws1", Stations: stations,
			ProcessingTime: sim.Minutes(45)},
		{ID: "ws2", TrackID: "T_ws2", Stations: stations,
			ProcessingTime: sim.Minutes(60)},
	}

	return scenario.New(layout, trains, wagons, locos, workshops, proc, cfg)
}
