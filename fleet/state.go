// Package fleet drives the entities of a retrofit yard through their
// lifecycle. The Driver is the single event handler of a run: it reacts to
// train arrivals, classifies wagons, batches shunting missions, moves
// wagons through the workshops, and assembles outbound trains. All mutable
// entity state lives here; the static scenario and the layout are never
// written after construction.
package fleet

import (
	"fmt"

	"github.com/railwerk/yardsim/scenario"
)

// WagonState is the lifecycle state of a wagon.
type WagonState int

const (
	// WagonInbound is the state before the carrying train has arrived.
	WagonInbound WagonState = iota
	// WagonSelectedForRetrofit sits on a collection track waiting for a
	// feeder mission.
	WagonSelectedForRetrofit
	// WagonRoutedToParking bypasses the workshops.
	WagonRoutedToParking
	// WagonDispatched is part of a pending shunting mission.
	WagonDispatched
	// WagonInTransit is part of an executing shunting mission.
	WagonInTransit
	// WagonAwaitingWorkshop sits on a feeder track waiting for a free
	// station.
	WagonAwaitingWorkshop
	// WagonInWorkshop occupies a workshop station.
	WagonInWorkshop
	// WagonRetrofitted finished processing and waits for a return mission.
	WagonRetrofitted
	// WagonAtParking is parked and available for outbound assembly.
	WagonAtParking
	// WagonAssigned belongs to an outbound train being prepared.
	WagonAssigned
	// WagonDeparted left the yard.
	WagonDeparted
)

var wagonStateNames = map[WagonState]string{
	WagonInbound:             "inbound",
	WagonSelectedForRetrofit: "selected-for-retrofit",
	WagonRoutedToParking:     "routed-to-parking",
	WagonDispatched:          "dispatched",
	WagonInTransit:           "in-transit",
	WagonAwaitingWorkshop:    "awaiting-workshop",
	WagonInWorkshop:          "in-workshop",
	WagonRetrofitted:         "retrofitted",
	WagonAtParking:           "at-parking",
	WagonAssigned:            "assigned",
	WagonDeparted:            "departed",
}

func (s WagonState) String() string {
	if n, ok := wagonStateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("wagon-state-%d", int(s))
}

// TrainState is the lifecycle state of a train.
type TrainState int

const (
	TrainScheduled TrainState = iota
	TrainArrived
	TrainAssembling
	TrainDeparted
)

func (s TrainState) String() string {
	switch s {
	case TrainScheduled:
		return "scheduled"
	case TrainArrived:
		return "arrived"
	case TrainAssembling:
		return "assembling"
	case TrainDeparted:
		return "departed"
	}
	return fmt.Sprintf("train-state-%d", int(s))
}

// A Wagon is the mutable run state of one wagon. NeedsRetrofit starts as
// the scenario value and flips to false exactly once, when the workshop
// finishes.
type Wagon struct {
	Spec *scenario.Wagon

	NeedsRetrofit bool
	State         WagonState
	TrackID       string
	TrainID       string // inbound train
}

// A Train is the mutable run state of one train. WagonIDs holds the
// outbound assignment; membership is reassignable, so it usually differs
// from the arrival consist.
type Train struct {
	Spec *scenario.Train

	State    TrainState
	WagonIDs []string
}
