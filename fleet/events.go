package fleet

import (
	"github.com/railwerk/yardsim/resources"
	"github.com/railwerk/yardsim/shunting"
	"github.com/railwerk/yardsim/sim"
)

// trainArrivalEvent fires when a train reaches the yard entrance.
type trainArrivalEvent struct {
	*sim.EventBase

	train *Train
}

func newTrainArrivalEvent(
	t sim.VTimeInSec, h sim.Handler, train *Train,
) *trainArrivalEvent {
	return &trainArrivalEvent{EventBase: sim.NewEventBase(t, h), train: train}
}

// wagonClassifyEvent attempts to place one wagon on a collection track.
// Rescheduled with a delay when every collection track is full.
type wagonClassifyEvent struct {
	*sim.EventBase

	wagonID string
}

func newWagonClassifyEvent(
	t sim.VTimeInSec, h sim.Handler, wagonID string,
) *wagonClassifyEvent {
	return &wagonClassifyEvent{
		EventBase: sim.NewEventBase(t, h), wagonID: wagonID,
	}
}

// wagonParkEvent moves a wagon that bypasses the workshops onto a parking
// track.
type wagonParkEvent struct {
	*sim.EventBase

	wagonID string
}

func newWagonParkEvent(
	t sim.VTimeInSec, h sim.Handler, wagonID string,
) *wagonParkEvent {
	return &wagonParkEvent{EventBase: sim.NewEventBase(t, h), wagonID: wagonID}
}

// missionArbitrateEvent hands the pending missions to the resolver. It is
// secondary so every mission requested at one instant joins the same
// arbitration round.
type missionArbitrateEvent struct {
	*sim.EventBase
}

func newMissionArbitrateEvent(
	t sim.VTimeInSec, h sim.Handler,
) *missionArbitrateEvent {
	e := &missionArbitrateEvent{EventBase: sim.NewEventBase(t, h)}
	e.MakeSecondary()
	return e
}

// missionRetryEvent re-submits a delayed mission for arbitration.
type missionRetryEvent struct {
	*sim.EventBase

	mission *shunting.Mission
}

func newMissionRetryEvent(
	t sim.VTimeInSec, h sim.Handler, mission *shunting.Mission,
) *missionRetryEvent {
	return &missionRetryEvent{
		EventBase: sim.NewEventBase(t, h), mission: mission,
	}
}

// missionCompleteEvent fires when an executing mission finishes its plan.
type missionCompleteEvent struct {
	*sim.EventBase

	missionID string
}

func newMissionCompleteEvent(
	t sim.VTimeInSec, h sim.Handler, missionID string,
) *missionCompleteEvent {
	return &missionCompleteEvent{
		EventBase: sim.NewEventBase(t, h), missionID: missionID,
	}
}

// workshopEntryEvent tries to move a waiting wagon onto a workshop station.
type workshopEntryEvent struct {
	*sim.EventBase

	wagonID string
}

func newWorkshopEntryEvent(
	t sim.VTimeInSec, h sim.Handler, wagonID string,
) *workshopEntryEvent {
	return &workshopEntryEvent{
		EventBase: sim.NewEventBase(t, h), wagonID: wagonID,
	}
}

// workshopDoneEvent fires when a wagon's retrofit finishes. It carries the
// station handle so the station frees exactly when processing ends.
type workshopDoneEvent struct {
	*sim.EventBase

	wagonID    string
	workshopID string
	station    *resources.Handle
}

func newWorkshopDoneEvent(
	t sim.VTimeInSec, h sim.Handler,
	wagonID, workshopID string,
	station *resources.Handle,
) *workshopDoneEvent {
	return &workshopDoneEvent{
		EventBase:  sim.NewEventBase(t, h),
		wagonID:    wagonID,
		workshopID: workshopID,
		station:    station,
	}
}

// trainDepartEvent fires when an assembled train finishes preparation.
type trainDepartEvent struct {
	*sim.EventBase

	train *Train
}

func newTrainDepartEvent(
	t sim.VTimeInSec, h sim.Handler, train *Train,
) *trainDepartEvent {
	return &trainDepartEvent{EventBase: sim.NewEventBase(t, h), train: train}
}
