package fleet

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/railwerk/yardsim/recording"
	"github.com/railwerk/yardsim/resources"
	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/shunting"
	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

// missionRun is the ground state of one executing mission.
type missionRun struct {
	mission *shunting.Mission
	plan    *shunting.Plan
	lease   *resources.LocomotiveLease
}

// The Driver owns every mutable entity of a run and is the handler of
// every fleet event. It never touches shared occupancy directly; all
// capacity goes through the coordinators, and a denied acquisition turns
// into a retry event rather than an error.
type Driver struct {
	engine sim.Engine
	scn    *scenario.Scenario

	tracks    *resources.TrackCoordinator
	workshops *resources.WorkshopCoordinator
	locos     *resources.LocomotiveCoordinator
	throats   *resources.ThroatCoordinator

	planner  *shunting.Planner
	resolver *shunting.Resolver
	safety   *shunting.SafetyController

	rec recording.Recorder
	log *logrus.Logger

	trackRetry   *resources.RetryTracker
	locoRetry    *resources.RetryTracker
	stationRetry *resources.RetryTracker
	missionRetry *resources.RetryTracker

	wagons   map[string]*Wagon
	wagonIDs []string
	trains   []*Train
	wsByID   []*scenario.Workshop // sorted by ID

	// unclassified counts inbound wagons not yet placed on a collection
	// track. The residual feeder batch dispatches when it reaches zero.
	unclassified int

	missionSeq           uint64
	pending              []*shunting.Mission
	arbitrationScheduled bool
	runs                 map[string]*missionRun
}

// NewDriver wires a driver over a validated scenario. The coordinators,
// planner, resolver, and safety controller must share the scenario's
// layout.
func NewDriver(
	engine sim.Engine,
	scn *scenario.Scenario,
	tracks *resources.TrackCoordinator,
	workshops *resources.WorkshopCoordinator,
	locos *resources.LocomotiveCoordinator,
	throats *resources.ThroatCoordinator,
	planner *shunting.Planner,
	resolver *shunting.Resolver,
	safety *shunting.SafetyController,
	rec recording.Recorder,
	log *logrus.Logger,
) *Driver {
	cfg := scn.Config
	d := &Driver{
		engine:    engine,
		scn:       scn,
		tracks:    tracks,
		workshops: workshops,
		locos:     locos,
		throats:   throats,
		planner:   planner,
		resolver:  resolver,
		safety:    safety,
		rec:       rec,
		log:       log,
		wagons:    make(map[string]*Wagon),
		runs:      make(map[string]*missionRun),
	}

	d.trackRetry = resources.NewRetryTracker(
		"track-space", cfg.RetryDelay, cfg.WarnAfterAttempts, log)
	d.locoRetry = resources.NewRetryTracker(
		"locomotive", cfg.RetryDelay, cfg.WarnAfterAttempts, log)
	d.stationRetry = resources.NewRetryTracker(
		"workshop-station", cfg.RetryDelay, cfg.WarnAfterAttempts, log)
	d.missionRetry = resources.NewRetryTracker(
		"shunting", cfg.RetryDelay, cfg.WarnAfterAttempts, log)

	for _, w := range scn.Wagons {
		d.wagons[w.ID] = &Wagon{
			Spec:          w,
			NeedsRetrofit: w.NeedsRetrofit,
			State:         WagonInbound,
		}
		d.wagonIDs = append(d.wagonIDs, w.ID)
	}
	sort.Strings(d.wagonIDs)

	for _, t := range scn.Trains {
		d.trains = append(d.trains, &Train{Spec: t})
		for _, wID := range t.WagonIDs {
			d.wagons[wID].TrainID = t.ID
		}
		d.unclassified += len(t.WagonIDs)
	}
	sort.SliceStable(d.trains, func(i, j int) bool {
		if d.trains[i].Spec.Arrival != d.trains[j].Spec.Arrival {
			return d.trains[i].Spec.Arrival < d.trains[j].Spec.Arrival
		}
		return d.trains[i].Spec.ID < d.trains[j].Spec.ID
	})

	d.wsByID = append(d.wsByID, scn.Workshops...)
	sort.Slice(d.wsByID, func(i, j int) bool {
		return d.wsByID[i].ID < d.wsByID[j].ID
	})

	return d
}

// Start schedules every train arrival. Call once before the engine runs.
func (d *Driver) Start() {
	for _, t := range d.trains {
		d.engine.Schedule(newTrainArrivalEvent(t.Spec.Arrival, d, t))
	}
}

// Wagon returns the run state of a wagon.
func (d *Driver) Wagon(id string) (*Wagon, bool) {
	w, ok := d.wagons[id]
	return w, ok
}

// Train returns the run state of a train.
func (d *Driver) Train(id string) (*Train, bool) {
	for _, t := range d.trains {
		if t.Spec.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Handle dispatches one fleet event.
func (d *Driver) Handle(e sim.Event) error {
	switch evt := e.(type) {
	case *trainArrivalEvent:
		d.handleTrainArrival(evt)
	case *wagonClassifyEvent:
		d.handleWagonClassify(evt)
	case *wagonParkEvent:
		d.handleWagonPark(evt)
	case *missionArbitrateEvent:
		d.handleArbitration(evt)
	case *missionRetryEvent:
		d.handleMissionRetry(evt)
	case *missionCompleteEvent:
		d.handleMissionComplete(evt)
	case *workshopEntryEvent:
		d.handleWorkshopEntry(evt)
	case *workshopDoneEvent:
		d.handleWorkshopDone(evt)
	case *trainDepartEvent:
		d.handleTrainDepart(evt)
	default:
		return fmt.Errorf("fleet driver cannot handle event %T", e)
	}
	return nil
}

func (d *Driver) handleTrainArrival(evt *trainArrivalEvent) {
	now := evt.Time()
	t := evt.train
	t.State = TrainArrived

	d.record(recording.SimEvent{
		Time:   float64(now),
		Kind:   recording.EvtTrainArrived,
		Entity: t.Spec.ID,
		Detail: fmt.Sprintf("%d wagons", len(t.Spec.WagonIDs)),
	})

	for _, wID := range t.Spec.WagonIDs {
		d.engine.Schedule(newWagonClassifyEvent(now, d, wID))
	}
}

func (d *Driver) handleWagonClassify(evt *wagonClassifyEvent) {
	now := evt.Time()
	w := d.wagons[evt.wagonID]

	track, ok := d.tracks.AcquireOfType(
		yard.TrackCollection, w.Spec.ID, w.Spec.Length)
	if !ok {
		d.blocked(d.trackRetry, w.Spec.ID, "collection", now)
		d.engine.Schedule(
			newWagonClassifyEvent(now+d.trackRetry.Delay, d, evt.wagonID))
		return
	}
	d.trackRetry.Granted(w.Spec.ID)

	w.TrackID = track.ID
	d.unclassified--

	if !w.Spec.Loaded && w.NeedsRetrofit {
		w.State = WagonSelectedForRetrofit
	} else {
		w.State = WagonRoutedToParking
		d.engine.Schedule(newWagonParkEvent(now, d, w.Spec.ID))
	}

	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtWagonClassified,
		Entity:   w.Spec.ID,
		Location: track.ID,
		Status:   w.State.String(),
	})

	d.maybeDispatchFeederMissions(now)
}

func (d *Driver) handleWagonPark(evt *wagonParkEvent) {
	now := evt.Time()
	w := d.wagons[evt.wagonID]

	track, ok := d.tracks.AcquireOfType(
		yard.TrackParking, w.Spec.ID, w.Spec.Length)
	if !ok {
		d.blocked(d.trackRetry, w.Spec.ID, "parking", now)
		d.engine.Schedule(
			newWagonParkEvent(now+d.trackRetry.Delay, d, evt.wagonID))
		return
	}
	d.trackRetry.Granted(w.Spec.ID)

	d.tracks.Release(w.TrackID, w.Spec.ID, w.Spec.Length)
	w.TrackID = track.ID
	w.State = WagonAtParking

	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtWagonParked,
		Entity:   w.Spec.ID,
		Location: track.ID,
	})

	d.maybeAssembleTrains(now)
}

// maybeDispatchFeederMissions batches selected wagons per collection track
// into feeder missions of LotSize wagons. A smaller residual batch only
// dispatches once every inbound wagon has been classified.
func (d *Driver) maybeDispatchFeederMissions(now sim.VTimeInSec) {
	lot := d.scn.Config.LotSize

	for _, track := range d.scn.Layout.TracksOfType(yard.TrackCollection) {
		var batch []string
		for _, wID := range track.Wagons() {
			if w, ok := d.wagons[wID]; ok &&
				w.State == WagonSelectedForRetrofit {
				batch = append(batch, wID)
			}
		}

		for len(batch) >= lot {
			d.dispatchFeederMission(now, track.ID, batch[:lot])
			batch = batch[lot:]
		}
		if len(batch) > 0 && d.unclassified == 0 {
			d.dispatchFeederMission(now, track.ID, batch)
		}
	}
}

func (d *Driver) dispatchFeederMission(
	now sim.VTimeInSec,
	fromTrack string,
	wagonIDs []string,
) {
	ids := append([]string(nil), wagonIDs...)

	var total float64
	for _, wID := range ids {
		total += d.wagons[wID].Spec.Length
	}

	dest, ok := d.pickDestination(yard.TrackFeeder, total)
	if !ok {
		feeders := d.scn.Layout.TracksOfType(yard.TrackFeeder)
		if len(feeders) == 0 {
			d.log.WithField("from", fromTrack).
				Error("no feeder track in layout; wagons stay on collection")
			return
		}
		// Every feeder is full right now; aim at the first one and let the
		// arrival-capacity check delay the mission until space frees up.
		dest = feeders[0].ID
	}

	d.submitMission(now, ids, fromTrack, dest, shunting.PriorityHigh)
}

// dispatchReturnMission sends a retrofitted wagon from its workshop track
// to a retrofitted-stock track, or to plain parking when the yard has none.
func (d *Driver) dispatchReturnMission(now sim.VTimeInSec, w *Wagon) {
	tt := yard.TrackRetrofitted
	if len(d.scn.Layout.TracksOfType(tt)) == 0 {
		tt = yard.TrackParking
	}

	dest, ok := d.pickDestination(tt, w.Spec.Length)
	if !ok {
		targets := d.scn.Layout.TracksOfType(tt)
		if len(targets) == 0 {
			d.log.WithField("wagon", w.Spec.ID).
				Error("no parking track in layout; wagon stays in workshop")
			return
		}
		dest = targets[0].ID
	}

	d.submitMission(
		now, []string{w.Spec.ID}, w.TrackID, dest, shunting.PriorityNormal)
}

func (d *Driver) submitMission(
	now sim.VTimeInSec,
	wagonIDs []string,
	fromTrack, toTrack string,
	prio shunting.Priority,
) {
	d.missionSeq++
	m := shunting.NewMission(wagonIDs, fromTrack, toTrack, prio, now, d.missionSeq)
	for _, wID := range wagonIDs {
		d.wagons[wID].State = WagonDispatched
	}
	d.pending = append(d.pending, m)
	d.scheduleArbitration(now)
}

// pickDestination returns the first track of the type, in ID order, that
// can admit the length under the threshold.
func (d *Driver) pickDestination(
	tt yard.TrackType,
	length float64,
) (string, bool) {
	for _, t := range d.scn.Layout.TracksOfType(tt) {
		if d.tracks.Fits(t.ID, length) {
			return t.ID, true
		}
	}
	return "", false
}

func (d *Driver) scheduleArbitration(now sim.VTimeInSec) {
	if d.arbitrationScheduled {
		return
	}
	d.arbitrationScheduled = true
	d.engine.Schedule(newMissionArbitrateEvent(now, d))
}

func (d *Driver) handleArbitration(evt *missionArbitrateEvent) {
	now := evt.Time()
	d.arbitrationScheduled = false
	if len(d.pending) == 0 {
		return
	}

	candidates := d.pending
	d.pending = nil

	for _, dec := range d.resolver.Arbitrate(now, candidates) {
		switch dec.Action {
		case shunting.ActionProceed, shunting.ActionReroute:
			d.executeMission(now, dec.Mission, dec.Plan)
		case shunting.ActionDelay:
			d.delayMission(now, dec.Mission, d.missionRetry, dec.Reason)
		case shunting.ActionFail:
			d.failMission(now, dec.Mission, dec.Reason)
		}
	}
}

func (d *Driver) handleMissionRetry(evt *missionRetryEvent) {
	m := evt.mission
	m.Attempts++
	// Replan from scratch; the footprint that blocked the mission has
	// likely moved on.
	m.Plan = nil
	d.pending = append(d.pending, m)
	d.scheduleArbitration(evt.Time())
}

// executeMission acquires everything the admitted plan needs in one step:
// a locomotive, the throats on the path, a safety clearance, and the
// destination space. Any miss rolls the already-acquired parts back and
// delays the mission; partial acquisitions never survive the attempt.
func (d *Driver) executeMission(
	now sim.VTimeInSec,
	m *shunting.Mission,
	plan *shunting.Plan,
) {
	lease, ok := d.locos.Acquire(now)
	if !ok {
		d.delayMission(now, m, d.locoRetry, "no idle locomotive")
		return
	}
	m.LocomotiveID = lease.Loco.ID

	var reserved []*yard.Throat
	rollback := func() {
		for _, th := range reserved {
			d.throats.Free(th.ID, m.ID)
		}
		lease.Release()
	}

	for _, th := range d.planThroats(plan) {
		from, to := throatPassage(plan, th)
		if !d.throats.Reserve(th, m.ID, from, to) {
			rollback()
			d.delayMission(now, m, d.missionRetry, "throat "+th.ID+" busy")
			return
		}
		reserved = append(reserved, th)
	}

	total := d.totalLength(m)
	err := d.safety.Validate(m, plan, d.tracks.Fits, total, d.resolver.EdgeBusy)
	if err != nil {
		d.record(recording.SimEvent{
			Time:   float64(now),
			Kind:   recording.EvtSafetyRejected,
			Entity: m.ID,
			Detail: err.Error(),
		})
		rollback()
		d.delayMission(now, m, d.missionRetry, err.Error())
		return
	}

	// Claim destination space now and free the origin; the wagons are
	// committed to the move from this point on.
	var admitted []string
	for _, wID := range m.WagonIDs {
		w := d.wagons[wID]
		if _, ok := d.tracks.AcquireSpecific(
			m.ToTrack, wID, w.Spec.Length); !ok {
			for _, aID := range admitted {
				d.tracks.Release(m.ToTrack, aID, d.wagons[aID].Spec.Length)
			}
			rollback()
			d.delayMission(now, m, d.missionRetry,
				"destination "+m.ToTrack+" full")
			return
		}
		admitted = append(admitted, wID)
	}
	for _, wID := range m.WagonIDs {
		w := d.wagons[wID]
		d.tracks.Release(w.TrackID, wID, w.Spec.Length)
		w.TrackID = m.ToTrack
		w.State = WagonInTransit
	}

	d.missionRetry.Granted(m.ID)
	d.locoRetry.Granted(m.ID)

	m.Plan = plan
	m.Status = shunting.MissionExecuting
	d.resolver.NoteExecuting(m, plan)
	d.runs[m.ID] = &missionRun{mission: m, plan: plan, lease: lease}

	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtMissionStarted,
		Entity:   m.ID,
		Location: m.FromTrack,
		Status:   m.Status.String(),
		Duration: float64(plan.Duration),
		Detail:   "to " + m.ToTrack,
	})

	d.engine.Schedule(newMissionCompleteEvent(now+plan.Duration, d, m.ID))
}

func (d *Driver) delayMission(
	now sim.VTimeInSec,
	m *shunting.Mission,
	tracker *resources.RetryTracker,
	reason string,
) {
	tracker.Blocked(m.ID, now)
	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtBlocked,
		Entity:   m.ID,
		Location: tracker.Resource,
		Duration: float64(tracker.Delay),
		Detail:   reason,
	})
	d.engine.Schedule(newMissionRetryEvent(now+tracker.Delay, d, m))
}

func (d *Driver) failMission(
	now sim.VTimeInSec,
	m *shunting.Mission,
	reason string,
) {
	m.Status = shunting.MissionFailed
	d.log.WithFields(logrus.Fields{
		"mission": m.ID,
		"reason":  reason,
	}).Error("mission unroutable")
	d.record(recording.SimEvent{
		Time:   float64(now),
		Kind:   recording.EvtMissionFailed,
		Entity: m.ID,
		Detail: reason,
	})
}

func (d *Driver) handleMissionComplete(evt *missionCompleteEvent) {
	now := evt.Time()
	run := d.runs[evt.missionID]
	delete(d.runs, evt.missionID)
	m := run.mission

	d.resolver.NoteDone(m.ID)
	for _, th := range d.planThroats(run.plan) {
		d.throats.Free(th.ID, m.ID)
	}
	run.lease.Release()

	m.Status = shunting.MissionCompleted
	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtMissionDone,
		Entity:   m.ID,
		Location: m.ToTrack,
		Duration: float64(run.plan.Duration),
	})

	dest, _ := d.scn.Layout.Track(m.ToTrack)
	switch dest.Type {
	case yard.TrackFeeder:
		for _, wID := range m.WagonIDs {
			d.wagons[wID].State = WagonAwaitingWorkshop
			d.engine.Schedule(newWorkshopEntryEvent(now, d, wID))
		}
	default:
		for _, wID := range m.WagonIDs {
			d.wagons[wID].State = WagonAtParking
			d.record(recording.SimEvent{
				Time:     float64(now),
				Kind:     recording.EvtWagonParked,
				Entity:   wID,
				Location: m.ToTrack,
			})
		}
		d.maybeAssembleTrains(now)
	}
}

func (d *Driver) handleWorkshopEntry(evt *workshopEntryEvent) {
	now := evt.Time()
	w := d.wagons[evt.wagonID]

	for _, ws := range d.wsByID {
		station, ok := d.workshops.AcquireStation(ws.ID)
		if !ok {
			continue
		}
		if _, ok := d.tracks.AcquireSpecific(
			ws.TrackID, w.Spec.ID, w.Spec.Length); !ok {
			station.Release()
			continue
		}

		d.tracks.Release(w.TrackID, w.Spec.ID, w.Spec.Length)
		w.TrackID = ws.TrackID
		w.State = WagonInWorkshop
		d.stationRetry.Granted(w.Spec.ID)

		d.record(recording.SimEvent{
			Time:     float64(now),
			Kind:     recording.EvtWorkshopEnter,
			Entity:   w.Spec.ID,
			Location: ws.ID,
		})

		d.engine.Schedule(newWorkshopDoneEvent(
			now+ws.ProcessingTime, d, w.Spec.ID, ws.ID, station))
		return
	}

	d.blocked(d.stationRetry, w.Spec.ID, "workshop", now)
	d.engine.Schedule(
		newWorkshopEntryEvent(now+d.stationRetry.Delay, d, evt.wagonID))
}

func (d *Driver) handleWorkshopDone(evt *workshopDoneEvent) {
	now := evt.Time()
	w := d.wagons[evt.wagonID]
	ws, _ := d.workshops.Workshop(evt.workshopID)

	w.NeedsRetrofit = false
	w.State = WagonRetrofitted

	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtWorkshopExit,
		Entity:   w.Spec.ID,
		Location: ws.ID,
		Status:   "retrofitted",
		Duration: float64(ws.ProcessingTime),
	})

	evt.station.Release()
	d.dispatchReturnMission(now, w)
}

// maybeAssembleTrains fills outbound trains strictly earliest-arrival
// first: the oldest undeparted train takes the first N ready wagons in ID
// order, N being its arrival consist size.
func (d *Driver) maybeAssembleTrains(now sim.VTimeInSec) {
	ready := d.readyWagons()

	for _, t := range d.trains {
		if t.State != TrainArrived {
			continue
		}
		n := len(t.Spec.WagonIDs)
		if n == 0 {
			// An empty consist needs no wagons and must not hold up
			// later trains.
			t.State = TrainAssembling
			d.engine.Schedule(newTrainDepartEvent(now+d.prepDuration(0), d, t))
			continue
		}
		if len(ready) < n {
			break
		}

		assigned := append([]string(nil), ready[:n]...)
		ready = ready[n:]

		t.WagonIDs = assigned
		t.State = TrainAssembling
		for _, wID := range assigned {
			w := d.wagons[wID]
			w.State = WagonAssigned
			d.record(recording.SimEvent{
				Time:     float64(now),
				Kind:     recording.EvtWagonAssigned,
				Entity:   wID,
				Location: w.TrackID,
				Detail:   t.Spec.ID,
			})
		}

		prep := d.prepDuration(n)
		d.engine.Schedule(newTrainDepartEvent(now+prep, d, t))
	}
}

// readyWagons returns, in ID order, the parked wagons eligible for
// assembly: retrofit done or never required.
func (d *Driver) readyWagons() []string {
	var out []string
	for _, wID := range d.wagonIDs {
		w := d.wagons[wID]
		if w.State == WagonAtParking && !w.NeedsRetrofit {
			out = append(out, wID)
		}
	}
	return out
}

func (d *Driver) prepDuration(wagons int) sim.VTimeInSec {
	e, ok := d.scn.ProcTable.Lookup(scenario.OpTrainPreparation, "")
	if !ok {
		return 0
	}
	return e.Total(wagons)
}

func (d *Driver) handleTrainDepart(evt *trainDepartEvent) {
	now := evt.Time()
	t := evt.train

	for _, wID := range t.WagonIDs {
		w := d.wagons[wID]
		d.tracks.Release(w.TrackID, wID, w.Spec.Length)
		w.TrackID = ""
		w.State = WagonDeparted
	}
	t.State = TrainDeparted

	d.record(recording.SimEvent{
		Time:   float64(now),
		Kind:   recording.EvtTrainDeparted,
		Entity: t.Spec.ID,
		Detail: fmt.Sprintf("%d wagons", len(t.WagonIDs)),
	})
}

func (d *Driver) blocked(
	tracker *resources.RetryTracker,
	requester, where string,
	now sim.VTimeInSec,
) {
	tracker.Blocked(requester, now)
	d.record(recording.SimEvent{
		Time:     float64(now),
		Kind:     recording.EvtBlocked,
		Entity:   requester,
		Location: where,
		Duration: float64(tracker.Delay),
	})
}

func (d *Driver) record(e recording.SimEvent) {
	if d.rec != nil {
		d.rec.Record(e)
	}
}

func (d *Driver) totalLength(m *shunting.Mission) float64 {
	var total float64
	for _, wID := range m.WagonIDs {
		total += d.wagons[wID].Spec.Length
	}
	return total
}

func (d *Driver) planThroats(plan *shunting.Plan) []*yard.Throat {
	var out []*yard.Throat
	for _, th := range d.scn.Layout.Throats() {
		if plan.UsesThroat(th.ID) {
			out = append(out, th)
		}
	}
	return out
}

// throatPassage derives the entry and exit nodes of a plan's pass through
// one throat, so the reservation can match a declared connection.
func throatPassage(plan *shunting.Plan, th *yard.Throat) (string, string) {
	first, last := -1, -1
	for i, n := range plan.NodeIDs {
		if th.Covers(n) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return "", ""
	}

	from := plan.NodeIDs[first]
	if first > 0 {
		from = plan.NodeIDs[first-1]
	}
	to := plan.NodeIDs[last]
	if last+1 < len(plan.NodeIDs) {
		to = plan.NodeIDs[last+1]
	}
	return from, to
}
