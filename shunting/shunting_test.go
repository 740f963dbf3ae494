package shunting

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// twinPathLayout has two independent 20s paths between track T_a and track
// T_b, plus an isolated track T_x no path reaches.
//
//	a --e1-- m --e2-- b
//	a --e3-- n --e4-- b
//	x (isolated)
func twinPathLayout(t *testing.T) *yard.Layout {
	t.Helper()

	nodes := []yard.Node{
		{ID: "a", X: 0, Y: 0},
		{ID: "m", X: 100, Y: 0},
		{ID: "n", X: 100, Y: 100},
		{ID: "b", X: 200, Y: 0},
		{ID: "x", X: 500, Y: 500},
	}
	edges := []yard.Edge{
		{ID: "e1", From: "a", To: "m", Length: 100, Bidirectional: true},
		{ID: "e2", From: "m", To: "b", Length: 100, Bidirectional: true},
		{ID: "e3", From: "a", To: "n", Length: 120, Bidirectional: true},
		{ID: "e4", From: "n", To: "b", Length: 120, Bidirectional: true},
	}
	tracks := []*yard.Track{
		{ID: "T_a", Type: yard.TrackCollection, Capacity: 400, NodeID: "a"},
		{ID: "T_b", Type: yard.TrackFeeder, Capacity: 400, NodeID: "b"},
		{ID: "T_x", Type: yard.TrackParking, Capacity: 400, NodeID: "x"},
	}
	throats := []yard.Throat{
		{ID: "th_m", Switches: []string{"m"}, Limit: 1},
	}

	l, err := yard.NewLayout(nodes, edges, tracks, throats, nil, 10)
	require.NoError(t, err)
	return l
}

func testProcTable() *scenario.ProcessTimeTable {
	tbl := scenario.NewProcessTimeTable()
	tbl.Set(scenario.OpCouple, scenario.ProcessEntry{Duration: 60})
	tbl.Set(scenario.OpDecouple, scenario.ProcessEntry{Duration: 60})
	tbl.Set(scenario.OpReverse, scenario.ProcessEntry{Duration: 90})
	return tbl
}

func newTestMission(from, to string, prio Priority, seq uint64) *Mission {
	return NewMission([]string{"W1", "W2"}, from, to, prio, 0, seq)
}

func TestPlannerShortestPathPlan(t *testing.T) {
	l := twinPathLayout(t)
	p := NewPlanner(l, testProcTable())

	m := newTestMission("T_a", "T_b", PriorityNormal, 1)
	plan, err := p.Plan(m, nil)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(plan.Movements), 4)
	assert.Equal(t, MoveCouple, plan.Movements[0].Kind)
	assert.Equal(t, MoveDecouple,
		plan.Movements[len(plan.Movements)-1].Kind)

	// Fast path is e1,e2: 10s + 10s, plus 60s couple and 60s decouple.
	assert.Equal(t, []string{"e1", "e2"}, plan.EdgeIDs)
	assert.Equal(t, sim.VTimeInSec(140), plan.Duration)

	// Node m is covered by throat th_m.
	assert.Equal(t, []string{"th_m"}, plan.ThroatIDs)
}

func TestPlannerExcludedEdgesForceAlternate(t *testing.T) {
	l := twinPathLayout(t)
	p := NewPlanner(l, testProcTable())

	m := newTestMission("T_a", "T_b", PriorityNormal, 1)
	plan, err := p.Plan(m, map[string]bool{"e1": true})
	require.NoError(t, err)

	assert.Equal(t, []string{"e3", "e4"}, plan.EdgeIDs)
}

func TestPlannerNoRoute(t *testing.T) {
	l := twinPathLayout(t)
	p := NewPlanner(l, testProcTable())

	m := newTestMission("T_a", "T_x", PriorityNormal, 1)
	_, err := p.Plan(m, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, yard.ErrNoRoute)
}

func TestPlannerDeclaredRouteWithReversal(t *testing.T) {
	nodes := []yard.Node{{ID: "a"}, {ID: "m"}, {ID: "b"}}
	edges := []yard.Edge{
		{ID: "e1", From: "a", To: "m", Length: 50, Bidirectional: true},
		{ID: "e2", From: "m", To: "b", Length: 50, Bidirectional: true},
		{ID: "stub", From: "m", To: "a", Length: 10, Bidirectional: true},
	}
	tracks := []*yard.Track{
		{ID: "T_a", Type: yard.TrackCollection, Capacity: 400, NodeID: "a"},
		{ID: "T_b", Type: yard.TrackFeeder, Capacity: 400, NodeID: "b"},
	}
	routes := []yard.Route{{
		ID: "r1", FromTrack: "T_a", ToTrack: "T_b",
		// Run onto the stub, reverse, come back, continue to b.
		Elements: []string{"a", "stub", "m", "stub", "a", "stub", "m", "e2", "b"},
	}}
	l, err := yard.NewLayout(nodes, edges, tracks, nil, routes, 10)
	require.NoError(t, err)

	p := NewPlanner(l, testProcTable())
	m := newTestMission("T_a", "T_b", PriorityNormal, 1)
	plan, err := p.Plan(m, nil)
	require.NoError(t, err)

	var kinds []MovementKind
	for _, mv := range plan.Movements {
		kinds = append(kinds, mv.Kind)
	}
	assert.Contains(t, kinds, MoveReverse)

	// Direction flips after each reversal: pull, reverse, push, reverse,
	// pull, then the final leg.
	assert.Equal(t, []MovementKind{
		MoveCouple,
		MovePull,
		MoveReverse, MovePush,
		MoveReverse, MovePull,
		MovePull,
		MoveDecouple,
	}, kinds)
}

func TestResolverPriorityWins(t *testing.T) {
	l := twinPathLayout(t)
	planner := NewPlanner(l, testProcTable())
	r := NewResolver(planner, l, quietLogger())

	high := newTestMission("T_a", "T_b", PriorityHigh, 2)
	normal := newTestMission("T_a", "T_b", PriorityNormal, 1)

	decisions := r.Arbitrate(10, []*Mission{normal, high})
	require.Len(t, decisions, 2)

	assert.Equal(t, high, decisions[0].Mission, "high priority goes first")
	assert.Equal(t, ActionProceed, decisions[0].Action)

	// The normal mission contends on e1/e2 but an alternate path exists.
	assert.Equal(t, normal, decisions[1].Mission)
	assert.Equal(t, ActionReroute, decisions[1].Action)
	assert.Equal(t, []string{"e3", "e4"}, decisions[1].Plan.EdgeIDs)
}

func TestResolverDelaysWhenNoAlternate(t *testing.T) {
	l := twinPathLayout(t)
	planner := NewPlanner(l, testProcTable())
	r := NewResolver(planner, l, quietLogger())

	m1 := newTestMission("T_a", "T_b", PriorityNormal, 1)
	m2 := newTestMission("T_a", "T_b", PriorityNormal, 2)
	m3 := newTestMission("T_a", "T_b", PriorityNormal, 3)

	decisions := r.Arbitrate(10, []*Mission{m1, m2, m3})
	require.Len(t, decisions, 3)

	assert.Equal(t, ActionProceed, decisions[0].Action)
	assert.Equal(t, ActionReroute, decisions[1].Action)
	assert.Equal(t, ActionDelay, decisions[2].Action,
		"both paths claimed; third mission waits")
}

func TestResolverRequestOrderBreaksPriorityTies(t *testing.T) {
	l := twinPathLayout(t)
	planner := NewPlanner(l, testProcTable())
	r := NewResolver(planner, l, quietLogger())

	early := NewMission([]string{"W1"}, "T_a", "T_b", PriorityNormal, 5, 9)
	late := NewMission([]string{"W2"}, "T_a", "T_b", PriorityNormal, 8, 1)

	decisions := r.Arbitrate(10, []*Mission{late, early})
	assert.Equal(t, early, decisions[0].Mission)
}

func TestResolverFailsUnroutableMission(t *testing.T) {
	l := twinPathLayout(t)
	planner := NewPlanner(l, testProcTable())
	r := NewResolver(planner, l, quietLogger())

	m := newTestMission("T_a", "T_x", PriorityNormal, 1)
	decisions := r.Arbitrate(10, []*Mission{m})
	require.Len(t, decisions, 1)
	assert.Equal(t, ActionFail, decisions[0].Action)
}

func TestResolverRespectsExecutingMissions(t *testing.T) {
	l := twinPathLayout(t)
	planner := NewPlanner(l, testProcTable())
	r := NewResolver(planner, l, quietLogger())

	active := newTestMission("T_a", "T_b", PriorityHigh, 1)
	plan, err := planner.Plan(active, nil)
	require.NoError(t, err)
	r.NoteExecuting(active, plan)

	assert.True(t, r.EdgeBusy("e1"))

	m := newTestMission("T_a", "T_b", PriorityNormal, 2)
	decisions := r.Arbitrate(20, []*Mission{m})
	assert.Equal(t, ActionReroute, decisions[0].Action)

	r.NoteDone(active.ID)
	assert.False(t, r.EdgeBusy("e1"))

	m2 := newTestMission("T_a", "T_b", PriorityNormal, 3)
	decisions = r.Arbitrate(30, []*Mission{m2})
	assert.Equal(t, ActionProceed, decisions[0].Action)
}

func TestSafetyControllerChecks(t *testing.T) {
	l := twinPathLayout(t)
	planner := NewPlanner(l, testProcTable())

	m := newTestMission("T_a", "T_b", PriorityNormal, 1)
	plan, err := planner.Plan(m, nil)
	require.NoError(t, err)

	fitsAll := func(string, float64) bool { return true }
	fitsNone := func(string, float64) bool { return false }
	edgeFree := func(string) bool { return false }

	t.Run("passes a feasible plan", func(t *testing.T) {
		s := NewSafetyController(l, 12)
		assert.NoError(t, s.Validate(m, plan, fitsAll, 40, edgeFree))
	})

	t.Run("rejects overspeed", func(t *testing.T) {
		s := NewSafetyController(l, 5) // plan runs at 10 m/s
		err := s.Validate(m, plan, fitsAll, 40, edgeFree)
		var sv *SafetyViolation
		require.ErrorAs(t, err, &sv)
		assert.Equal(t, CheckSpeed, sv.Check)
	})

	t.Run("rejects full destination", func(t *testing.T) {
		s := NewSafetyController(l, 12)
		err := s.Validate(m, plan, fitsNone, 40, edgeFree)
		var sv *SafetyViolation
		require.ErrorAs(t, err, &sv)
		assert.Equal(t, CheckArrivalCapacity, sv.Check)
	})

	t.Run("rejects occupied edge", func(t *testing.T) {
		s := NewSafetyController(l, 12)
		busy := func(edgeID string) bool { return edgeID == "e2" }
		err := s.Validate(m, plan, fitsAll, 40, busy)
		var sv *SafetyViolation
		require.ErrorAs(t, err, &sv)
		assert.Equal(t, CheckSignal, sv.Check)
	})
}
