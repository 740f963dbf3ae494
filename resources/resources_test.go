package resources

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/selection"
	"github.com/railwerk/yardsim/yard"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPoolAcquireRelease(t *testing.T) {
	p := NewPool("stations", 3)

	h1, ok := p.Acquire(1)
	require.True(t, ok)
	_, ok = p.Acquire(1)
	require.True(t, ok)
	_, ok = p.Acquire(1)
	require.True(t, ok)

	_, ok = p.Acquire(1)
	assert.False(t, ok, "pool exhausted")

	h1.Release()
	assert.Equal(t, 2.0, p.Occupied())

	_, ok = p.Acquire(1)
	assert.True(t, ok)
}

func TestPoolDoubleReleaseIsIdempotent(t *testing.T) {
	p := NewPool("stations", 2)

	h, ok := p.Acquire(1)
	require.True(t, ok)
	_, ok = p.Acquire(1)
	require.True(t, ok)

	h.Release()
	h.Release()
	assert.Equal(t, 1.0, p.Occupied(),
		"second release must not free more capacity")
}

func TestPoolBlockedAcquireTakesNothing(t *testing.T) {
	p := NewPool("stations", 1)

	_, ok := p.Acquire(2)
	assert.False(t, ok)
	assert.Equal(t, 0.0, p.Occupied())
}

func testLayout(t *testing.T) *yard.Layout {
	t.Helper()

	nodes := []yard.Node{{ID: "n1"}, {ID: "n2"}, {ID: "n3"}}
	edges := []yard.Edge{
		{ID: "e1", From: "n1", To: "n2", Length: 50, Bidirectional: true},
		{ID: "e2", From: "n2", To: "n3", Length: 50, Bidirectional: true},
	}
	tracks := []*yard.Track{
		{ID: "C1", Type: yard.TrackCollection, Capacity: 100, NodeID: "n1"},
		{ID: "C2", Type: yard.TrackCollection, Capacity: 100, NodeID: "n2"},
		{ID: "P1", Type: yard.TrackParking, Capacity: 400, NodeID: "n3"},
	}

	l, err := yard.NewLayout(nodes, edges, tracks, nil, nil, 5)
	require.NoError(t, err)
	return l
}

func TestTrackCoordinatorRoundRobinFairness(t *testing.T) {
	l := testLayout(t)
	policy, err := selection.New(selection.PolicyRoundRobin, 0)
	require.NoError(t, err)
	c := NewTrackCoordinator(l, 0.75, policy)

	want := []string{"C1", "C2", "C1", "C2"}
	for i, w := range want {
		track, ok := c.AcquireOfType(
			yard.TrackCollection, string(rune('a'+i)), 10)
		require.True(t, ok)
		assert.Equal(t, w, track.ID)
	}
}

func TestTrackCoordinatorHonorsThreshold(t *testing.T) {
	l := testLayout(t)
	policy, err := selection.New(selection.PolicyFirstAvailable, 0)
	require.NoError(t, err)
	c := NewTrackCoordinator(l, 0.75, policy)

	// 100m tracks at 75% leave 75m usable each. Two 40m wagons fill C1 past
	// its threshold after one admission, so the second goes to C2 and the
	// third is blocked on neither track fitting.
	tr, ok := c.AcquireOfType(yard.TrackCollection, "W1", 40)
	require.True(t, ok)
	assert.Equal(t, "C1", tr.ID)

	tr, ok = c.AcquireOfType(yard.TrackCollection, "W2", 40)
	require.True(t, ok)
	assert.Equal(t, "C2", tr.ID)

	_, ok = c.AcquireOfType(yard.TrackCollection, "W3", 40)
	assert.False(t, ok)

	c.Release("C1", "W1", 40)
	tr, ok = c.AcquireOfType(yard.TrackCollection, "W3", 40)
	require.True(t, ok)
	assert.Equal(t, "C1", tr.ID)
}

func TestTrackCoordinatorCapacityInvariant(t *testing.T) {
	l := testLayout(t)
	policy, err := selection.New(selection.PolicyLeastOccupied, 0)
	require.NoError(t, err)
	c := NewTrackCoordinator(l, 0.75, policy)

	for i := 0; i < 50; i++ {
		c.AcquireOfType(yard.TrackCollection, string(rune(i)), 13)

		for _, id := range []string{"C1", "C2"} {
			track, _ := l.Track(id)
			assert.LessOrEqual(t, track.Occupied(), track.Capacity*0.75)
		}
	}
}

func TestWorkshopCoordinatorStationLimit(t *testing.T) {
	ws := []*scenario.Workshop{
		{ID: "ws1", TrackID: "WS1", Stations: 3, ProcessingTime: 2700},
	}
	c := NewWorkshopCoordinator(ws)

	var handles []*Handle
	for i := 0; i < 3; i++ {
		h, ok := c.AcquireStation("ws1")
		require.True(t, ok)
		handles = append(handles, h)
	}
	assert.Equal(t, 3, c.InService("ws1"))

	_, ok := c.AcquireStation("ws1")
	assert.False(t, ok, "all stations busy")

	handles[0].Release()
	assert.Equal(t, 2, c.InService("ws1"))
	_, ok = c.AcquireStation("ws1")
	assert.True(t, ok)
}

func TestLocomotiveCoordinatorValidityAndExclusivity(t *testing.T) {
	locos := []*scenario.Locomotive{
		{ID: "L1", HomeTrack: "P1"},
		{ID: "L2", HomeTrack: "P1", Validity: yard.Window{Start: 100, End: 200}},
	}
	c := NewLocomotiveCoordinator(locos)

	lease, ok := c.Acquire(0)
	require.True(t, ok)
	assert.Equal(t, "L1", lease.Loco.ID)

	// L1 busy, L2 not yet valid.
	_, ok = c.Acquire(0)
	assert.False(t, ok)

	lease2, ok := c.Acquire(150)
	require.True(t, ok)
	assert.Equal(t, "L2", lease2.Loco.ID)

	lease.Release()
	lease.Release()
	assert.Equal(t, 1, c.Idle(150), "double release grants nothing extra")
}

func TestThroatCoordinatorSerializesConflicts(t *testing.T) {
	nodes := []yard.Node{
		{ID: "a"}, {ID: "b"}, {ID: "s1"}, {ID: "s2"},
	}
	edges := []yard.Edge{
		{ID: "e1", From: "a", To: "s1", Length: 10, Bidirectional: true},
		{ID: "e2", From: "s1", To: "b", Length: 10, Bidirectional: true},
	}
	tracks := []*yard.Track{
		{ID: "T1", Capacity: 100, NodeID: "a"},
	}
	throats := []yard.Throat{{
		ID:       "th1",
		Switches: []string{"s1", "s2"},
		Limit:    1,
		Connections: []yard.ThroatConnection{
			{From: "a", To: "b", Switches: []string{"s1"}},
			{From: "b", To: "a", Switches: []string{"s2"}},
		},
	}}
	l, err := yard.NewLayout(nodes, edges, tracks, throats, nil, 5)
	require.NoError(t, err)

	th := l.Throats()[0]
	c := NewThroatCoordinator(l)

	require.True(t, c.Reserve(th, "m1", "a", "b"))

	// Same connection conflicts on s1.
	assert.False(t, c.Reserve(th, "m2", "a", "b"))

	// Declared disjoint pair may pass despite limit 1.
	assert.True(t, c.Reserve(th, "m3", "b", "a"))

	c.Free("th1", "m1")
	assert.Equal(t, 1, c.ActiveRoutes("th1"))
	assert.True(t, c.Reserve(th, "m4", "a", "b"))
}

func TestThroatRejectsUnscopedConnectionsBeyondLimit(t *testing.T) {
	nodes := []yard.Node{
		{ID: "a"}, {ID: "b"}, {ID: "s1"}, {ID: "s2"},
	}
	// The b->a connection declares no switches, so it cannot prove
	// disjointness against anything.
	throats := []yard.Throat{{
		ID:       "th1",
		Switches: []string{"s1", "s2"},
		Limit:    1,
		Connections: []yard.ThroatConnection{
			{From: "a", To: "b", Switches: []string{"s1"}},
			{From: "b", To: "a"},
		},
	}}
	l, err := yard.NewLayout(nodes, nil, nil, throats, nil, 5)
	require.NoError(t, err)

	th := l.Throats()[0]
	c := NewThroatCoordinator(l)

	require.True(t, c.Reserve(th, "m1", "a", "b"))
	assert.False(t, c.Reserve(th, "m2", "b", "a"),
		"switchless connection must not pass the limit")

	c.Free("th1", "m1")
	require.True(t, c.Reserve(th, "m3", "b", "a"),
		"under the limit the connection is fine")
	assert.False(t, c.Reserve(th, "m4", "a", "b"),
		"an active switchless route blocks the limit for scoped ones too")
}

func TestRetryTrackerEscalatesOnce(t *testing.T) {
	tr := NewRetryTracker("tracks", 300, 3, quietLogger())

	assert.Equal(t, 1, tr.Blocked("W1", 0))
	assert.Equal(t, 2, tr.Blocked("W1", 300))
	assert.Equal(t, 3, tr.Blocked("W1", 600))
	assert.Equal(t, 4, tr.Blocked("W1", 900))

	tr.Granted("W1")
	assert.Equal(t, 1, tr.Blocked("W1", 1200))
	assert.Equal(t, 5, tr.TotalBlocked())
}
