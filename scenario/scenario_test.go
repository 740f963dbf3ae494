package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

func testYard(t *testing.T) *yard.Layout {
	t.Helper()

	nodes := []yard.Node{{ID: "n1"}, {ID: "n2"}}
	edges := []yard.Edge{
		{ID: "e1", From: "n1", To: "n2", Length: 100, Bidirectional: true},
	}
	tracks := []*yard.Track{
		{ID: "P1", Type: yard.TrackParking, Capacity: 500, NodeID: "n1"},
		{ID: "WS1", Type: yard.TrackWorkshop, Capacity: 200, NodeID: "n2"},
	}

	l, err := yard.NewLayout(nodes, edges, tracks, nil, nil, 5)
	require.NoError(t, err)
	return l
}

func validConfig() Config {
	return Config{AdmissionThreshold: 0.75, LotSize: 3}
}

func TestConfigRequiresThresholdAndLotSize(t *testing.T) {
	l := testYard(t)

	_, err := New(l, nil, nil, nil, nil, nil, Config{LotSize: 3})
	assert.Error(t, err, "missing admission threshold")

	_, err = New(l, nil, nil, nil, nil, nil, Config{AdmissionThreshold: 0.75})
	assert.Error(t, err, "missing lot size")
}

func TestConfigDefaults(t *testing.T) {
	l := testYard(t)

	s, err := New(l, nil, nil, nil, nil, nil, validConfig())
	require.NoError(t, err)

	assert.Equal(t, sim.Minutes(5), s.Config.RetryDelay)
	assert.Equal(t, 3, s.Config.WarnAfterAttempts)
	assert.Equal(t, "first-available", s.Config.SelectionPolicy)
}

func TestTrainReferencingUnknownWagonIsFatal(t *testing.T) {
	l := testYard(t)

	trains := []*Train{{ID: "TR1", WagonIDs: []string{"ghost"}}}
	_, err := New(l, trains, nil, nil, nil, nil, validConfig())
	assert.Error(t, err)
}

func TestWagonOnTwoTrainsIsFatal(t *testing.T) {
	l := testYard(t)

	wagons := []*Wagon{{ID: "W1", Length: 20}}
	trains := []*Train{
		{ID: "TR1", WagonIDs: []string{"W1"}},
		{ID: "TR2", Arrival: 100, WagonIDs: []string{"W1"}},
	}
	_, err := New(l, trains, wagons, nil, nil, nil, validConfig())
	assert.Error(t, err)
}

func TestWorkshopMustBindWorkshopTrack(t *testing.T) {
	l := testYard(t)

	ws := []*Workshop{
		{ID: "ws", TrackID: "P1", Stations: 3, ProcessingTime: sim.Minutes(45)},
	}
	_, err := New(l, nil, nil, nil, ws, nil, validConfig())
	assert.Error(t, err)

	ws[0].TrackID = "WS1"
	_, err = New(l, nil, nil, nil, ws, nil, validConfig())
	assert.NoError(t, err)
}

func TestLocomotiveHomeTrackMustBeParking(t *testing.T) {
	l := testYard(t)

	locos := []*Locomotive{{ID: "L1", HomeTrack: "WS1"}}
	_, err := New(l, nil, nil, locos, nil, nil, validConfig())
	assert.Error(t, err)

	locos[0].HomeTrack = "P1"
	_, err = New(l, nil, nil, locos, nil, nil, validConfig())
	assert.NoError(t, err)
}

func TestProcessTimeTableLocationOverride(t *testing.T) {
	tbl := NewProcessTimeTable()
	tbl.Set(OpCouple, ProcessEntry{Duration: 120})
	tbl.SetAt(OpCouple, "WS1", ProcessEntry{Duration: 300})

	e, ok := tbl.Lookup(OpCouple, "P1")
	require.True(t, ok)
	assert.Equal(t, sim.VTimeInSec(120), e.Duration)

	e, ok = tbl.Lookup(OpCouple, "WS1")
	require.True(t, ok)
	assert.Equal(t, sim.VTimeInSec(300), e.Duration)
}

func TestProcessEntryPerWagonTotal(t *testing.T) {
	e := ProcessEntry{Duration: sim.Minutes(10), PerWagon: sim.Minutes(2)}
	assert.Equal(t, sim.Minutes(20), e.Total(5))
}
