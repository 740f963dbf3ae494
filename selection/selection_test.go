package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoFitting() []Candidate {
	return []Candidate{
		{ID: "T1", Capacity: 100, Occupied: 0, Fits: true},
		{ID: "T2", Capacity: 100, Occupied: 0, Fits: true},
	}
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	_, err := New("best-fit", 1)
	assert.Error(t, err)
}

func TestRoundRobinAlternates(t *testing.T) {
	p, err := New(PolicyRoundRobin, 0)
	require.NoError(t, err)

	want := []int{0, 1, 0, 1, 0, 1}
	for _, w := range want {
		got, ok := p.Pick(twoFitting())
		require.True(t, ok)
		assert.Equal(t, w, got)
	}
}

func TestRoundRobinSkipsFullTracks(t *testing.T) {
	p, err := New(PolicyRoundRobin, 0)
	require.NoError(t, err)

	c := twoFitting()
	c[0].Fits = false
	for i := 0; i < 3; i++ {
		got, ok := p.Pick(c)
		require.True(t, ok)
		assert.Equal(t, 1, got)
	}
}

func TestLeastOccupiedPicksMinimumRatio(t *testing.T) {
	p, err := New(PolicyLeastOccupied, 0)
	require.NoError(t, err)

	c := []Candidate{
		{ID: "T1", Capacity: 100, Occupied: 50, Fits: true},
		{ID: "T2", Capacity: 200, Occupied: 60, Fits: true},
		{ID: "T3", Capacity: 100, Occupied: 30, Fits: true},
	}
	got, ok := p.Pick(c)
	require.True(t, ok)
	assert.Equal(t, 1, got, "T2 and T3 tie at ratio 0.3; T2 wins by order")
}

func TestLeastOccupiedTieBreaksByOrder(t *testing.T) {
	p, err := New(PolicyLeastOccupied, 0)
	require.NoError(t, err)

	c := []Candidate{
		{ID: "T1", Capacity: 100, Occupied: 20, Fits: true},
		{ID: "T2", Capacity: 100, Occupied: 20, Fits: true},
	}
	got, ok := p.Pick(c)
	require.True(t, ok)
	assert.Equal(t, 0, got)
}

func TestFirstAvailable(t *testing.T) {
	p, err := New(PolicyFirstAvailable, 0)
	require.NoError(t, err)

	c := twoFitting()
	c[0].Fits = false
	got, ok := p.Pick(c)
	require.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestRandomIsSeedReproducible(t *testing.T) {
	p1, err := New(PolicyRandom, 42)
	require.NoError(t, err)
	p2, err := New(PolicyRandom, 42)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		g1, ok1 := p1.Pick(twoFitting())
		g2, ok2 := p2.Pick(twoFitting())
		require.True(t, ok1)
		require.True(t, ok2)
		assert.Equal(t, g1, g2)
	}
}

func TestPoliciesReportNoFit(t *testing.T) {
	for _, name := range []string{
		PolicyRoundRobin, PolicyLeastOccupied,
		PolicyFirstAvailable, PolicyRandom,
	} {
		p, err := New(name, 7)
		require.NoError(t, err)
		_, ok := p.Pick([]Candidate{{ID: "T1", Fits: false}})
		assert.False(t, ok, name)
	}
}
