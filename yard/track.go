// Package yard models the static layout of a retrofit yard: typed tracks,
// the node/edge topology connecting them, switch throats, and pre-declared
// routes. The layout is validated once at construction and never mutated
// during a simulation run, except for track occupancy, which is owned by the
// track coordinator.
package yard

import (
	"fmt"
	"sync"

	"github.com/railwerk/yardsim/sim"
)

// TrackType classifies a track by its role in the yard.
type TrackType int

const (
	TrackParking TrackType = iota
	TrackCollection
	TrackFeeder
	TrackWorkshop
	TrackRetrofitted
	TrackStationHead
	TrackCirculating
)

var trackTypeNames = map[TrackType]string{
	TrackParking:     "parking",
	TrackCollection:  "collection",
	TrackFeeder:      "feeder",
	TrackWorkshop:    "workshop",
	TrackRetrofitted: "retrofitted",
	TrackStationHead: "station-head",
	TrackCirculating: "circulating",
}

func (t TrackType) String() string {
	if n, ok := trackTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("track-type-%d", int(t))
}

// Window is a validity window in simulated time. The zero value means
// always valid.
type Window struct {
	Start sim.VTimeInSec
	End   sim.VTimeInSec
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t sim.VTimeInSec) bool {
	if w.Start == 0 && w.End == 0 {
		return true
	}
	return t >= w.Start && t <= w.End
}

// A Track is a stretch of rail with finite usable length. Wagons occupy
// positions on a track in order; at most one wagon sits at each position.
//
// Occupancy is mutated only by the track coordinator on the engine
// goroutine; the monitoring server reads it concurrently, so it is guarded.
type Track struct {
	ID       string
	Type     TrackType
	Capacity float64 // meters
	NodeID   string  // access node in the yard topology
	Validity Window

	mu       sync.RWMutex
	occupied float64
	wagons   []string
}

// Occupied returns the currently occupied length in meters.
func (t *Track) Occupied() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.occupied
}

// OccupancyRatio returns occupied length over nominal capacity.
func (t *Track) OccupancyRatio() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.Capacity == 0 {
		return 1
	}
	return t.occupied / t.Capacity
}

// Wagons returns the IDs of the wagons on the track, head first.
func (t *Track) Wagons() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.wagons))
	copy(out, t.wagons)
	return out
}

// Fits reports whether a vehicle of the given length can be admitted without
// breaching the admission threshold. The threshold is the fraction of
// nominal capacity that may actually be occupied.
func (t *Track) Fits(length, threshold float64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fits(length, threshold)
}

func (t *Track) fits(length, threshold float64) bool {
	return t.occupied+length <= t.Capacity*threshold
}

// Admit places a wagon on the track. Called by the track coordinator only;
// admission and the preceding fit check form one atomic coordinator step.
func (t *Track) Admit(wagonID string, length, threshold float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.fits(length, threshold) {
		return fmt.Errorf("track %s: admitting %s (%.1fm) would exceed %.0f%% of %.1fm",
			t.ID, wagonID, length, threshold*100, t.Capacity)
	}
	for _, w := range t.wagons {
		if w == wagonID {
			return fmt.Errorf("track %s: wagon %s already on track", t.ID, wagonID)
		}
	}

	t.occupied += length
	t.wagons = append(t.wagons, wagonID)
	return nil
}

// Remove takes a wagon off the track, freeing its length. Removing a wagon
// that is not on the track has no effect.
func (t *Track) Remove(wagonID string, length float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, w := range t.wagons {
		if w != wagonID {
			continue
		}
		t.wagons = append(t.wagons[:i], t.wagons[i+1:]...)
		t.occupied -= length
		if t.occupied < 0 {
			t.occupied = 0
		}
		return
	}
}
