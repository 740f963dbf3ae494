package resources

import (
	"github.com/railwerk/yardsim/selection"
	"github.com/railwerk/yardsim/yard"
)

// TrackCoordinator arbitrates track space. Selection among eligible tracks
// of one type goes through the configured policy; the pick and the
// admission are one atomic step.
type TrackCoordinator struct {
	layout    *yard.Layout
	threshold float64
	policy    selection.Policy
}

// NewTrackCoordinator creates a track coordinator.
func NewTrackCoordinator(
	layout *yard.Layout,
	threshold float64,
	policy selection.Policy,
) *TrackCoordinator {
	return &TrackCoordinator{
		layout:    layout,
		threshold: threshold,
		policy:    policy,
	}
}

// Threshold returns the admission threshold in force.
func (c *TrackCoordinator) Threshold() float64 {
	return c.threshold
}

// AcquireOfType places a wagon on some track of the given type, chosen by
// the selection policy among tracks with room. Returns the chosen track, or
// false when every eligible track is full.
func (c *TrackCoordinator) AcquireOfType(
	tt yard.TrackType,
	wagonID string,
	length float64,
) (*yard.Track, bool) {
	tracks := c.layout.TracksOfType(tt)
	if len(tracks) == 0 {
		return nil, false
	}

	candidates := make([]selection.Candidate, len(tracks))
	for i, t := range tracks {
		candidates[i] = selection.Candidate{
			ID:       t.ID,
			Capacity: t.Capacity,
			Occupied: t.Occupied(),
			Fits:     t.Fits(length, c.threshold),
		}
	}

	i, ok := c.policy.Pick(candidates)
	if !ok {
		return nil, false
	}

	track := tracks[i]
	if err := track.Admit(wagonID, length, c.threshold); err != nil {
		// The policy only picks fitting candidates; a failure here means a
		// duplicate placement, which is a programmer error upstream.
		panic(err)
	}
	return track, true
}

// AcquireSpecific places a wagon on one named track if it fits.
func (c *TrackCoordinator) AcquireSpecific(
	trackID, wagonID string,
	length float64,
) (*yard.Track, bool) {
	track, ok := c.layout.Track(trackID)
	if !ok {
		return nil, false
	}
	if !track.Fits(length, c.threshold) {
		return nil, false
	}
	if err := track.Admit(wagonID, length, c.threshold); err != nil {
		return nil, false
	}
	return track, true
}

// Fits reports whether a named track could admit the length right now,
// without admitting anything. Used by the safety controller to validate
// capacity at arrival; actual placement still goes through Acquire.
func (c *TrackCoordinator) Fits(trackID string, length float64) bool {
	track, ok := c.layout.Track(trackID)
	if !ok {
		return false
	}
	return track.Fits(length, c.threshold)
}

// Release removes a wagon from a track, freeing its length.
func (c *TrackCoordinator) Release(trackID, wagonID string, length float64) {
	if track, ok := c.layout.Track(trackID); ok {
		track.Remove(wagonID, length)
	}
}
