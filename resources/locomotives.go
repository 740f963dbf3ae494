package resources

import (
	"sort"

	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/sim"
)

// A LocomotiveLease is one granted locomotive. At most one mission holds a
// locomotive at a time; returning the lease reparks the locomotive at its
// home track.
type LocomotiveLease struct {
	Loco *scenario.Locomotive

	coord    *LocomotiveCoordinator
	released bool
}

// Release reparks the locomotive. Idempotent.
func (l *LocomotiveLease) Release() {
	if l == nil || l.released {
		return
	}
	l.released = true
	l.coord.busy[l.Loco.ID] = false
}

// LocomotiveCoordinator hands out shunting locomotives, honoring their
// validity windows.
type LocomotiveCoordinator struct {
	locos []*scenario.Locomotive
	busy  map[string]bool
}

// NewLocomotiveCoordinator creates a coordinator over the scenario's
// locomotives.
func NewLocomotiveCoordinator(
	locos []*scenario.Locomotive,
) *LocomotiveCoordinator {
	c := &LocomotiveCoordinator{
		busy: make(map[string]bool),
	}
	c.locos = append(c.locos, locos...)
	sort.Slice(c.locos, func(i, j int) bool {
		return c.locos[i].ID < c.locos[j].ID
	})
	return c
}

// Acquire grants the first idle locomotive valid at the given time.
func (c *LocomotiveCoordinator) Acquire(
	now sim.VTimeInSec,
) (*LocomotiveLease, bool) {
	for _, l := range c.locos {
		if c.busy[l.ID] || !l.Validity.Contains(now) {
			continue
		}
		c.busy[l.ID] = true
		return &LocomotiveLease{Loco: l, coord: c}, true
	}
	return nil, false
}

// Idle returns the number of locomotives currently parked and valid.
func (c *LocomotiveCoordinator) Idle(now sim.VTimeInSec) int {
	n := 0
	for _, l := range c.locos {
		if !c.busy[l.ID] && l.Validity.Contains(now) {
			n++
		}
	}
	return n
}

// Count returns the total number of locomotives.
func (c *LocomotiveCoordinator) Count() int {
	return len(c.locos)
}
