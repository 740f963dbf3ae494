package resources

import (
	"github.com/railwerk/yardsim/yard"
)

// throatUse is one route currently set through a throat.
type throatUse struct {
	missionID string
	switches  map[string]bool
}

// ThroatCoordinator serializes routes through switch throats. A throat
// admits at most Limit simultaneous routes, except that declared
// connections with disjoint switch sets may run in parallel.
type ThroatCoordinator struct {
	layout *yard.Layout
	active map[string][]throatUse
}

// NewThroatCoordinator creates a throat coordinator.
func NewThroatCoordinator(layout *yard.Layout) *ThroatCoordinator {
	return &ThroatCoordinator{
		layout: layout,
		active: make(map[string][]throatUse),
	}
}

// Reserve sets a route through the throat for a mission, entering at from
// and leaving at to. Returns false when the throat is busy with a
// conflicting route.
func (c *ThroatCoordinator) Reserve(
	throat *yard.Throat,
	missionID, from, to string,
) bool {
	use := throatUse{missionID: missionID, switches: make(map[string]bool)}
	if conn, ok := throat.Connection(from, to); ok {
		for _, s := range conn.Switches {
			use.switches[s] = true
		}
	} else {
		// No declared connection: the route claims the whole throat.
		for _, s := range throat.Switches {
			use.switches[s] = true
		}
	}

	inUse := c.active[throat.ID]
	disjointFromAll := true
	for _, u := range inUse {
		if sharesSwitch(u.switches, use.switches) {
			disjointFromAll = false
			break
		}
	}

	if !disjointFromAll {
		return false
	}
	if len(inUse) >= throat.Limit && !disjointPairsDeclared(throat, inUse, use) {
		return false
	}

	c.active[throat.ID] = append(inUse, use)
	return true
}

func sharesSwitch(a, b map[string]bool) bool {
	for s := range a {
		if b[s] {
			return true
		}
	}
	return false
}

// disjointPairsDeclared reports whether the new use and every active use
// run over declared, switch-scoped connections. Only then may the
// concurrency limit be exceeded: a use without a switch set cannot prove
// disjointness.
func disjointPairsDeclared(
	throat *yard.Throat,
	inUse []throatUse,
	use throatUse,
) bool {
	if len(throat.Connections) == 0 {
		return false
	}
	if !switchScoped(use, throat) {
		return false
	}
	for _, u := range inUse {
		if !switchScoped(u, throat) {
			return false
		}
	}
	return true
}

// switchScoped reports whether a use claims a non-empty, proper subset of
// the throat's switches.
func switchScoped(u throatUse, throat *yard.Throat) bool {
	return len(u.switches) > 0 && len(u.switches) < len(throat.Switches)
}

// Free releases every reservation a mission holds on the throat.
func (c *ThroatCoordinator) Free(throatID, missionID string) {
	uses := c.active[throatID]
	kept := uses[:0]
	for _, u := range uses {
		if u.missionID != missionID {
			kept = append(kept, u)
		}
	}
	c.active[throatID] = kept
}

// ActiveRoutes returns the number of routes currently set through a throat.
func (c *ThroatCoordinator) ActiveRoutes(throatID string) int {
	return len(c.active[throatID])
}
