package shunting

import (
	"errors"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

// Action is the resolver's verdict on one candidate mission.
type Action int

const (
	// ActionProceed admits the mission's plan for execution.
	ActionProceed Action = iota
	// ActionReroute admits the mission on a replanned path avoiding the
	// contended resources.
	ActionReroute
	// ActionDelay defers the mission; the caller retries it later.
	ActionDelay
	// ActionFail marks the mission unroutable.
	ActionFail
)

func (a Action) String() string {
	switch a {
	case ActionProceed:
		return "proceed"
	case ActionReroute:
		return "reroute"
	case ActionDelay:
		return "delay"
	case ActionFail:
		return "fail"
	}
	return "unknown"
}

// A Decision pairs a mission with the resolver's verdict. For proceeds and
// reroutes, Plan carries the admitted plan.
type Decision struct {
	Mission *Mission
	Action  Action
	Plan    *Plan
	Reason  string
}

// claims is the resource footprint admitted plans hold against later
// candidates.
type claims struct {
	edges   map[string]bool
	throats map[string]bool
}

func newClaims() *claims {
	return &claims{
		edges:   make(map[string]bool),
		throats: make(map[string]bool),
	}
}

func (c *claims) add(p *Plan) {
	for _, e := range p.EdgeIDs {
		c.edges[e] = true
	}
	for _, t := range p.ThroatIDs {
		c.throats[t] = true
	}
}

// overlap returns a human-readable tag of the first contended resource, or
// "" when the plan is clear.
func (c *claims) overlap(p *Plan) string {
	for _, e := range p.EdgeIDs {
		if c.edges[e] {
			return "edge " + e
		}
	}
	for _, t := range p.ThroatIDs {
		if c.throats[t] {
			return "throat " + t
		}
	}
	return ""
}

// The Resolver serializes missions that want overlapping track segments,
// throats, or locomotives in the same time window. Contention resolves in a
// fixed order: mission priority first, then request order, then a reroute
// attempt around the contended resources; a mission that loses all three is
// delayed and retried.
type Resolver struct {
	planner *Planner
	layout  *yard.Layout
	log     *logrus.Logger

	// executing tracks the plans of missions currently on the ground.
	executing map[string]*Plan
}

// NewResolver creates a resolver.
func NewResolver(
	planner *Planner,
	layout *yard.Layout,
	log *logrus.Logger,
) *Resolver {
	return &Resolver{
		planner:   planner,
		layout:    layout,
		log:       log,
		executing: make(map[string]*Plan),
	}
}

// NoteExecuting registers a mission whose plan is now on the ground. Its
// resource footprint blocks later candidates until NoteDone.
func (r *Resolver) NoteExecuting(m *Mission, plan *Plan) {
	r.executing[m.ID] = plan
}

// NoteDone removes a mission's footprint.
func (r *Resolver) NoteDone(missionID string) {
	delete(r.executing, missionID)
}

// EdgeBusy reports whether any executing mission traverses the edge.
func (r *Resolver) EdgeBusy(edgeID string) bool {
	for _, p := range r.executing {
		if p.UsesEdge(edgeID) {
			return true
		}
	}
	return false
}

// Arbitrate orders the candidates and decides, one by one, whether each may
// proceed, must reroute, or must wait. Admitted plans claim their resources
// against the candidates after them; missions already executing claim
// theirs against all candidates.
func (r *Resolver) Arbitrate(
	now sim.VTimeInSec,
	candidates []*Mission,
) []Decision {
	ordered := make([]*Mission, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		if ordered[i].RequestedAt != ordered[j].RequestedAt {
			return ordered[i].RequestedAt < ordered[j].RequestedAt
		}
		return ordered[i].Seq < ordered[j].Seq
	})

	claimed := newClaims()
	for _, p := range r.executing {
		claimed.add(p)
	}

	decisions := make([]Decision, 0, len(ordered))
	for _, m := range ordered {
		d := r.decide(m, claimed)
		if d.Action == ActionProceed || d.Action == ActionReroute {
			claimed.add(d.Plan)
		}
		decisions = append(decisions, d)

		r.log.WithFields(logrus.Fields{
			"mission": m.ID,
			"action":  d.Action.String(),
			"reason":  d.Reason,
			"time":    float64(now),
		}).Debug("mission arbitrated")
	}

	return decisions
}

func (r *Resolver) decide(m *Mission, claimed *claims) Decision {
	plan := m.Plan
	if plan == nil {
		var err error
		plan, err = r.planner.Plan(m, nil)
		if err != nil {
			if errors.Is(err, yard.ErrNoRoute) {
				return Decision{
					Mission: m, Action: ActionFail, Reason: err.Error(),
				}
			}
			return Decision{
				Mission: m, Action: ActionDelay, Reason: err.Error(),
			}
		}
	}

	contended := claimed.overlap(plan)
	if contended == "" {
		return Decision{Mission: m, Action: ActionProceed, Plan: plan}
	}

	rerouted, err := r.planner.Plan(m, r.exclusions(claimed))
	if err == nil && claimed.overlap(rerouted) == "" {
		return Decision{
			Mission: m,
			Action:  ActionReroute,
			Plan:    rerouted,
			Reason:  "contended " + contended,
		}
	}

	return Decision{
		Mission: m,
		Action:  ActionDelay,
		Reason:  "contended " + contended,
	}
}

// exclusions expands the claimed footprint into the edge set a replacement
// plan must avoid: the claimed edges themselves plus every edge touching a
// claimed throat.
func (r *Resolver) exclusions(claimed *claims) map[string]bool {
	excl := make(map[string]bool, len(claimed.edges))
	for e := range claimed.edges {
		excl[e] = true
	}
	for _, th := range r.layout.Throats() {
		if !claimed.throats[th.ID] {
			continue
		}
		for _, e := range r.layout.EdgesTouchingThroat(th) {
			excl[e] = true
		}
	}
	return excl
}
