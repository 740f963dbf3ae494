package shunting

import (
	"fmt"

	"github.com/railwerk/yardsim/scenario"
	"github.com/railwerk/yardsim/sim"
	"github.com/railwerk/yardsim/yard"
)

// The Planner computes candidate plans for missions. It prefers a
// pre-declared route between the two tracks and falls back to a
// shortest-time search over the yard graph. Contention is not its concern;
// the resolver arbitrates the candidate afterwards.
type Planner struct {
	layout *yard.Layout
	proc   *scenario.ProcessTimeTable
}

// NewPlanner creates a planner over a yard layout.
func NewPlanner(
	layout *yard.Layout,
	proc *scenario.ProcessTimeTable,
) *Planner {
	return &Planner{layout: layout, proc: proc}
}

// Plan computes a candidate plan for the mission. Edges in excluded are
// avoided; the resolver passes the contended edges here when rerouting.
// Returns yard.ErrNoRoute (wrapped) when the destination is unreachable.
func (p *Planner) Plan(
	m *Mission,
	excluded map[string]bool,
) (*Plan, error) {
	from, ok := p.layout.Track(m.FromTrack)
	if !ok {
		return nil, fmt.Errorf("mission %s: unknown track %q", m.ID, m.FromTrack)
	}
	to, ok := p.layout.Track(m.ToTrack)
	if !ok {
		return nil, fmt.Errorf("mission %s: unknown track %q", m.ID, m.ToTrack)
	}

	if len(excluded) == 0 {
		if route, found := p.layout.DeclaredRoute(m.FromTrack, m.ToTrack); found {
			return p.planFromRoute(m, route)
		}
	}

	path, err := p.layout.ShortestTimePath(from.NodeID, to.NodeID, excluded)
	if err != nil {
		return nil, fmt.Errorf("mission %s: %w", m.ID, err)
	}

	return p.planFromPath(m, path)
}

// planFromRoute expands a pre-declared route. A same-edge-twice
// subsequence becomes a reversal at the shared node.
func (p *Planner) planFromRoute(m *Mission, route *yard.Route) (*Plan, error) {
	plan := &Plan{}

	p.appendCouple(plan, m)

	direction := MovePull
	var prevEdgeID string
	for i := 1; i < len(route.Elements); i += 2 {
		edgeID := route.Elements[i]
		edge, _ := p.layout.Edge(edgeID)
		fromNode := route.Elements[i-1]
		toNode := route.Elements[i+1]

		if edgeID == prevEdgeID {
			p.appendReverse(plan, m, fromNode)
			direction = flip(direction)
		}

		p.appendTraversal(plan, edge, fromNode, toNode, direction)
		prevEdgeID = edgeID
	}

	p.appendDecouple(plan, m)

	if route.Duration > 0 {
		// An explicitly timed route overrides the derived traversal total;
		// coupling and decoupling stay additive.
		plan.Duration = route.Duration +
			p.opDuration(scenario.OpCouple, m) +
			p.opDuration(scenario.OpDecouple, m)
	}

	p.collectThroats(plan)
	return plan, nil
}

// planFromPath expands a shortest-time path into movements.
func (p *Planner) planFromPath(m *Mission, path yard.Path) (*Plan, error) {
	plan := &Plan{}

	p.appendCouple(plan, m)

	direction := MovePull
	var prevEdgeID string
	for i, edgeID := range path.Edges {
		edge, _ := p.layout.Edge(edgeID)
		fromNode := path.Nodes[i]
		toNode := path.Nodes[i+1]

		if edgeID == prevEdgeID {
			p.appendReverse(plan, m, fromNode)
			direction = flip(direction)
		}

		p.appendTraversal(plan, edge, fromNode, toNode, direction)
		prevEdgeID = edgeID
	}

	p.appendDecouple(plan, m)
	p.collectThroats(plan)
	return plan, nil
}

func flip(k MovementKind) MovementKind {
	if k == MovePull {
		return MovePush
	}
	return MovePull
}

func (p *Planner) appendCouple(plan *Plan, m *Mission) {
	d := p.opDuration(scenario.OpCouple, m)
	plan.Movements = append(plan.Movements, Movement{
		Kind:     MoveCouple,
		Duration: d,
	})
	plan.Duration += d
}

func (p *Planner) appendDecouple(plan *Plan, m *Mission) {
	d := p.opDuration(scenario.OpDecouple, m)
	plan.Movements = append(plan.Movements, Movement{
		Kind:     MoveDecouple,
		Duration: d,
	})
	plan.Duration += d

	pos := p.opDuration(scenario.OpPosition, m)
	if pos > 0 {
		plan.Movements = append(plan.Movements, Movement{
			Kind:     MovePosition,
			Duration: pos,
		})
		plan.Duration += pos
	}
}

func (p *Planner) appendReverse(plan *Plan, m *Mission, atNode string) {
	d := p.opDuration(scenario.OpReverse, m)
	plan.Movements = append(plan.Movements, Movement{
		Kind:     MoveReverse,
		FromNode: atNode,
		ToNode:   atNode,
		Duration: d,
	})
	plan.Duration += d
}

func (p *Planner) appendTraversal(
	plan *Plan,
	edge *yard.Edge,
	fromNode, toNode string,
	direction MovementKind,
) {
	d := p.layout.EdgeDuration(edge)
	plan.Movements = append(plan.Movements, Movement{
		Kind:     direction,
		EdgeID:   edge.ID,
		FromNode: fromNode,
		ToNode:   toNode,
		Duration: d,
		Speed:    p.layout.EdgeSpeed(edge),
		Checks:   []string{CheckSpeed, CheckArrivalCapacity, CheckSignal},
	})
	plan.Duration += d
	plan.EdgeIDs = append(plan.EdgeIDs, edge.ID)
	if len(plan.NodeIDs) == 0 {
		plan.NodeIDs = append(plan.NodeIDs, fromNode)
	}
	plan.NodeIDs = append(plan.NodeIDs, toNode)
}

func (p *Planner) collectThroats(plan *Plan) {
	for _, th := range p.layout.ThroatsCovering(plan.NodeIDs) {
		plan.ThroatIDs = append(plan.ThroatIDs, th.ID)
	}
}

func (p *Planner) opDuration(op string, m *Mission) sim.VTimeInSec {
	e, ok := p.proc.Lookup(op, m.FromTrack)
	if !ok {
		return 0
	}
	return e.Total(len(m.WagonIDs))
}
