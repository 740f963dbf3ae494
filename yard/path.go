package yard

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/railwerk/yardsim/sim"
)

// ErrNoRoute is returned when no path connects two locations. A mission
// hitting this is marked failed; the run continues.
var ErrNoRoute = errors.New("no route between locations")

// A Path is a shortest-time walk through the yard graph.
type Path struct {
	Nodes    []string
	Edges    []string
	Duration sim.VTimeInSec
}

// graphIndex assigns a stable int64 index to every node so the layout can
// be expressed as a gonum graph. Indices are assigned in sorted node-ID
// order to keep path search deterministic.
type graphIndex struct {
	idOf   map[string]int64
	nameOf map[int64]string
}

func (l *Layout) buildGraph() {
	idx := &graphIndex{
		idOf:   make(map[string]int64),
		nameOf: make(map[int64]string),
	}

	ids := make([]string, 0, len(l.nodes))
	for id := range l.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for i, id := range ids {
		idx.idOf[id] = int64(i)
		idx.nameOf[int64(i)] = id
	}

	l.graphIdx = idx
}

// weightedGraph materializes the layout as a gonum weighted directed graph,
// skipping any excluded edges. Rebuilding per query keeps rerouting around
// a contended segment simple; yard graphs are small.
func (l *Layout) weightedGraph(
	excluded map[string]bool,
) (*simple.WeightedDirectedGraph, map[[2]int64]*Edge) {
	g := simple.NewWeightedDirectedGraph(0, math.Inf(1))
	edgeFor := make(map[[2]int64]*Edge)

	for _, id := range l.graphIdx.idOf {
		g.AddNode(simple.Node(id))
	}

	for _, e := range l.edges {
		if excluded[e.ID] {
			continue
		}
		w := float64(l.EdgeDuration(e))
		from := l.graphIdx.idOf[e.From]
		to := l.graphIdx.idOf[e.To]

		l.setEdge(g, edgeFor, from, to, w, e)
		if e.Bidirectional {
			l.setEdge(g, edgeFor, to, from, w, e)
		}
	}

	return g, edgeFor
}

// setEdge keeps the fastest edge when parallel edges connect the same node
// pair.
func (l *Layout) setEdge(
	g *simple.WeightedDirectedGraph,
	edgeFor map[[2]int64]*Edge,
	from, to int64,
	w float64,
	e *Edge,
) {
	if prev, ok := edgeFor[[2]int64{from, to}]; ok {
		if float64(l.EdgeDuration(prev)) <= w {
			return
		}
	}
	g.SetWeightedEdge(simple.WeightedEdge{
		F: simple.Node(from),
		T: simple.Node(to),
		W: w,
	})
	edgeFor[[2]int64{from, to}] = e
}

// ShortestTimePath computes the fastest path between two nodes using A*
// with a straight-line-over-top-speed heuristic. Edges listed in excluded
// are treated as absent, which is how conflict resolution reroutes around a
// contended segment.
func (l *Layout) ShortestTimePath(
	fromNode, toNode string,
	excluded map[string]bool,
) (Path, error) {
	fromID, ok := l.graphIdx.idOf[fromNode]
	if !ok {
		return Path{}, fmt.Errorf("unknown node %q", fromNode)
	}
	toID, ok := l.graphIdx.idOf[toNode]
	if !ok {
		return Path{}, fmt.Errorf("unknown node %q", toNode)
	}

	if fromNode == toNode {
		return Path{Nodes: []string{fromNode}}, nil
	}

	g, edgeFor := l.weightedGraph(excluded)

	heuristic := func(x, y graph.Node) float64 {
		nx := l.nodes[l.graphIdx.nameOf[x.ID()]]
		ny := l.nodes[l.graphIdx.nameOf[y.ID()]]
		return euclid(nx, ny) / l.maxSpeed
	}

	shortest, _ := path.AStar(
		simple.Node(fromID), simple.Node(toID), g, heuristic)
	nodes, weight := shortest.To(toID)
	if math.IsInf(weight, 1) || len(nodes) == 0 {
		return Path{}, fmt.Errorf("%w: %s -> %s", ErrNoRoute, fromNode, toNode)
	}

	p := Path{Duration: sim.VTimeInSec(weight)}
	for i, n := range nodes {
		p.Nodes = append(p.Nodes, l.graphIdx.nameOf[n.ID()])
		if i > 0 {
			e := edgeFor[[2]int64{nodes[i-1].ID(), n.ID()}]
			p.Edges = append(p.Edges, e.ID)
		}
	}

	return p, nil
}

func euclid(a, b *Node) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
