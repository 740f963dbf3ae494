package yard

import (
	"fmt"
	"sort"

	"github.com/railwerk/yardsim/sim"
)

// A Node is a point in the yard graph, usually a switch or a track end.
type Node struct {
	ID string
	X  float64 // meters
	Y  float64 // meters
}

// An Edge is a rail segment between two nodes. Traversal time is the
// explicit Duration when set, otherwise Length over the effective speed.
type Edge struct {
	ID            string
	From          string
	To            string
	Length        float64        // meters
	SpeedLimit    float64        // m/s; 0 means the yard default applies
	Duration      sim.VTimeInSec // explicit traversal time; 0 means derived
	Bidirectional bool
}

// A ThroatConnection is an explicit from→to passage through a throat,
// listing the switches it sets. Two connections conflict when they share a
// switch.
type ThroatConnection struct {
	From     string
	To       string
	Switches []string
}

// A Throat groups switches into one routing unit. At most Limit routes may
// pass through simultaneously, except that connections with disjoint switch
// sets may run in parallel.
type Throat struct {
	ID          string
	Switches    []string // node IDs
	Entries     []string
	Exits       []string
	Limit       int
	Connections []ThroatConnection
}

// Connection returns the declared connection from one node to another, if
// any.
func (t *Throat) Connection(from, to string) (ThroatConnection, bool) {
	for _, c := range t.Connections {
		if c.From == from && c.To == to {
			return c, true
		}
	}
	return ThroatConnection{}, false
}

// Covers reports whether the throat contains the given node.
func (t *Throat) Covers(nodeID string) bool {
	for _, s := range t.Switches {
		if s == nodeID {
			return true
		}
	}
	return false
}

// A Route is a pre-declared path between two tracks: node and edge IDs
// alternating, starting and ending on a node. A same-edge-twice subsequence
// denotes a reversal at the shared node.
type Route struct {
	ID        string
	FromTrack string
	ToTrack   string
	Elements  []string
	Duration  sim.VTimeInSec
}

// Layout is the validated static description of a yard: nodes, edges,
// tracks, throats, and pre-declared routes. Construction fails on any
// dangling reference or inconsistent declaration; a malformed layout never
// reaches the simulation clock.
type Layout struct {
	DefaultSpeed float64 // m/s, used where no edge speed limit applies

	nodes   map[string]*Node
	edges   map[string]*Edge
	tracks  map[string]*Track
	throats map[string]*Throat
	routes  map[string]*Route

	// routeByPair indexes pre-declared routes by origin/destination track.
	routeByPair map[[2]string]*Route

	trackIDs []string
	maxSpeed float64
	graphIdx *graphIndex
}

// NewLayout validates and assembles a yard layout.
func NewLayout(
	nodes []Node,
	edges []Edge,
	tracks []*Track,
	throats []Throat,
	routes []Route,
	defaultSpeed float64,
) (*Layout, error) {
	if defaultSpeed <= 0 {
		return nil, fmt.Errorf("default speed must be positive, got %f",
			defaultSpeed)
	}

	l := &Layout{
		DefaultSpeed: defaultSpeed,
		nodes:        make(map[string]*Node),
		edges:        make(map[string]*Edge),
		tracks:       make(map[string]*Track),
		throats:      make(map[string]*Throat),
		routes:       make(map[string]*Route),
		routeByPair:  make(map[[2]string]*Route),
		maxSpeed:     defaultSpeed,
	}

	for i := range nodes {
		n := nodes[i]
		if _, dup := l.nodes[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		l.nodes[n.ID] = &n
	}

	for i := range edges {
		e := edges[i]
		if err := l.addEdge(e); err != nil {
			return nil, err
		}
	}

	for _, t := range tracks {
		if err := l.addTrack(t); err != nil {
			return nil, err
		}
	}
	sort.Strings(l.trackIDs)

	for i := range throats {
		th := throats[i]
		if err := l.addThroat(th); err != nil {
			return nil, err
		}
	}

	for i := range routes {
		r := routes[i]
		if err := l.addRoute(r); err != nil {
			return nil, err
		}
	}

	l.buildGraph()

	return l, nil
}

func (l *Layout) addEdge(e Edge) error {
	if _, dup := l.edges[e.ID]; dup {
		return fmt.Errorf("duplicate edge %q", e.ID)
	}
	if _, ok := l.nodes[e.From]; !ok {
		return fmt.Errorf("edge %q: unknown node %q", e.ID, e.From)
	}
	if _, ok := l.nodes[e.To]; !ok {
		return fmt.Errorf("edge %q: unknown node %q", e.ID, e.To)
	}
	if e.Length <= 0 && e.Duration <= 0 {
		return fmt.Errorf("edge %q: needs a positive length or duration", e.ID)
	}
	if e.SpeedLimit > l.maxSpeed {
		l.maxSpeed = e.SpeedLimit
	}
	if e.Duration > 0 {
		// An explicit duration can imply a speed above every declared
		// limit; maxSpeed must cover it to keep the path heuristic
		// admissible.
		dist := e.Length
		if d := euclid(l.nodes[e.From], l.nodes[e.To]); d > dist {
			dist = d
		}
		if implied := dist / float64(e.Duration); implied > l.maxSpeed {
			l.maxSpeed = implied
		}
	}
	l.edges[e.ID] = &e
	return nil
}

func (l *Layout) addTrack(t *Track) error {
	if _, dup := l.tracks[t.ID]; dup {
		return fmt.Errorf("duplicate track %q", t.ID)
	}
	if t.Capacity <= 0 {
		return fmt.Errorf("track %q: capacity must be positive", t.ID)
	}
	if _, ok := l.nodes[t.NodeID]; !ok {
		return fmt.Errorf("track %q: unknown access node %q", t.ID, t.NodeID)
	}
	l.tracks[t.ID] = t
	l.trackIDs = append(l.trackIDs, t.ID)
	return nil
}

func (l *Layout) addThroat(th Throat) error {
	if _, dup := l.throats[th.ID]; dup {
		return fmt.Errorf("duplicate throat %q", th.ID)
	}
	if th.Limit <= 0 {
		th.Limit = 1
	}
	for _, s := range th.Switches {
		if _, ok := l.nodes[s]; !ok {
			return fmt.Errorf("throat %q: unknown switch node %q", th.ID, s)
		}
	}
	for _, c := range th.Connections {
		if _, ok := l.nodes[c.From]; !ok {
			return fmt.Errorf("throat %q: unknown entry node %q", th.ID, c.From)
		}
		if _, ok := l.nodes[c.To]; !ok {
			return fmt.Errorf("throat %q: unknown exit node %q", th.ID, c.To)
		}
		for _, s := range c.Switches {
			if !l.throatHasSwitch(th, s) {
				return fmt.Errorf(
					"throat %q: connection %s->%s uses switch %q outside the throat",
					th.ID, c.From, c.To, s)
			}
		}
	}
	l.throats[th.ID] = &th
	return nil
}

func (l *Layout) throatHasSwitch(th Throat, nodeID string) bool {
	for _, s := range th.Switches {
		if s == nodeID {
			return true
		}
	}
	return false
}

func (l *Layout) addRoute(r Route) error {
	if _, dup := l.routes[r.ID]; dup {
		return fmt.Errorf("duplicate route %q", r.ID)
	}
	if _, ok := l.tracks[r.FromTrack]; !ok {
		return fmt.Errorf("route %q: unknown track %q", r.ID, r.FromTrack)
	}
	if _, ok := l.tracks[r.ToTrack]; !ok {
		return fmt.Errorf("route %q: unknown track %q", r.ID, r.ToTrack)
	}
	if len(r.Elements)%2 == 0 || len(r.Elements) < 1 {
		return fmt.Errorf(
			"route %q: elements must alternate node/edge and end on a node",
			r.ID)
	}

	if err := l.validateRouteElements(r); err != nil {
		return err
	}

	l.routes[r.ID] = &r
	l.routeByPair[[2]string{r.FromTrack, r.ToTrack}] = &r
	return nil
}

func (l *Layout) validateRouteElements(r Route) error {
	var prevEdge string
	for i, el := range r.Elements {
		if i%2 == 0 {
			if _, ok := l.nodes[el]; !ok {
				return fmt.Errorf("route %q: unknown node %q", r.ID, el)
			}
			continue
		}

		e, ok := l.edges[el]
		if !ok {
			return fmt.Errorf("route %q: unknown edge %q", r.ID, el)
		}
		if el == prevEdge && !e.Bidirectional {
			// Same edge twice in a row is a reversal; the edge must
			// support travel in both directions.
			return fmt.Errorf(
				"route %q: reversal over one-way edge %q", r.ID, el)
		}
		from := r.Elements[i-1]
		to := r.Elements[i+1]
		if !l.edgeConnects(e, from, to) {
			return fmt.Errorf(
				"route %q: edge %q does not connect %q to %q",
				r.ID, el, from, to)
		}
		prevEdge = el
	}
	return nil
}

func (l *Layout) edgeConnects(e *Edge, from, to string) bool {
	if e.From == from && e.To == to {
		return true
	}
	return e.Bidirectional && e.From == to && e.To == from
}

// Node returns a node by ID.
func (l *Layout) Node(id string) (*Node, bool) {
	n, ok := l.nodes[id]
	return n, ok
}

// Edge returns an edge by ID.
func (l *Layout) Edge(id string) (*Edge, bool) {
	e, ok := l.edges[id]
	return e, ok
}

// Track returns a track by ID.
func (l *Layout) Track(id string) (*Track, bool) {
	t, ok := l.tracks[id]
	return t, ok
}

// TracksOfType returns the tracks of the given type, in ID order. The order
// is stable so selection policies behave deterministically.
func (l *Layout) TracksOfType(tt TrackType) []*Track {
	var out []*Track
	for _, id := range l.trackIDs {
		if t := l.tracks[id]; t.Type == tt {
			out = append(out, t)
		}
	}
	return out
}

// Throats returns all throats.
func (l *Layout) Throats() []*Throat {
	var out []*Throat
	for _, th := range l.throats {
		out = append(out, th)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ThroatsCovering returns the throats whose switch set contains any of the
// given nodes.
func (l *Layout) ThroatsCovering(nodeIDs []string) []*Throat {
	var out []*Throat
	for _, th := range l.Throats() {
		for _, n := range nodeIDs {
			if th.Covers(n) {
				out = append(out, th)
				break
			}
		}
	}
	return out
}

// EdgesTouchingThroat returns the IDs of edges with an endpoint on one of
// the throat's switches. Rerouting around a contended throat excludes these
// edges.
func (l *Layout) EdgesTouchingThroat(th *Throat) []string {
	inThroat := make(map[string]bool, len(th.Switches))
	for _, s := range th.Switches {
		inThroat[s] = true
	}

	var out []string
	for _, e := range l.edges {
		if inThroat[e.From] || inThroat[e.To] {
			out = append(out, e.ID)
		}
	}
	sort.Strings(out)
	return out
}

// DeclaredRoute returns the pre-declared route between two tracks, if one
// exists.
func (l *Layout) DeclaredRoute(fromTrack, toTrack string) (*Route, bool) {
	r, ok := l.routeByPair[[2]string{fromTrack, toTrack}]
	return r, ok
}

// EdgeSpeed returns the effective speed on an edge in m/s.
func (l *Layout) EdgeSpeed(e *Edge) float64 {
	if e.SpeedLimit > 0 && e.SpeedLimit < l.DefaultSpeed {
		return e.SpeedLimit
	}
	return l.DefaultSpeed
}

// EdgeDuration returns the traversal time of an edge.
func (l *Layout) EdgeDuration(e *Edge) sim.VTimeInSec {
	if e.Duration > 0 {
		return e.Duration
	}
	return sim.VTimeInSec(e.Length / l.EdgeSpeed(e))
}
