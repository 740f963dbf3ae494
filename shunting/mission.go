// Package shunting plans and arbitrates yard movements. A mission moves a
// set of wagons between two tracks with an assigned locomotive; the planner
// turns it into an ordered movement sequence over the yard graph, the
// resolver serializes missions contending for the same edges, throats, or
// locomotives, and the safety controller validates every movement before
// execution.
package shunting

import (
	"fmt"

	"github.com/railwerk/yardsim/sim"
)

// Priority orders missions contending for the same resources.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority-%d", int(p))
}

// MissionStatus is the lifecycle state of a shunting mission.
type MissionStatus int

const (
	MissionPending MissionStatus = iota
	MissionPlanned
	MissionExecuting
	MissionCompleted
	MissionFailed
	MissionCancelled
)

func (s MissionStatus) String() string {
	switch s {
	case MissionPending:
		return "pending"
	case MissionPlanned:
		return "planned"
	case MissionExecuting:
		return "executing"
	case MissionCompleted:
		return "completed"
	case MissionFailed:
		return "failed"
	case MissionCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status-%d", int(s))
}

// A Mission moves a wagon set from one track to another. Missions reference
// resources by identifier; the coordinators own the resources themselves.
type Mission struct {
	ID           string
	Priority     Priority
	WagonIDs     []string
	FromTrack    string
	ToTrack      string
	LocomotiveID string

	RequestedAt sim.VTimeInSec
	Seq         uint64 // request order, breaks RequestedAt ties

	Status   MissionStatus
	Plan     *Plan
	Attempts int
}

// NewMission creates a pending mission. The ID derives from the caller's
// request sequence, so identically-seeded runs name their missions
// identically.
func NewMission(
	wagonIDs []string,
	fromTrack, toTrack string,
	priority Priority,
	requestedAt sim.VTimeInSec,
	seq uint64,
) *Mission {
	return &Mission{
		ID:          fmt.Sprintf("M%d", seq),
		Priority:    priority,
		WagonIDs:    wagonIDs,
		FromTrack:   fromTrack,
		ToTrack:     toTrack,
		RequestedAt: requestedAt,
		Seq:         seq,
		Status:      MissionPending,
	}
}

// MovementKind is the type of one step in a shunting plan.
type MovementKind int

const (
	MovePull MovementKind = iota
	MovePush
	MoveCouple
	MoveDecouple
	MovePosition
	MoveReverse
)

func (k MovementKind) String() string {
	switch k {
	case MovePull:
		return "pull"
	case MovePush:
		return "push"
	case MoveCouple:
		return "couple"
	case MoveDecouple:
		return "decouple"
	case MovePosition:
		return "position"
	case MoveReverse:
		return "reverse"
	}
	return fmt.Sprintf("movement-%d", int(k))
}

// Safety check names attached to movements.
const (
	CheckSpeed           = "speed"
	CheckArrivalCapacity = "arrival-capacity"
	CheckSignal          = "signal"
)

// A Movement is one step of a plan. Traversal movements carry the edge they
// run over, the speed they run at, and the safety checks they must pass.
// A movement belongs to exactly one mission.
type Movement struct {
	Kind     MovementKind
	EdgeID   string
	FromNode string
	ToNode   string
	Duration sim.VTimeInSec
	Speed    float64 // m/s, traversal movements only
	Checks   []string
}

// A Plan is the ordered movement sequence of one mission, with the resource
// footprint the resolver arbitrates over. A plan is a candidate until the
// resolver admits it.
type Plan struct {
	Movements []Movement
	Duration  sim.VTimeInSec
	EdgeIDs   []string
	NodeIDs   []string
	ThroatIDs []string
}

// UsesEdge reports whether the plan traverses the given edge.
func (p *Plan) UsesEdge(edgeID string) bool {
	for _, e := range p.EdgeIDs {
		if e == edgeID {
			return true
		}
	}
	return false
}

// UsesThroat reports whether the plan passes through the given throat.
func (p *Plan) UsesThroat(throatID string) bool {
	for _, t := range p.ThroatIDs {
		if t == throatID {
			return true
		}
	}
	return false
}
