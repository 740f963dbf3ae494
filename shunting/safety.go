package shunting

import (
	"fmt"

	"github.com/railwerk/yardsim/yard"
)

// A SafetyViolation is a failed movement check. It denotes an infeasible or
// unsafe plan, not temporary scarcity: the mission must replan or wait, and
// the violation is never silently bypassed.
type SafetyViolation struct {
	MissionID string
	Movement  Movement
	Check     string
	Reason    string
}

func (v *SafetyViolation) Error() string {
	return fmt.Sprintf("safety violation on mission %s (%s/%s): %s",
		v.MissionID, v.Movement.Kind, v.Check, v.Reason)
}

// The SafetyController validates each movement of an admitted plan against
// speed limits, capacity at arrival, and signal compliance. It runs after
// arbitration and before execution.
type SafetyController struct {
	layout *yard.Layout

	// MaxShuntSpeed caps every shunting movement, in m/s.
	MaxShuntSpeed float64
}

// NewSafetyController creates a safety controller.
func NewSafetyController(layout *yard.Layout, maxShuntSpeed float64) *SafetyController {
	return &SafetyController{
		layout:        layout,
		MaxShuntSpeed: maxShuntSpeed,
	}
}

// Validate checks every movement of the plan. totalLength is the combined
// length of the wagon set; fits reports whether the destination track can
// admit that length right now; edgeBusy reports whether another executing
// mission holds an edge.
func (s *SafetyController) Validate(
	m *Mission,
	plan *Plan,
	fits func(trackID string, length float64) bool,
	totalLength float64,
	edgeBusy func(edgeID string) bool,
) error {
	for _, mv := range plan.Movements {
		for _, check := range mv.Checks {
			if err := s.runCheck(m, mv, check, fits, totalLength, edgeBusy); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SafetyController) runCheck(
	m *Mission,
	mv Movement,
	check string,
	fits func(trackID string, length float64) bool,
	totalLength float64,
	edgeBusy func(edgeID string) bool,
) error {
	switch check {
	case CheckSpeed:
		return s.checkSpeed(m, mv)
	case CheckArrivalCapacity:
		if !fits(m.ToTrack, totalLength) {
			return &SafetyViolation{
				MissionID: m.ID,
				Movement:  mv,
				Check:     CheckArrivalCapacity,
				Reason: fmt.Sprintf(
					"track %s cannot admit %.1fm at arrival",
					m.ToTrack, totalLength),
			}
		}
	case CheckSignal:
		if edgeBusy != nil && mv.EdgeID != "" && edgeBusy(mv.EdgeID) {
			return &SafetyViolation{
				MissionID: m.ID,
				Movement:  mv,
				Check:     CheckSignal,
				Reason:    fmt.Sprintf("edge %s occupied", mv.EdgeID),
			}
		}
	}
	return nil
}

func (s *SafetyController) checkSpeed(m *Mission, mv Movement) error {
	if s.MaxShuntSpeed > 0 && mv.Speed > s.MaxShuntSpeed {
		return &SafetyViolation{
			MissionID: m.ID,
			Movement:  mv,
			Check:     CheckSpeed,
			Reason: fmt.Sprintf("%.1f m/s exceeds shunt limit %.1f m/s",
				mv.Speed, s.MaxShuntSpeed),
		}
	}

	if mv.EdgeID == "" {
		return nil
	}
	edge, ok := s.layout.Edge(mv.EdgeID)
	if !ok {
		return &SafetyViolation{
			MissionID: m.ID,
			Movement:  mv,
			Check:     CheckSpeed,
			Reason:    fmt.Sprintf("unknown edge %s", mv.EdgeID),
		}
	}
	if edge.SpeedLimit > 0 && mv.Speed > edge.SpeedLimit {
		return &SafetyViolation{
			MissionID: m.ID,
			Movement:  mv,
			Check:     CheckSpeed,
			Reason: fmt.Sprintf("%.1f m/s exceeds edge limit %.1f m/s",
				mv.Speed, edge.SpeedLimit),
		}
	}
	return nil
}
