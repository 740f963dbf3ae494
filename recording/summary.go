package recording

import (
	"fmt"
	"sort"
	"strings"
)

// A Summary holds the aggregate KPIs of one run, computed from the recorded
// event stream. A run always produces a summary, even when some work never
// finished before the horizon.
type Summary struct {
	ElapsedSeconds float64

	WagonsRetrofitted int
	WagonsDeparted    int
	TrainsDeparted    int

	// ThroughputPerHour is retrofitted wagons per simulated hour.
	ThroughputPerHour float64

	MissionsCompleted int
	MissionsFailed    int

	// BlockedAttempts counts every acquisition that had to retry.
	BlockedAttempts int

	// AvgWaitSeconds is the mean wait per blocked attempt.
	AvgWaitSeconds float64

	SafetyRejections int

	// WorkshopUtilization is busy-station time over available station time,
	// per workshop.
	WorkshopUtilization map[string]float64

	// IncompleteWagons lists wagons that had not departed when the run
	// ended.
	IncompleteWagons []string
}

// BuildSummary derives the KPIs from an event stream. stations maps
// workshop ID to its station count.
func BuildSummary(
	events []SimEvent,
	end float64,
	stations map[string]int,
) Summary {
	s := Summary{
		ElapsedSeconds:      end,
		WorkshopUtilization: make(map[string]float64),
	}

	busy := make(map[string]float64)
	var waitTotal float64
	arrived := make(map[string]bool)
	departed := make(map[string]bool)

	for _, e := range events {
		switch e.Kind {
		case EvtWorkshopExit:
			s.WagonsRetrofitted++
			busy[e.Location] += e.Duration
		case EvtWagonClassified:
			arrived[e.Entity] = true
		case EvtTrainDeparted:
			s.TrainsDeparted++
		case EvtWagonAssigned:
			departed[e.Entity] = true
			s.WagonsDeparted++
		case EvtMissionDone:
			s.MissionsCompleted++
		case EvtMissionFailed:
			s.MissionsFailed++
		case EvtBlocked:
			s.BlockedAttempts++
			waitTotal += e.Duration
		case EvtSafetyRejected:
			s.SafetyRejections++
		}
	}

	if end > 0 {
		s.ThroughputPerHour = float64(s.WagonsRetrofitted) / (end / 3600)
	}
	if s.BlockedAttempts > 0 {
		s.AvgWaitSeconds = waitTotal / float64(s.BlockedAttempts)
	}
	for ws, n := range stations {
		if n > 0 && end > 0 {
			s.WorkshopUtilization[ws] = busy[ws] / (float64(n) * end)
		}
	}

	for w := range arrived {
		if !departed[w] {
			s.IncompleteWagons = append(s.IncompleteWagons, w)
		}
	}
	sort.Strings(s.IncompleteWagons)

	return s
}

// String renders the summary as a short report.
func (s Summary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "elapsed: %.0fs\n", s.ElapsedSeconds)
	fmt.Fprintf(&b, "wagons retrofitted: %d (%.2f/h)\n",
		s.WagonsRetrofitted, s.ThroughputPerHour)
	fmt.Fprintf(&b, "wagons departed: %d on %d trains\n",
		s.WagonsDeparted, s.TrainsDeparted)
	fmt.Fprintf(&b, "missions: %d completed, %d failed\n",
		s.MissionsCompleted, s.MissionsFailed)
	fmt.Fprintf(&b, "blocked attempts: %d (avg wait %.0fs)\n",
		s.BlockedAttempts, s.AvgWaitSeconds)
	fmt.Fprintf(&b, "safety rejections: %d\n", s.SafetyRejections)

	wsIDs := make([]string, 0, len(s.WorkshopUtilization))
	for ws := range s.WorkshopUtilization {
		wsIDs = append(wsIDs, ws)
	}
	sort.Strings(wsIDs)
	for _, ws := range wsIDs {
		fmt.Fprintf(&b, "workshop %s utilization: %.0f%%\n",
			ws, s.WorkshopUtilization[ws]*100)
	}

	if len(s.IncompleteWagons) > 0 {
		fmt.Fprintf(&b, "incomplete wagons: %s\n",
			strings.Join(s.IncompleteWagons, ", "))
	}

	return b.String()
}
