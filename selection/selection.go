// Package selection provides the track-selection policies used by the
// resource coordinators when several tracks of the same type could serve a
// request. Policies form a closed set chosen at scenario-load time.
package selection

import (
	"fmt"
	"math/rand"
)

// A Candidate is one eligible track presented to a policy. Fits tells
// whether the request would pass the admission check on this track right
// now; policies only ever pick candidates that fit.
type Candidate struct {
	ID       string
	Capacity float64
	Occupied float64
	Fits     bool
}

// A Policy picks one candidate among the eligible ones. It returns the
// index into the candidate slice, or false when no candidate fits.
type Policy interface {
	Pick(candidates []Candidate) (int, bool)
}

// Policy names accepted by New.
const (
	PolicyRoundRobin     = "round-robin"
	PolicyLeastOccupied  = "least-occupied"
	PolicyFirstAvailable = "first-available"
	PolicyRandom         = "random"
)

// New creates a policy by name. The seed feeds the random policy so runs
// stay reproducible; other policies ignore it.
func New(name string, seed int64) (Policy, error) {
	switch name {
	case PolicyRoundRobin:
		return &roundRobin{}, nil
	case PolicyLeastOccupied:
		return leastOccupied{}, nil
	case PolicyFirstAvailable:
		return firstAvailable{}, nil
	case PolicyRandom:
		return &random{rng: rand.New(rand.NewSource(seed))}, nil
	default:
		return nil, fmt.Errorf("unknown selection policy %q", name)
	}
}

// roundRobin cycles through candidates in fixed order, advancing one
// position per successful pick.
type roundRobin struct {
	cursor int
}

func (p *roundRobin) Pick(candidates []Candidate) (int, bool) {
	n := len(candidates)
	if n == 0 {
		return 0, false
	}

	for off := 0; off < n; off++ {
		i := (p.cursor + off) % n
		if candidates[i].Fits {
			p.cursor = (i + 1) % n
			return i, true
		}
	}
	return 0, false
}

// leastOccupied picks the fitting candidate with the lowest occupancy
// ratio. Ties break by candidate order, which the coordinator keeps sorted
// by ID.
type leastOccupied struct{}

func (leastOccupied) Pick(candidates []Candidate) (int, bool) {
	best := -1
	bestRatio := 0.0
	for i, c := range candidates {
		if !c.Fits {
			continue
		}
		ratio := 1.0
		if c.Capacity > 0 {
			ratio = c.Occupied / c.Capacity
		}
		if best < 0 || ratio < bestRatio {
			best = i
			bestRatio = ratio
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

// firstAvailable picks the first fitting candidate in declaration order.
type firstAvailable struct{}

func (firstAvailable) Pick(candidates []Candidate) (int, bool) {
	for i, c := range candidates {
		if c.Fits {
			return i, true
		}
	}
	return 0, false
}

// random samples uniformly among fitting candidates.
type random struct {
	rng *rand.Rand
}

func (p *random) Pick(candidates []Candidate) (int, bool) {
	var fitting []int
	for i, c := range candidates {
		if c.Fits {
			fitting = append(fitting, i)
		}
	}
	if len(fitting) == 0 {
		return 0, false
	}
	return fitting[p.rng.Intn(len(fitting))], true
}
