package resources

import (
	"sort"

	"github.com/railwerk/yardsim/scenario"
)

// WorkshopCoordinator gates workshop stations. Wagons being processed on a
// workshop's track never exceed its station count.
type WorkshopCoordinator struct {
	workshops map[string]*scenario.Workshop
	stations  map[string]*Pool
	ids       []string
}

// NewWorkshopCoordinator creates station pools for every workshop.
func NewWorkshopCoordinator(
	workshops []*scenario.Workshop,
) *WorkshopCoordinator {
	c := &WorkshopCoordinator{
		workshops: make(map[string]*scenario.Workshop),
		stations:  make(map[string]*Pool),
	}
	for _, w := range workshops {
		c.workshops[w.ID] = w
		c.stations[w.ID] = NewPool(
			"workshop-stations/"+w.ID, float64(w.Stations))
		c.ids = append(c.ids, w.ID)
	}
	sort.Strings(c.ids)
	return c
}

// Workshop returns a workshop by ID.
func (c *WorkshopCoordinator) Workshop(id string) (*scenario.Workshop, bool) {
	w, ok := c.workshops[id]
	return w, ok
}

// WorkshopOnTrack returns the workshop bound to a track.
func (c *WorkshopCoordinator) WorkshopOnTrack(trackID string) (*scenario.Workshop, bool) {
	for _, id := range c.ids {
		if c.workshops[id].TrackID == trackID {
			return c.workshops[id], true
		}
	}
	return nil, false
}

// AcquireStation takes one station of the named workshop.
func (c *WorkshopCoordinator) AcquireStation(workshopID string) (*Handle, bool) {
	pool, ok := c.stations[workshopID]
	if !ok {
		return nil, false
	}
	return pool.Acquire(1)
}

// InService returns the number of occupied stations of a workshop.
func (c *WorkshopCoordinator) InService(workshopID string) int {
	pool, ok := c.stations[workshopID]
	if !ok {
		return 0
	}
	return int(pool.Occupied())
}
