// Package resources implements the capacity-gated coordinators that gate
// every entity transition: track space, workshop stations, locomotives, and
// switch throats. Coordinators are the only writers of shared occupancy
// state. There is deliberately no check-without-acquire operation; a fit
// check and the acquisition it guards always form one call, so two entities
// processed in the same scheduling step cannot double-book.
//
// A failed acquisition is not an error. Callers re-schedule a retry event
// and the coordinator escalates a diagnostic after repeated failures.
package resources

import (
	"github.com/railwerk/yardsim/sim"
)

// A Handle is proof of one successful acquisition. Releasing a handle twice
// has no effect beyond the first release.
type Handle struct {
	ID     string
	pool   *Pool
	amount float64

	released bool
}

// Amount returns the acquired amount.
func (h *Handle) Amount() float64 {
	return h.amount
}

// Release returns the acquired amount to the pool. Idempotent.
func (h *Handle) Release() {
	if h == nil || h.released {
		return
	}
	h.released = true
	h.pool.occupied -= h.amount
	if h.pool.occupied < 0 {
		h.pool.occupied = 0
	}
}

// A Pool is a generic capacity-gated resource: an amount of something
// finite that can be acquired and released.
type Pool struct {
	Name     string
	Capacity float64

	occupied float64
}

// NewPool creates a pool.
func NewPool(name string, capacity float64) *Pool {
	return &Pool{Name: name, Capacity: capacity}
}

// Acquire takes amount from the pool, or reports blocked without taking
// anything.
func (p *Pool) Acquire(amount float64) (*Handle, bool) {
	if p.occupied+amount > p.Capacity {
		return nil, false
	}
	p.occupied += amount
	return &Handle{
		ID:     sim.GetIDGenerator().Generate(),
		pool:   p,
		amount: amount,
	}, true
}

// Occupied returns the currently acquired amount.
func (p *Pool) Occupied() float64 {
	return p.occupied
}

// Available returns the amount still acquirable.
func (p *Pool) Available() float64 {
	return p.Capacity - p.occupied
}
