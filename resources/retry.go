package resources

import (
	"github.com/sirupsen/logrus"

	"github.com/railwerk/yardsim/sim"
)

// A RetryTracker counts consecutive failed acquisitions per requester.
// Saturation is normal operating behavior, not a fault: after WarnAfter
// consecutive failures a diagnostic is logged once per streak, suggesting
// the capacity is undersized, and the caller keeps retrying until the
// resource frees up or the horizon ends.
type RetryTracker struct {
	Resource  string
	Delay     sim.VTimeInSec
	WarnAfter int

	log      *logrus.Logger
	failures map[string]int

	totalBlocked int
}

// NewRetryTracker creates a tracker for one resource kind.
func NewRetryTracker(
	resource string,
	delay sim.VTimeInSec,
	warnAfter int,
	log *logrus.Logger,
) *RetryTracker {
	return &RetryTracker{
		Resource:  resource,
		Delay:     delay,
		WarnAfter: warnAfter,
		log:       log,
		failures:  make(map[string]int),
	}
}

// Blocked records a failed attempt and returns the consecutive failure
// count for the requester.
func (t *RetryTracker) Blocked(requester string, now sim.VTimeInSec) int {
	t.failures[requester]++
	t.totalBlocked++
	n := t.failures[requester]

	if n == t.WarnAfter {
		t.log.WithFields(logrus.Fields{
			"resource":  t.Resource,
			"requester": requester,
			"attempts":  n,
			"time":      float64(now),
		}).Warn("resource repeatedly exhausted; capacity may be undersized")
	}

	return n
}

// Granted resets the failure streak for the requester.
func (t *RetryTracker) Granted(requester string) {
	delete(t.failures, requester)
}

// TotalBlocked returns the number of blocked attempts over the whole run.
func (t *RetryTracker) TotalBlocked() int {
	return t.totalBlocked
}
