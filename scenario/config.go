package scenario

import (
	"fmt"

	"github.com/railwerk/yardsim/selection"
	"github.com/railwerk/yardsim/sim"
)

// Config carries the knobs of one simulation run.
//
// AdmissionThreshold and LotSize have no normative default in the field and
// must be set explicitly; construction fails otherwise.
type Config struct {
	// AdmissionThreshold is the fraction of nominal track capacity that may
	// actually be occupied. Required.
	AdmissionThreshold float64

	// LotSize is the number of wagons batched on a collection track before
	// a shunting move to the feeder is dispatched. Required.
	LotSize int

	// RetryDelay is the wait before a blocked acquisition retries.
	// Defaults to 5 simulated minutes.
	RetryDelay sim.VTimeInSec

	// WarnAfterAttempts is the number of consecutive failed acquisitions
	// after which a capacity diagnostic is logged. Retrying continues
	// regardless. Defaults to 3.
	WarnAfterAttempts int

	// SelectionPolicy names the track-selection policy. Defaults to
	// first-available.
	SelectionPolicy string

	// Seed feeds every random choice in the run.
	Seed int64

	// Horizon ends the run at the given time even if work remains; 0 means
	// run until the event queue drains. Entities still pending at the
	// horizon are reported incomplete, not failed.
	Horizon sim.VTimeInSec
}

func (c *Config) validate() error {
	if c.AdmissionThreshold <= 0 || c.AdmissionThreshold > 1 {
		return fmt.Errorf(
			"config: admission threshold must be in (0, 1], got %f",
			c.AdmissionThreshold)
	}
	if c.LotSize <= 0 {
		return fmt.Errorf("config: lot size must be positive, got %d",
			c.LotSize)
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = sim.Minutes(5)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("config: negative retry delay")
	}
	if c.WarnAfterAttempts == 0 {
		c.WarnAfterAttempts = 3
	}
	if c.SelectionPolicy == "" {
		c.SelectionPolicy = selection.PolicyFirstAvailable
	}
	if _, err := selection.New(c.SelectionPolicy, c.Seed); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Horizon < 0 {
		return fmt.Errorf("config: negative horizon")
	}
	return nil
}
