package memberauth

import "time"

// LockoutStep defines a public type used by memberauth APIs.
//
// LockoutStep instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type LockoutStep struct {
	// Threshold is the failure count (after increment) at which Duration
	// applies. Steps must be sorted by ascending Threshold.
	Threshold int
	Duration  time.Duration
}

func defaultLockoutSteps() []LockoutStep {
	return []LockoutStep{
		{Threshold: 3, Duration: 15 * time.Second},
		{Threshold: 6, Duration: 30 * time.Second},
		{Threshold: 9, Duration: 60 * time.Second},
	}
}

// lockoutDuration returns the window for the given post-increment failure
// count. Counts below the first threshold get no window.
func lockoutDuration(steps []LockoutStep, failures int) time.Duration {
	var d time.Duration
	for _, step := range steps {
		if failures >= step.Threshold {
			d = step.Duration
		}
	}
	return d
}

// remainingLockout converts an absolute lockout deadline into whole seconds
// remaining, rounding partial seconds up so a caller never sees 0 for an
// active window.
func remainingLockout(until time.Time, now time.Time) int64 {
	remaining := until.Sub(now)
	if remaining <= 0 {
		return 0
	}
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	return secs
}
