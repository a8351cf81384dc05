// Package clock abstracts wall-clock time and one-shot scheduling so the
// countdown and inactivity timers can be driven deterministically in tests.
package clock

import "time"

// Clock is the time source used by the timing components.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a scheduled call that can be cancelled.
type Timer interface {
	// Stop prevents the call from firing. It reports whether the call was
	// still pending; stopping an already fired or stopped timer is a no-op.
	Stop() bool
}

// System is the real clock.
type System struct{}

func (System) Now() time.Time {
	return time.Now().UTC()
}

func (System) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
