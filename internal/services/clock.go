package services

import "time"

// Clock supplies the current time to the lifecycle engines. Time-based
// transitions (retry windows, auto-approval, expiry) are evaluated
// lazily against this clock at the next relevant operation, never by a
// background scheduler.
type Clock func() time.Time

// SystemClock is the production clock.
func SystemClock() time.Time {
	return time.Now().UTC()
}
