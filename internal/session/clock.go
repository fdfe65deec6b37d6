package session

import "time"

// Clock computes the countdown for a live session from the submission's
// authoritative start instant and the exam duration. Remaining time is always
// recomputed from the wall-clock delta, never from a stored countdown, so the
// clock survives the client pausing, reloading or closing mid-session.
type Clock struct {
	start    time.Time
	duration time.Duration
}

// NewClock creates a Clock for a session that started at start and runs for
// durationMinutes.
func NewClock(start time.Time, durationMinutes int) *Clock {
	return &Clock{
		start:    start,
		duration: time.Duration(durationMinutes) * time.Minute,
	}
}

// Remaining returns the time left at now, floored at zero.
func (c *Clock) Remaining(now time.Time) time.Duration {
	remaining := c.duration - now.Sub(c.start)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the countdown has reached zero. Once-only firing of
// the auto-submit signal is the controller's responsibility.
func (c *Clock) Expired(now time.Time) bool {
	return c.Remaining(now) == 0
}
