package models

import "time"

// AttemptRecord tracks failed gate attempts for a single client address
type AttemptRecord struct {
	ClientAddress string     `db:"client_address"`
	AttemptCount  int        `db:"attempt_count"`
	LastAttemptAt time.Time  `db:"last_attempt_at"`
	LockedUntil   *time.Time `db:"locked_until"`
}

// IsLocked reports whether the record holds a lock that has not yet expired at now
func (r *AttemptRecord) IsLocked(now time.Time) bool {
	return r.LockedUntil != nil && now.Before(*r.LockedUntil)
}

// RateLimitResult is the outcome of a rate limit check for one attempt.
// RemainingAttempts counts the failures still allowed after the current attempt fails.
type RateLimitResult struct {
	Allowed           bool
	RemainingAttempts int
	LockedUntil       *time.Time
	// LockTriggered is set when this check moved the address into lockout
	LockTriggered bool
}
