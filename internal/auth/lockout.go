package auth

import "time"

// LockoutPolicy decides lock state from failed-attempt counts. Pure logic;
// persistence of its decisions belongs to the caller.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// LockoutUpdate is the persisted outcome of a lockout decision.
type LockoutUpdate struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Check returns an AccountLocked error while the lock is in force.
func (p LockoutPolicy) Check(lockedUntil *time.Time, now time.Time) error {
	if lockedUntil != nil && now.Before(*lockedUntil) {
		return errAccountLocked(*lockedUntil)
	}
	return nil
}

// OnFailure increments the counter and locks once the threshold is reached.
func (p LockoutPolicy) OnFailure(failedAttempts int, now time.Time) LockoutUpdate {
	next := failedAttempts + 1
	update := LockoutUpdate{FailedAttempts: next}
	if next >= p.MaxAttempts {
		until := now.Add(p.Duration)
		update.LockedUntil = &until
	}
	return update
}

// OnSuccess clears the counter and any expired lock. The second return
// reports whether anything needs persisting.
func (p LockoutPolicy) OnSuccess(failedAttempts int, lockedUntil *time.Time) (LockoutUpdate, bool) {
	if failedAttempts == 0 && lockedUntil == nil {
		return LockoutUpdate{}, false
	}
	return LockoutUpdate{FailedAttempts: 0, LockedUntil: nil}, true
}
