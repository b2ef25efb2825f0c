// Package conflict decides whether reservation intervals collide. It is pure:
// the same function serves as the optimistic pre-check and as the
// authoritative re-check inside a lock.
package conflict

import (
	"time"

	"courtside/pkg/model"
)

// Overlaps reports whether the half-open intervals [s1,e1) and [s2,e2)
// intersect. Adjacent intervals (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}

// HasConflict reports whether candidate collides with any existing
// reservation that still blocks its slot (pending or confirmed). The
// candidate's own record is skipped so re-validation of persisted
// reservations is safe.
func HasConflict(candidate *model.Reservation, existing []*model.Reservation) bool {
	for _, r := range existing {
		if r.ID != "" && r.ID == candidate.ID {
			continue
		}
		if !r.Status.Blocking() {
			continue
		}
		if Overlaps(candidate.StartTime, candidate.EndTime, r.StartTime, r.EndTime) {
			return true
		}
	}
	return false
}
