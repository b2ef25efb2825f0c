package model

import "time"

// Lock is a named, TTL-bounded mutual-exclusion record. At most one live
// (non-expired) record exists per key; the TTL is the safety net for holders
// that crash without releasing.
type Lock struct {
	Key        string    `bson:"_id" json:"key"`
	Owner      string    `bson:"owner" json:"owner"`
	AcquiredAt time.Time `bson:"acquired_at" json:"acquired_at"`
	ExpiresAt  time.Time `bson:"expires_at" json:"expires_at"`
}

// Expired reports whether the lock is past its TTL at the given instant.
func (l *Lock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
