package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	// ErrNoMatch means a conditional update found the record in a state that
	// no longer allows the transition (another actor won the race).
	ErrNoMatch = errors.New("reservation state changed concurrently")
)
