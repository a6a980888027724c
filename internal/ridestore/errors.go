package ridestore

import "errors"

var (
	// ErrValidation marks a rejected request; the wrapped text is user-facing.
	ErrValidation = errors.New("validation failed")

	ErrRideNotFound   = errors.New("ride not found")
	ErrDriverNotFound = errors.New("driver not found")

	// ErrInvalidTransition means the ride was not in a status the operation
	// accepts. The ride is left untouched.
	ErrInvalidTransition = errors.New("invalid transition")
)
