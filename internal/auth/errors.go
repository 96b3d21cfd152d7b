package auth

import "errors"

var (
	// ErrInvalidKey is returned when a bearer key resolves to no actor.
	ErrInvalidKey = errors.New("invalid API key")

	// ErrForbidden is returned when an actor targets another user's resources.
	ErrForbidden = errors.New("actor may not access this resource")
)
