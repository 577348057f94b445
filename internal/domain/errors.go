package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrAlreadySettled  = errors.New("market already settled")
	ErrNotResolvable   = errors.New("market is not ready for settlement")
	ErrInvalidSnapshot = errors.New("invalid market snapshot")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrLockHeld        = errors.New("lock already held")
	ErrFeedDisconnect  = errors.New("score feed disconnected")
	ErrContextDone     = errors.New("context cancelled")
)
