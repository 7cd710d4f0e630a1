package service

import "errors"

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidRequest    = errors.New("invalid request")
	// ErrJobBusy means another tick or control operation holds the job lock.
	ErrJobBusy = errors.New("job is busy")
)
