package services

import "errors"

// Shared sentinel errors for the service layer and the HTTP error mapping.
var (
	// Resource lookups
	ErrNotFound = errors.New("requested resource not found")

	// Bracket generation
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedFormat  = errors.New("unsupported bracket format")
	ErrTournamentNotReady = errors.New("tournament is not ready for bracket generation")

	// Ranking jobs
	ErrJobAlreadyRunning = errors.New("a job of this type is already running")
	ErrJobQueueFull      = errors.New("job queue is full")
	ErrJobNotFound       = errors.New("job not found")
)
