package store

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrAlreadyMatched is returned when either side of a proposed match
	// already holds an active match record.
	ErrAlreadyMatched = errors.New("store: already has an active match")

	// ErrSessionCompleted is returned when a mutation targets a session
	// that has already been completed.
	ErrSessionCompleted = errors.New("store: session already completed")

	// ErrConflict is returned when a session changed state under a
	// concurrent writer. Retryable.
	ErrConflict = errors.New("store: concurrent modification")

	// ErrUnknownKind is returned for a matchable kind outside the
	// registry.
	ErrUnknownKind = errors.New("store: unknown matchable kind")
)
