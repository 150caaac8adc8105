package domain

import "errors"

var (
	// ErrNotFound covers missing participants and missing inventory
	// records (already consumed or never owned).
	ErrNotFound = errors.New("not found")

	// ErrMissingTarget is returned when an effect that needs a target
	// is invoked without one.
	ErrMissingTarget = errors.New("target required")

	// ErrPermission is returned when an eliminated participant tries
	// to act.
	ErrPermission = errors.New("not permitted")

	// ErrInvalidOperation covers self-transfer and direct use of a
	// defense item.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrCapExceeded is returned when a transfer would push the
	// destination past the item's holding cap.
	ErrCapExceeded = errors.New("holding cap exceeded")

	// ErrConcurrency is returned when the retry budget for an atomic
	// write is exhausted.
	ErrConcurrency = errors.New("transaction conflict, retries exhausted")
)
