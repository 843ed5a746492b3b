package rendersched

import "errors"

var (
	// Store errors.
	ErrNoStore     = errors.New("rendersched: no store configured")
	ErrStoreClosed = errors.New("rendersched: store closed")

	// Not found errors.
	ErrJobNotFound   = errors.New("rendersched: job not found")
	ErrBatchNotFound = errors.New("rendersched: batch not found")

	// Validation errors. Rejected before any state is created.
	ErrMissingFields       = errors.New("rendersched: missing required fields")
	ErrInvalidOutputFormat = errors.New("rendersched: invalid output format")
	ErrInvalidResolution   = errors.New("rendersched: resolution dimensions must be positive")

	// Capacity errors. Rejected before any state is created.
	ErrQueueFull        = errors.New("rendersched: queue is full")
	ErrConcurrencyLimit = errors.New("rendersched: concurrency limit reached")

	// Conflict errors.
	ErrJobAlreadyExists   = errors.New("rendersched: job already exists")
	ErrBatchAlreadyExists = errors.New("rendersched: batch already exists")

	// State errors. Wrapped with the current status at the call site so the
	// caller can explain the rejection.
	ErrInvalidState = errors.New("rendersched: invalid state transition")
	ErrCannotCancel = errors.New("rendersched: cannot cancel")
)
