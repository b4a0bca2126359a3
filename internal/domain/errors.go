package domain

import "errors"

// Sentinel errors shared across the module. Callers wrap them with
// fmt.Errorf("%w: ...") and branch with errors.Is.
var (
	// ErrValidation marks input that fails domain validation.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup for an entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState marks an operation not allowed in the entity's
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrResourceUnavailable marks a required resource (e.g. machine)
	// that is not available for the operation.
	ErrResourceUnavailable = errors.New("resource unavailable")
	// ErrInsufficientStock marks a material reservation that exceeds
	// the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrConflict marks an operation that conflicts with the entity's
	// current persisted state.
	ErrConflict = errors.New("conflict")
	// ErrContention marks a failure to acquire a lock within the
	// bounded wait; the caller may retry.
	ErrContention = errors.New("contention")
)
