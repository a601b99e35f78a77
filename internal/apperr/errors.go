// Package apperr defines the error kinds shared by all services.
// Services wrap these sentinels with context via fmt.Errorf("%w: ...") so
// handlers can map them to HTTP statuses with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrPermission marks an operation the caller's role does not allow.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound marks a reference to an entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a failed uniqueness or referential precondition.
	ErrConflict = errors.New("conflict")
	// ErrStorage marks a storage-layer failure. Fatal to the request, not
	// the process.
	ErrStorage = errors.New("storage failure")
)
