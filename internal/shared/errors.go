package shared

import (
	"errors"
	"fmt"
)

// Closed set of error kinds surfaced by the reporting core. Callers match
// with errors.Is; everything else is treated as internal.
var (
	// ErrForbidden indicates a missing permission or a shop the caller
	// cannot access.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates unusable caller input. Report entry points
	// coerce bad input instead of raising this, but collaborators may
	// still surface it.
	ErrValidation = errors.New("validation failed")
	// ErrStorage marks failures propagated from the storage collaborator.
	ErrStorage = errors.New("storage failure")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// StorageError wraps err so it matches ErrStorage while keeping the
// original chain intact.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
