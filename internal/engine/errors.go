package engine

import (
	"errors"

	"spycats/internal/repo"
)

// Error kinds returned by the engine, always wrapped with context. Test with
// errors.Is.
var (
	ErrNotFound              = repo.ErrNotFound
	ErrValidation            = errors.New("validation failed")
	ErrConflict              = errors.New("conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
