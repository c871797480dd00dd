// Package store provides PostgreSQL persistence for jobs and run history.
package store

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable marks failures where the database could not be
// reached or a statement could not be executed. Write-path callers must
// propagate it; only best-effort paths may swallow it.
var ErrStoreUnavailable = errors.New("job store unavailable")

// UnavailableError wraps a database failure with the operation that hit it.
type UnavailableError struct {
	Op    string
	Cause error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Cause)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrStoreUnavailable) match any UnavailableError.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

func unavailable(op string, cause error) error {
	return &UnavailableError{Op: op, Cause: cause}
}
