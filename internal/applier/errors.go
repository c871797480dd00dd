// Package applier fills and submits third-party job application forms.
package applier

import (
	"errors"
	"fmt"
)

// ErrFieldNotFound marks a selector that matched no element on the page.
// Missing fields are skipped, never fatal.
var ErrFieldNotFound = errors.New("no matching element")

// AutomationError is a fatal browser-automation fault: an unreachable page,
// an engine crash, or a failed session start. It maps to the error outcome.
type AutomationError struct {
	URL     string
	Message string
	Cause   error
}

func (e *AutomationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("automation error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("automation error for %s: %s", e.URL, e.Message)
}

func (e *AutomationError) Unwrap() error {
	return e.Cause
}
