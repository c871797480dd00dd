// Package lifecycle enforces the job application state machine and owns
// every status transition.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/jonathan/job-agent/internal/types"
)

// ErrBusy marks an apply request for a job whose application is already
// in flight. Callers surface it to the requester; they never retry blindly.
var ErrBusy = errors.New("application already in progress")

// ErrUnknownJob marks an operation addressing a job ID the store has
// never seen.
var ErrUnknownJob = errors.New("unknown job")

// TransitionError reports a status change the state machine forbids.
type TransitionError struct {
	From types.Status
	To   types.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
