// Package gateway translates operator approval events into lifecycle
// actions and replies with human-readable outcomes.
package gateway

import (
	"fmt"
	"strings"
)

// Action is the verb encoded in an approval event token.
type Action string

const (
	ActionApply  Action = "apply"
	ActionSkip   Action = "skip"
	ActionReview Action = "review"
)

// Event is one parsed operator decision.
type Event struct {
	Action Action
	JobID  string
}

// ParseError reports a token that does not encode a valid event.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("bad event token %q: %s", e.Token, e.Reason)
}

// ParseEvent decodes an "<action>_<job-id>" token. Only the first
// separator splits, so job IDs containing underscores survive intact.
func ParseEvent(token string) (Event, error) {
	action, id, found := strings.Cut(token, "_")
	if !found {
		return Event{}, &ParseError{Token: token, Reason: "missing separator"}
	}
	if id == "" {
		return Event{}, &ParseError{Token: token, Reason: "empty job id"}
	}
	switch Action(action) {
	case ActionApply, ActionSkip, ActionReview:
		return Event{Action: Action(action), JobID: id}, nil
	default:
		return Event{}, &ParseError{Token: token, Reason: "unknown action"}
	}
}

// EncodeToken renders the token for an action on a job, the inverse of
// ParseEvent.
func EncodeToken(action Action, jobID string) string {
	return string(action) + "_" + jobID
}
