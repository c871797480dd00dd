package types

// Status is the lifecycle state of a job under automation.
type Status string

const (
	// StatusPending is a freshly registered job awaiting match evaluation
	StatusPending Status = "pending"
	// StatusMatched is a job that passed the match-score threshold
	StatusMatched Status = "matched"
	// StatusNotified is a matched job parked for human approval
	StatusNotified Status = "notified"
	// StatusSubmitted is a job whose application form was submitted
	StatusSubmitted Status = "submitted"
	// StatusFormFilled is a job whose form was populated but not submitted
	StatusFormFilled Status = "form_filled"
	// StatusReviewNeeded is a job left for manual completion
	StatusReviewNeeded Status = "review_needed"
	// StatusSkipped is a job the human declined
	StatusSkipped Status = "skipped"
	// StatusError is a job whose automation attempt failed
	StatusError Status = "error"
)

// transitions maps each status to the statuses it may move into.
var transitions = map[Status][]Status{
	StatusPending: {StatusMatched},
	StatusMatched: {StatusNotified, StatusSubmitted, StatusFormFilled,
		StatusReviewNeeded, StatusError, StatusSkipped},
	StatusNotified: {StatusSubmitted, StatusFormFilled,
		StatusReviewNeeded, StatusError, StatusSkipped},
}

// Terminal reports whether the engine performs no further automatic
// transitions from s. External re-tailoring may still reopen error jobs.
func (s Status) Terminal() bool {
	switch s {
	case StatusSubmitted, StatusFormFilled, StatusReviewNeeded, StatusSkipped, StatusError:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is a recognized lifecycle status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusNotified, StatusSubmitted,
		StatusFormFilled, StatusReviewNeeded, StatusSkipped, StatusError:
		return true
	}
	return false
}
