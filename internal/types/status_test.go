package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to matched", StatusPending, StatusMatched, true},
		{"pending cannot skip ahead", StatusPending, StatusSubmitted, false},
		{"matched to notified", StatusMatched, StatusNotified, true},
		{"matched straight to submitted", StatusMatched, StatusSubmitted, true},
		{"matched to skipped", StatusMatched, StatusSkipped, true},
		{"notified to submitted", StatusNotified, StatusSubmitted, true},
		{"notified to form_filled", StatusNotified, StatusFormFilled, true},
		{"notified to review_needed", StatusNotified, StatusReviewNeeded, true},
		{"notified to error", StatusNotified, StatusError, true},
		{"notified to skipped", StatusNotified, StatusSkipped, true},
		{"no backwards transition", StatusMatched, StatusPending, false},
		{"submitted is final", StatusSubmitted, StatusSkipped, false},
		{"skipped is final", StatusSkipped, StatusSubmitted, false},
		{"error is final for the engine", StatusError, StatusMatched, false},
		{"self transition rejected", StatusNotified, StatusNotified, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	terminal := []Status{StatusSubmitted, StatusFormFilled, StatusReviewNeeded, StatusSkipped, StatusError}
	for _, s := range terminal {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}

	active := []Status{StatusPending, StatusMatched, StatusNotified}
	for _, s := range active {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestValid(t *testing.T) {
	assert.True(t, StatusFormFilled.Valid())
	assert.True(t, StatusReviewNeeded.Valid())
	assert.False(t, Status("rejected").Valid())
	assert.False(t, Status("").Valid())
}
