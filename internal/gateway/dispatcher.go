package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/job-agent/internal/applier"
	"github.com/jonathan/job-agent/internal/lifecycle"
	"github.com/jonathan/job-agent/internal/types"
)

// Responder delivers a reply for a handled event back to the operator.
type Responder interface {
	Reply(ctx context.Context, jobID, message string) error
}

// Dispatcher consumes raw event tokens from a bounded queue and executes
// them one at a time. Single-consumer ordering means two taps on the same
// approval card resolve deterministically: the first acts, the second gets
// the already-running or already-resolved reply.
type Dispatcher struct {
	engine    *lifecycle.Engine
	responder Responder
	events    chan string
}

// NewDispatcher creates a dispatcher with the given queue capacity.
func NewDispatcher(engine *lifecycle.Engine, responder Responder, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Dispatcher{
		engine:    engine,
		responder: responder,
		events:    make(chan string, queueSize),
	}
}

// Submit enqueues a raw token without blocking. It reports false when the
// queue is full; the caller decides whether to tell the operator.
func (d *Dispatcher) Submit(token string) bool {
	select {
	case d.events <- token:
		return true
	default:
		return false
	}
}

// Run consumes the event queue until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case token := <-d.events:
			d.handle(ctx, token)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}

	// Bare query commands carry no job ID.
	switch token {
	case "stats":
		d.reply(ctx, "", d.statsMessage(ctx))
		return
	case "pending":
		d.reply(ctx, "", d.listMessage(ctx, types.StatusNotified, "Pending approval"))
		return
	case "applied":
		d.reply(ctx, "", d.listMessage(ctx, types.StatusSubmitted, "Applied"))
		return
	case "runs":
		d.reply(ctx, "", d.historyMessage(ctx))
		return
	}

	event, err := ParseEvent(token)
	if err != nil {
		log.Printf("[GATEWAY] %v", err)
		d.reply(ctx, "", fmt.Sprintf("Unrecognized command %q.", token))
		return
	}

	switch event.Action {
	case ActionApply:
		d.handleApply(ctx, event.JobID)
	case ActionSkip:
		d.handleSkip(ctx, event.JobID)
	case ActionReview:
		d.handleReview(ctx, event.JobID)
	}
}

func (d *Dispatcher) handleApply(ctx context.Context, jobID string) {
	attempt, err := d.engine.Apply(ctx, jobID)
	switch {
	case errors.Is(err, lifecycle.ErrBusy):
		d.reply(ctx, jobID, "An application for this job is already running.")
		return
	case errors.Is(err, lifecycle.ErrUnknownJob):
		d.reply(ctx, jobID, fmt.Sprintf("Job %s not found.", jobID))
		return
	}

	var te *lifecycle.TransitionError
	if errors.As(err, &te) {
		d.reply(ctx, jobID, fmt.Sprintf("Job %s is %s and can no longer be applied to.", jobID, te.From))
		return
	}

	if attempt == nil {
		log.Printf("[GATEWAY] %s: apply failed: %v", jobID, err)
		d.reply(ctx, jobID, fmt.Sprintf("Application for %s failed: %v", jobID, err))
		return
	}

	switch attempt.Outcome {
	case applier.OutcomeSubmitted:
		d.reply(ctx, jobID, fmt.Sprintf("Application submitted for %s (%d fields filled).", jobID, attempt.FilledCount()))
	case applier.OutcomeFormFilled:
		d.reply(ctx, jobID, fmt.Sprintf("Form filled for %s but not submitted (%s). Please submit manually: see %s", jobID, attempt.Reason, attempt.ScreenshotPath))
	case applier.OutcomeReviewNeeded:
		d.reply(ctx, jobID, fmt.Sprintf("Form filled for %s; auto-submission is disabled. Review %s and submit manually.", jobID, attempt.ScreenshotPath))
	default:
		d.reply(ctx, jobID, fmt.Sprintf("Application for %s failed: %s", jobID, attempt.Reason))
	}
}

func (d *Dispatcher) handleSkip(ctx context.Context, jobID string) {
	err := d.engine.Skip(ctx, jobID)
	switch {
	case err == nil:
		d.reply(ctx, jobID, fmt.Sprintf("Skipped %s.", jobID))
	case errors.Is(err, lifecycle.ErrUnknownJob):
		d.reply(ctx, jobID, fmt.Sprintf("Job %s not found.", jobID))
	default:
		log.Printf("[GATEWAY] %s: skip failed: %v", jobID, err)
		d.reply(ctx, jobID, fmt.Sprintf("Could not skip %s: %v", jobID, err))
	}
}

func (d *Dispatcher) handleReview(ctx context.Context, jobID string) {
	job, actions, err := d.engine.Review(ctx, jobID)
	switch {
	case errors.Is(err, lifecycle.ErrUnknownJob):
		d.reply(ctx, jobID, fmt.Sprintf("Job %s not found.", jobID))
		return
	case err != nil:
		log.Printf("[GATEWAY] %s: review failed: %v", jobID, err)
		d.reply(ctx, jobID, fmt.Sprintf("Could not load %s: %v", jobID, err))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %s (%s)\n", job.Title, job.Company, job.Location)
	fmt.Fprintf(&b, "Score: %.2f  Status: %s\n%s\n", job.MatchScore, job.Status, job.URL)
	for _, action := range actions {
		fmt.Fprintf(&b, "-> %s\n", EncodeToken(Action(action), job.ID))
	}
	d.reply(ctx, jobID, b.String())
}

func (d *Dispatcher) statsMessage(ctx context.Context) string {
	counts, err := d.engine.Summary(ctx)
	if err != nil {
		log.Printf("[GATEWAY] stats failed: %v", err)
		return fmt.Sprintf("Could not load stats: %v", err)
	}
	var b strings.Builder
	b.WriteString("Job stats:\n")
	total := 0
	for _, status := range []types.Status{
		types.StatusPending, types.StatusMatched, types.StatusNotified,
		types.StatusSubmitted, types.StatusFormFilled, types.StatusReviewNeeded,
		types.StatusSkipped, types.StatusError,
	} {
		if n := counts[status]; n > 0 {
			fmt.Fprintf(&b, "  %s: %d\n", status, n)
			total += n
		}
	}
	fmt.Fprintf(&b, "  total: %d", total)
	return b.String()
}

func (d *Dispatcher) listMessage(ctx context.Context, status types.Status, title string) string {
	jobs, err := d.engine.List(ctx, status)
	if err != nil {
		log.Printf("[GATEWAY] list failed: %v", err)
		return fmt.Sprintf("Could not list jobs: %v", err)
	}
	if len(jobs) == 0 {
		return title + ": none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d):\n", title, len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(&b, "  [%s] %s at %s (%.2f)\n", job.ID, job.Title, job.Company, job.MatchScore)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (d *Dispatcher) historyMessage(ctx context.Context) string {
	history, err := d.engine.History(ctx, 10)
	if err != nil {
		log.Printf("[GATEWAY] history failed: %v", err)
		return fmt.Sprintf("Could not load run history: %v", err)
	}
	if len(history) == 0 {
		return "Run history: none"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Last %d runs:\n", len(history))
	for _, r := range history {
		fmt.Fprintf(&b, "  %s  scraped=%d matched=%d applied=%d errors=%d\n",
			r.RunAt.Format("2006-01-02 15:04"), r.Scraped, r.Matched, r.Applied, r.Errors)
	}
	return strings.TrimRight(b.String(), "\n")
}

// reply is best-effort: a lost reply is logged, never escalated, because
// the store already holds the authoritative outcome.
func (d *Dispatcher) reply(ctx context.Context, jobID, message string) {
	if d.responder == nil {
		return
	}
	if err := d.responder.Reply(ctx, jobID, message); err != nil {
		log.Printf("[GATEWAY] reply delivery failed for %q: %v", jobID, err)
	}
}
