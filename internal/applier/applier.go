package applier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/job-agent/internal/types"
)

// Options controls one application attempt.
type Options struct {
	// AutoSubmit allows the attempt to click the detected submit control.
	// When false every attempt stops at review_needed.
	AutoSubmit bool
	// ArtifactsDir receives screenshots and page dumps.
	ArtifactsDir string
	// NavigationTimeout bounds page loads and screenshots.
	NavigationTimeout time.Duration
	// FieldTimeout bounds individual field operations.
	FieldTimeout time.Duration
	// SettleWait is the pause after clicking submit before the
	// confirmation screenshot.
	SettleWait time.Duration
	Verbose    bool
}

const (
	defaultNavigationTimeout = 30 * time.Second
	defaultFieldTimeout      = 2 * time.Second
	defaultSettleWait        = 3 * time.Second
	defaultArtifactsDir      = "artifacts"
)

func (o Options) withDefaults() Options {
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = defaultNavigationTimeout
	}
	if o.FieldTimeout <= 0 {
		o.FieldTimeout = defaultFieldTimeout
	}
	if o.SettleWait <= 0 {
		o.SettleWait = defaultSettleWait
	}
	if o.ArtifactsDir == "" {
		o.ArtifactsDir = defaultArtifactsDir
	}
	return o
}

// Outcome classifies how an application attempt ended.
type Outcome string

const (
	// OutcomeSubmitted means the form was filled and the submit control
	// was clicked.
	OutcomeSubmitted Outcome = "submitted"
	// OutcomeFormFilled means fields were filled but submission did not
	// complete: no control was found, or the click failed.
	OutcomeFormFilled Outcome = "form_filled"
	// OutcomeReviewNeeded means auto-submission is disabled and the
	// filled form awaits a human.
	OutcomeReviewNeeded Outcome = "review_needed"
	// OutcomeError means automation failed before the form could be
	// filled at all.
	OutcomeError Outcome = "error"
)

// Status maps an attempt outcome onto the job lifecycle status it implies.
func (o Outcome) Status() types.Status {
	switch o {
	case OutcomeSubmitted:
		return types.StatusSubmitted
	case OutcomeFormFilled:
		return types.StatusFormFilled
	case OutcomeReviewNeeded:
		return types.StatusReviewNeeded
	default:
		return types.StatusError
	}
}

// Attempt is the full record of one application attempt: what was filled,
// what was clicked, how it ended, and where the artifacts landed.
type Attempt struct {
	ID               uuid.UUID        `json:"id"`
	JobID            string           `json:"job_id"`
	Provider         string           `json:"provider"`
	Fields           []FieldResult    `json:"fields"`
	Submit           *SubmitCandidate `json:"submit,omitempty"`
	Outcome          Outcome          `json:"outcome"`
	Reason           string           `json:"reason,omitempty"`
	ScreenshotPath   string           `json:"screenshot_path,omitempty"`
	ConfirmationPath string           `json:"confirmation_path,omitempty"`
	MarkupPath       string           `json:"markup_path,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
}

// FilledCount returns how many fields were actually written.
func (a *Attempt) FilledCount() int {
	n := 0
	for _, f := range a.Fields {
		if f.Outcome == FieldFilled {
			n++
		}
	}
	return n
}

// Applier drives a browser session through a provider's form strategy.
type Applier struct {
	opts       Options
	newSession SessionFactory
}

// New creates an Applier backed by headless Chrome.
func New(opts Options) *Applier {
	return &Applier{opts: opts.withDefaults(), newSession: NewBrowserSession}
}

// NewWithSessionFactory creates an Applier with a custom session factory.
func NewWithSessionFactory(opts Options, factory SessionFactory) *Applier {
	return &Applier{opts: opts.withDefaults(), newSession: factory}
}

// Apply runs one application attempt against the job's posting URL. It
// always returns a non-nil Attempt describing what happened; err is non-nil
// only for fatal automation faults, which also set OutcomeError.
func (a *Applier) Apply(ctx context.Context, job *types.Job, profile *types.CandidateProfile) (*Attempt, error) {
	attempt := &Attempt{
		ID:        uuid.New(),
		JobID:     job.ID,
		StartedAt: time.Now(),
	}
	defer func() { attempt.FinishedAt = time.Now() }()

	provider := Dispatch(job.URL)
	attempt.Provider = provider.Name()
	log.Printf("[APPLIER] %s: using %s strategy for %s", job.ID, provider.Name(), job.URL)

	session, err := a.newSession(ctx, a.opts)
	if err != nil {
		attempt.Outcome = OutcomeError
		attempt.Reason = "browser session failed to start"
		return attempt, &AutomationError{URL: job.URL, Message: "session start failed", Cause: err}
	}
	defer session.Close()

	if err := session.Navigate(ctx, job.URL); err != nil {
		attempt.Outcome = OutcomeError
		attempt.Reason = "page unreachable"
		return attempt, err
	}

	// Pre-steps are best-effort: an overview page that is already past
	// its apply button must not abort the attempt.
	if ps, ok := provider.(preStepper); ok {
		for _, selector := range ps.PreSteps() {
			if err := session.Click(ctx, selector); err != nil {
				a.logVerbose("%s: pre-step %s skipped: %v", job.ID, selector, err)
			}
		}
	}

	attempt.Fields = a.fillFields(ctx, session, provider.Fields(profile), job.ID)

	// Cover letter and resume are best-effort extras beyond the provider
	// field map.
	if job.CoverLetter != "" {
		a.fillExtra(ctx, session, attempt, FieldSpec{
			Field: "cover_letter", Selector: "textarea", Value: job.CoverLetter,
		}, job.ID)
	}
	if profile.ResumePath != "" {
		if err := session.Upload(ctx, `input[type="file"]`, profile.ResumePath); err != nil {
			a.logVerbose("%s: resume upload skipped: %v", job.ID, err)
		} else {
			attempt.Fields = append(attempt.Fields, FieldResult{
				Field: "resume", Selector: `input[type="file"]`, Outcome: FieldFilled,
			})
		}
	}

	// The filled form is always photographed before any submission choice,
	// so a human can audit exactly what automation produced.
	a.screenshot(ctx, session, attempt, job.ID+".png", &attempt.ScreenshotPath)

	if !a.opts.AutoSubmit {
		attempt.Outcome = OutcomeReviewNeeded
		attempt.Reason = "auto-submission disabled"
		log.Printf("[APPLIER] %s: form filled (%d fields), awaiting review", job.ID, attempt.FilledCount())
		return attempt, nil
	}

	return a.submit(ctx, session, attempt, job)
}

func (a *Applier) fillFields(ctx context.Context, session Session, specs []FieldSpec, jobID string) []FieldResult {
	results := make([]FieldResult, 0, len(specs))
	for _, spec := range specs {
		result := FieldResult{Field: spec.Field, Selector: spec.Selector}
		switch err := session.Fill(ctx, spec.Selector, spec.Value); {
		case err == nil:
			result.Outcome = FieldFilled
			a.logVerbose("%s: filled %s", jobID, spec.Field)
		case errors.Is(err, ErrFieldNotFound):
			result.Outcome = FieldNotFound
			a.logVerbose("%s: field %s not present", jobID, spec.Field)
		default:
			result.Outcome = FieldBlocked
			result.Detail = err.Error()
			log.Printf("[APPLIER] %s: field %s blocked: %v", jobID, spec.Field, err)
		}
		results = append(results, result)
	}
	return results
}

func (a *Applier) fillExtra(ctx context.Context, session Session, attempt *Attempt, spec FieldSpec, jobID string) {
	results := a.fillFields(ctx, session, []FieldSpec{spec}, jobID)
	// Absent optional extras stay out of the record entirely.
	if results[0].Outcome != FieldNotFound {
		attempt.Fields = append(attempt.Fields, results[0])
	}
}

// submit runs the detection cascade over the live page markup and clicks
// candidates in cascade order until one succeeds. A failed click degrades
// that one candidate and falls through to the next, down to the keyword
// scan; only a page with no candidates left yields form_filled, with the
// markup preserved for diagnosis. Neither case is an automation error.
func (a *Applier) submit(ctx context.Context, session Session, attempt *Attempt, job *types.Job) (*Attempt, error) {
	pageHTML, err := session.HTML(ctx)
	if err != nil {
		attempt.Outcome = OutcomeFormFilled
		attempt.Reason = fmt.Sprintf("could not capture page markup: %v", err)
		return attempt, nil
	}

	candidates, err := FindSubmitCandidates(pageHTML)
	if err != nil || len(candidates) == 0 {
		attempt.Outcome = OutcomeFormFilled
		attempt.Reason = "no submit control detected"
		a.saveMarkup(attempt, job.ID, pageHTML)
		log.Printf("[APPLIER] %s: no submit control found, leaving form filled", job.ID)
		return attempt, nil
	}

	for i := range candidates {
		candidate := candidates[i]
		if err := session.Click(ctx, candidate.Selector); err != nil {
			log.Printf("[APPLIER] %s: submit candidate %q (%s) failed: %v", job.ID, candidate.Text, candidate.Tier, err)
			continue
		}
		attempt.Submit = &candidate
		log.Printf("[APPLIER] %s: submit control %q via %s", job.ID, candidate.Text, candidate.Tier)

		// Let any post-submit navigation or confirmation banner settle.
		select {
		case <-ctx.Done():
		case <-time.After(a.opts.SettleWait):
		}

		a.screenshot(ctx, session, attempt, job.ID+"_submitted.png", &attempt.ConfirmationPath)

		attempt.Outcome = OutcomeSubmitted
		log.Printf("[APPLIER] %s: application submitted (%d fields)", job.ID, attempt.FilledCount())
		return attempt, nil
	}

	attempt.Outcome = OutcomeFormFilled
	attempt.Reason = fmt.Sprintf("all %d submit candidates failed", len(candidates))
	a.saveMarkup(attempt, job.ID, pageHTML)
	log.Printf("[APPLIER] %s: every submit candidate failed, leaving form filled", job.ID)
	return attempt, nil
}

func (a *Applier) screenshot(ctx context.Context, session Session, attempt *Attempt, name string, dest *string) {
	buf, err := session.Screenshot(ctx)
	if err != nil {
		a.logVerbose("%s: screenshot failed: %v", attempt.JobID, err)
		return
	}
	path, err := writeArtifact(a.opts.ArtifactsDir, name, buf)
	if err != nil {
		log.Printf("[APPLIER] %s: %v", attempt.JobID, err)
		return
	}
	*dest = path
}

func (a *Applier) saveMarkup(attempt *Attempt, jobID, pageHTML string) {
	path, err := writeArtifact(a.opts.ArtifactsDir, jobID+"_page.html", []byte(pageHTML))
	if err != nil {
		log.Printf("[APPLIER] %s: %v", jobID, err)
		return
	}
	attempt.MarkupPath = path
}

func (a *Applier) logVerbose(format string, args ...any) {
	if a.opts.Verbose {
		log.Printf("[APPLIER] "+format, args...)
	}
}
