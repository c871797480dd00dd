package lifecycle

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jonathan/job-agent/internal/applier"
	"github.com/jonathan/job-agent/internal/types"
)

// Store is the persistence surface the engine drives. *store.Store
// satisfies it; tests use an in-memory fake.
type Store interface {
	UpsertJob(ctx context.Context, job *types.Job) error
	Exists(ctx context.Context, url string) (bool, error)
	SetStatus(ctx context.Context, id string, status types.Status, appliedAt *time.Time) error
	UpdateTailoring(ctx context.Context, id, coverLetter, resumeSummary string) error
	GetJob(ctx context.Context, id string) (*types.Job, error)
	ListJobs(ctx context.Context, status types.Status) ([]types.Job, error)
	CountByStatus(ctx context.Context) (map[types.Status]int, error)
	RunHistory(ctx context.Context, limit int) ([]types.RunStats, error)
}

// FormFiller runs one application attempt against a posting.
type FormFiller interface {
	Apply(ctx context.Context, job *types.Job, profile *types.CandidateProfile) (*applier.Attempt, error)
}

// Notifier delivers approval requests and run summaries to the human
// operator. Delivery is best-effort; the engine never blocks on it.
type Notifier interface {
	SendApprovalRequest(ctx context.Context, job *types.Job) error
	SendSummary(ctx context.Context, stats types.RunStats) error
}

// Engine owns the lifecycle of every stored job. All status changes go
// through it so the transition rules hold regardless of caller.
type Engine struct {
	store    Store
	filler   FormFiller
	notifier Notifier
	profile  *types.CandidateProfile

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewEngine wires the engine to its collaborators. notifier may be nil
// when no approval channel is configured.
func NewEngine(store Store, filler FormFiller, notifier Notifier, profile *types.CandidateProfile) *Engine {
	return &Engine{
		store:    store,
		filler:   filler,
		notifier: notifier,
		profile:  profile,
		inflight: make(map[string]struct{}),
	}
}

// Register ingests a discovered job as pending. A job without an ID gets
// one derived from its URL; re-registering a known URL is a no-op.
func (e *Engine) Register(ctx context.Context, job *types.Job) error {
	if job.URL == "" {
		return fmt.Errorf("job %q has no URL", job.Title)
	}
	if job.ID == "" {
		job.ID = types.MakeJobID(job.URL)
	}
	job.Status = types.StatusPending
	if err := e.store.UpsertJob(ctx, job); err != nil {
		return fmt.Errorf("failed to register job %s: %w", job.ID, err)
	}
	return nil
}

// Seen reports whether a posting URL was registered in any earlier pass.
func (e *Engine) Seen(ctx context.Context, url string) (bool, error) {
	return e.store.Exists(ctx, url)
}

// SaveTailoring persists generated application content so a later apply,
// possibly in another process, picks it up from the store.
func (e *Engine) SaveTailoring(ctx context.Context, job *types.Job) error {
	if err := e.store.UpdateTailoring(ctx, job.ID, job.CoverLetter, job.ResumeSummary); err != nil {
		return fmt.Errorf("failed to save tailoring for %s: %w", job.ID, err)
	}
	return nil
}

// MarkMatched advances a pending job to matched after scoring.
func (e *Engine) MarkMatched(ctx context.Context, id string) error {
	return e.transition(ctx, id, types.StatusMatched, nil)
}

// Notify persists the notified status, then delivers the approval request.
// The status write is the source of truth: a failed delivery is logged and
// swallowed, because the operator can always recover the pending queue
// from the store.
func (e *Engine) Notify(ctx context.Context, id string) error {
	job, err := e.transitionAndGet(ctx, id, types.StatusNotified, nil)
	if err != nil {
		return err
	}
	if e.notifier == nil {
		return nil
	}
	if err := e.notifier.SendApprovalRequest(ctx, job); err != nil {
		log.Printf("[LIFECYCLE] %s: approval request delivery failed: %v", id, err)
	}
	return nil
}

// Apply runs the form automation for a job and records the outcome. At
// most one application per job runs at a time; a concurrent request gets
// ErrBusy rather than a duplicate submission.
func (e *Engine) Apply(ctx context.Context, id string) (*applier.Attempt, error) {
	if err := e.acquire(id); err != nil {
		return nil, err
	}
	defer e.release(id)

	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, ErrUnknownJob)
	}
	if !job.Status.CanTransitionTo(types.StatusSubmitted) {
		return nil, &TransitionError{From: job.Status, To: types.StatusSubmitted}
	}

	attempt, applyErr := e.filler.Apply(ctx, job, e.profile)

	status := types.StatusError
	if attempt != nil {
		status = attempt.Outcome.Status()
	}
	now := time.Now()
	if err := e.store.SetStatus(ctx, id, status, &now); err != nil {
		// Losing the outcome record is worse than losing the attempt
		// detail: surface the store failure first.
		return attempt, err
	}
	return attempt, applyErr
}

// Skip marks a job as declined by the operator. Skipping an already
// skipped job is a no-op.
func (e *Engine) Skip(ctx context.Context, id string) error {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %s: %w", id, ErrUnknownJob)
	}
	if job.Status == types.StatusSkipped {
		return nil
	}
	if !job.Status.CanTransitionTo(types.StatusSkipped) {
		return &TransitionError{From: job.Status, To: types.StatusSkipped}
	}
	now := time.Now()
	return e.store.SetStatus(ctx, id, types.StatusSkipped, &now)
}

// Review returns a job together with the actions still available on it.
func (e *Engine) Review(ctx context.Context, id string) (*types.Job, []string, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if job == nil {
		return nil, nil, fmt.Errorf("job %s: %w", id, ErrUnknownJob)
	}
	var actions []string
	if job.Status.CanTransitionTo(types.StatusSubmitted) {
		actions = append(actions, "apply")
	}
	if job.Status.CanTransitionTo(types.StatusSkipped) {
		actions = append(actions, "skip")
	}
	return job, actions, nil
}

// Get retrieves a single job; nil when unknown.
func (e *Engine) Get(ctx context.Context, id string) (*types.Job, error) {
	return e.store.GetJob(ctx, id)
}

// List returns jobs in a given status, or all jobs when status is empty.
func (e *Engine) List(ctx context.Context, status types.Status) ([]types.Job, error) {
	return e.store.ListJobs(ctx, status)
}

// Summary returns the per-status job counts.
func (e *Engine) Summary(ctx context.Context) (map[types.Status]int, error) {
	return e.store.CountByStatus(ctx)
}

// History returns the most recent pass records, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]types.RunStats, error) {
	return e.store.RunHistory(ctx, limit)
}

func (e *Engine) transition(ctx context.Context, id string, to types.Status, appliedAt *time.Time) error {
	_, err := e.transitionAndGet(ctx, id, to, appliedAt)
	return err
}

func (e *Engine) transitionAndGet(ctx context.Context, id string, to types.Status, appliedAt *time.Time) (*types.Job, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, ErrUnknownJob)
	}
	if !job.Status.CanTransitionTo(to) {
		return nil, &TransitionError{From: job.Status, To: to}
	}
	if err := e.store.SetStatus(ctx, id, to, appliedAt); err != nil {
		return nil, err
	}
	job.Status = to
	return job, nil
}

func (e *Engine) acquire(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return fmt.Errorf("job %s: %w", id, ErrBusy)
	}
	e.inflight[id] = struct{}{}
	return nil
}

func (e *Engine) release(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.inflight, id)
}
