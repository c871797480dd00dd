package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-agent/internal/applier"
	"github.com/jonathan/job-agent/internal/lifecycle"
	"github.com/jonathan/job-agent/internal/types"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[string]*types.Job // keyed by url
	byID map[string]string
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]*types.Job), byID: make(map[string]string)}
}

func (s *memStore) UpsertJob(_ context.Context, job *types.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.URL]; ok {
		return nil
	}
	copied := *job
	s.jobs[job.URL] = &copied
	s.byID[job.ID] = job.URL
	return nil
}

func (s *memStore) Exists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[url]
	return ok, nil
}

func (s *memStore) SetStatus(_ context.Context, id string, status types.Status, appliedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if url, ok := s.byID[id]; ok {
		s.jobs[url].Status = status
		if appliedAt != nil {
			s.jobs[url].AppliedAt = appliedAt
		}
	}
	return nil
}

func (s *memStore) UpdateTailoring(_ context.Context, id, coverLetter, resumeSummary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if url, ok := s.byID[id]; ok {
		s.jobs[url].CoverLetter = coverLetter
		s.jobs[url].ResumeSummary = resumeSummary
	}
	return nil
}

func (s *memStore) GetJob(_ context.Context, id string) (*types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *s.jobs[url]
	return &copied, nil
}

func (s *memStore) ListJobs(_ context.Context, status types.Status) ([]types.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.Job
	for _, j := range s.jobs {
		if status == "" || j.Status == status {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (s *memStore) RunHistory(context.Context, int) ([]types.RunStats, error) {
	return nil, nil
}

func (s *memStore) CountByStatus(_ context.Context) (map[types.Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[types.Status]int)
	for _, j := range s.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func (s *memStore) statusOf(url string) types.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[url]; ok {
		return j.Status
	}
	return ""
}

type stubFiller struct {
	mu      sync.Mutex
	outcome applier.Outcome
	applied []string
}

func (f *stubFiller) Apply(_ context.Context, job *types.Job, _ *types.CandidateProfile) (*applier.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, job.ID)
	return &applier.Attempt{JobID: job.ID, Outcome: f.outcome}, nil
}

type memRecorder struct {
	runs []types.RunStats
	err  error
}

func (r *memRecorder) RecordRun(_ context.Context, stats types.RunStats) error {
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, stats)
	return nil
}

type staticSource struct{ jobs []types.Job }

func (s staticSource) Fetch(context.Context) ([]types.Job, error) { return s.jobs, nil }

type stubTailor struct {
	letter string
	err    error
}

func (t stubTailor) Tailor(_ context.Context, job *types.Job) error {
	if t.err != nil {
		return t.err
	}
	job.CoverLetter = t.letter
	return nil
}

func feed(scores ...float64) []types.Job {
	jobs := make([]types.Job, 0, len(scores))
	for i, score := range scores {
		jobs = append(jobs, types.Job{
			Title:      "Job",
			URL:        "https://jobs.example/" + string(rune('a'+i)),
			MatchScore: score,
		})
	}
	return jobs
}

func newPassEnv(outcome applier.Outcome) (*memStore, *stubFiller, *memRecorder, Options) {
	store := newMemStore()
	filler := &stubFiller{outcome: outcome}
	recorder := &memRecorder{}
	engine := lifecycle.NewEngine(store, filler, nil, nil)
	return store, filler, recorder, Options{
		Engine:    engine,
		Recorder:  recorder,
		Threshold: 0.7,
	}
}

func TestPassAutoApply(t *testing.T) {
	store, filler, recorder, opts := newPassEnv(applier.OutcomeSubmitted)
	opts.Source = staticSource{jobs: feed(0.9, 0.5, 0.8)}
	opts.AutoApply = true

	stats, err := Pass(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Scraped)
	assert.Equal(t, 2, stats.Matched, "the 0.5 job falls below threshold")
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 2, stats.Applied)
	assert.Equal(t, 0, stats.Errors)
	assert.Len(t, filler.applied, 2)

	assert.Equal(t, types.StatusSubmitted, store.statusOf("https://jobs.example/a"))
	assert.Equal(t, types.Status(""), store.statusOf("https://jobs.example/b"), "below-threshold job is never registered")

	require.Len(t, recorder.runs, 1)
	assert.Equal(t, 2, recorder.runs[0].Applied)
}

func TestPassNotifyMode(t *testing.T) {
	store, filler, _, opts := newPassEnv(applier.OutcomeSubmitted)
	opts.Source = staticSource{jobs: feed(0.9)}
	opts.AutoApply = false

	stats, err := Pass(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 0, stats.Applied)
	assert.Empty(t, filler.applied, "approval mode must not apply")
	assert.Equal(t, types.StatusNotified, store.statusOf("https://jobs.example/a"))
}

func TestPassScoreOnly(t *testing.T) {
	store, filler, _, opts := newPassEnv(applier.OutcomeSubmitted)
	opts.Source = staticSource{jobs: feed(0.9)}
	opts.AutoApply = true
	opts.ScoreOnly = true

	stats, err := Pass(context.Background(), opts)
	require.NoError(t, err)

	// Score-only registers and scores but suppresses every action.
	assert.Equal(t, 1, stats.Matched)
	assert.Equal(t, 0, stats.Applied)
	assert.Empty(t, filler.applied)
	assert.Equal(t, types.StatusMatched, store.statusOf("https://jobs.example/a"))
}

func TestPassMaxJobsCapKeepsBestScores(t *testing.T) {
	_, filler, _, opts := newPassEnv(applier.OutcomeSubmitted)
	opts.Source = staticSource{jobs: feed(0.71, 0.99, 0.85)}
	opts.AutoApply = true
	opts.MaxJobs = 2

	stats, err := Pass(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 1, stats.Skipped, "the capped-out job counts as skipped")
	require.Len(t, filler.applied, 2)
	// Highest score first; the 0.71 job is dropped by the cap.
	assert.Equal(t, types.MakeJobID("https://jobs.example/b"), filler.applied[0])
	assert.Equal(t, types.MakeJobID("https://jobs.example/c"), filler.applied[1])
}

func TestPassSkipsSeenJobs(t *testing.T) {
	store, filler, _, opts := newPassEnv(applier.OutcomeSubmitted)
	opts.Source = staticSource{jobs: feed(0.9, 0.8)}
	opts.AutoApply = true

	_, err := Pass(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, filler.applied, 2)

	// The same feed again: everything is already registered.
	stats, err := Pass(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scraped)
	assert.Equal(t, 0, stats.Matched)
	assert.Len(t, filler.applied, 2, "no repeat applications")
	assert.Len(t, store.jobs, 2)
}

func TestPassTailoring(t *testing.T) {
	t.Run("tailored content is persisted before apply", func(t *testing.T) {
		store, _, _, opts := newPassEnv(applier.OutcomeSubmitted)
		opts.Source = staticSource{jobs: feed(0.9)}
		opts.AutoApply = true
		opts.Tailor = stubTailor{letter: "Dear Acme,"}

		_, err := Pass(context.Background(), opts)
		require.NoError(t, err)

		store.mu.Lock()
		defer store.mu.Unlock()
		assert.Equal(t, "Dear Acme,", store.jobs["https://jobs.example/a"].CoverLetter)
	})

	t.Run("tailoring failure counts as error and skips apply", func(t *testing.T) {
		_, filler, _, opts := newPassEnv(applier.OutcomeSubmitted)
		opts.Source = staticSource{jobs: feed(0.9)}
		opts.AutoApply = true
		opts.Tailor = stubTailor{err: errors.New("model unavailable")}

		stats, err := Pass(context.Background(), opts)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Errors)
		assert.Empty(t, filler.applied)
	})
}

func TestPassApplyErrorCounted(t *testing.T) {
	_, _, _, opts := newPassEnv(applier.OutcomeError)
	opts.Source = staticSource{jobs: feed(0.9)}
	opts.AutoApply = true

	stats, err := Pass(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Applied)
	assert.Equal(t, 1, stats.Errors)
}

func TestPassRecorderFailurePropagates(t *testing.T) {
	_, _, recorder, opts := newPassEnv(applier.OutcomeSubmitted)
	opts.Source = staticSource{jobs: feed(0.9)}
	recorder.err = errors.New("store down")

	_, err := Pass(context.Background(), opts)
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	t.Run("reads a scored feed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobs.json")
		require.NoError(t, os.WriteFile(path, []byte(`[
			{"title": "Staff Engineer", "company": "Acme",
			 "url": "https://jobs.example/1", "match_score": 0.92},
			{"title": "SRE", "company": "Initech",
			 "url": "https://jobs.example/2", "match_score": 0.64}
		]`), 0o644))

		jobs, err := FileSource{Path: path}.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, jobs, 2)
		assert.Equal(t, "Staff Engineer", jobs[0].Title)
		assert.InDelta(t, 0.92, jobs[0].MatchScore, 1e-9)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := FileSource{Path: "/nonexistent/jobs.json"}.Fetch(context.Background())
		assert.Error(t, err)
	})

	t.Run("malformed feed", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"not": "an array"}`), 0o644))

		_, err := FileSource{Path: path}.Fetch(context.Background())
		assert.Error(t, err)
	})
}
