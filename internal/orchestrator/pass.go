package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/jonathan/job-agent/internal/applier"
	"github.com/jonathan/job-agent/internal/lifecycle"
	"github.com/jonathan/job-agent/internal/types"
)

// Recorder persists the counters of one pass.
type Recorder interface {
	RecordRun(ctx context.Context, stats types.RunStats) error
}

// Options configures one orchestration pass.
type Options struct {
	Source   Source
	Engine   *lifecycle.Engine
	Recorder Recorder
	// Tailor enriches matched jobs before application; optional.
	Tailor Tailor
	// Notifier receives the end-of-pass summary; optional.
	Notifier lifecycle.Notifier
	// Threshold is the minimum match score a job needs to proceed.
	Threshold float64
	// MaxJobs caps how many matched jobs one pass processes; 0 is
	// unlimited.
	MaxJobs int
	// AutoApply applies to matched jobs directly instead of requesting
	// approval.
	AutoApply bool
	// ScoreOnly stops the pass after registering and scoring: no
	// applications, no notifications.
	ScoreOnly bool
	Verbose   bool
}

// Pass runs one fetch-score-act cycle and returns its counters. Jobs are
// processed sequentially: third-party ATS pages do not tolerate parallel
// sessions from one identity, and sequential keeps the run log readable.
func Pass(ctx context.Context, opts Options) (types.RunStats, error) {
	stats := types.RunStats{RunAt: time.Now()}

	fetched, err := opts.Source.Fetch(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch failed: %w", err)
	}
	stats.Scraped = len(fetched)
	log.Printf("[ORCHESTRATOR] fetched %d jobs", len(fetched))

	matched, skipped, err := selectMatches(ctx, opts, fetched)
	if err != nil {
		return stats, err
	}
	stats.Matched = len(matched)
	stats.Skipped = skipped
	log.Printf("[ORCHESTRATOR] %d new jobs above threshold %.2f", len(matched), opts.Threshold)

	for i := range matched {
		job := &matched[i]
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := opts.Engine.Register(ctx, job); err != nil {
			log.Printf("[ORCHESTRATOR] register %s failed: %v", job.URL, err)
			stats.Errors++
			continue
		}
		if err := opts.Engine.MarkMatched(ctx, job.ID); err != nil {
			log.Printf("[ORCHESTRATOR] mark matched %s failed: %v", job.ID, err)
			stats.Errors++
			continue
		}
		if opts.ScoreOnly {
			continue
		}

		if opts.Tailor != nil {
			if err := opts.Tailor.Tailor(ctx, job); err != nil {
				log.Printf("[ORCHESTRATOR] tailoring %s failed: %v", job.ID, err)
				stats.Errors++
				continue
			}
			// The apply path reloads the job from the store, so
			// tailored content must land there first.
			if err := opts.Engine.SaveTailoring(ctx, job); err != nil {
				log.Printf("[ORCHESTRATOR] persist tailoring %s failed: %v", job.ID, err)
				stats.Errors++
				continue
			}
		}

		if opts.AutoApply {
			applyJob(ctx, opts, job, &stats)
		} else {
			if err := opts.Engine.Notify(ctx, job.ID); err != nil {
				log.Printf("[ORCHESTRATOR] notify %s failed: %v", job.ID, err)
				stats.Errors++
			}
		}
	}

	if opts.Recorder != nil {
		if err := opts.Recorder.RecordRun(ctx, stats); err != nil {
			return stats, fmt.Errorf("failed to record run: %w", err)
		}
	}
	if opts.Notifier != nil {
		if err := opts.Notifier.SendSummary(ctx, stats); err != nil {
			log.Printf("[ORCHESTRATOR] summary delivery failed: %v", err)
		}
	}
	return stats, nil
}

// selectMatches filters fetched jobs down to unseen postings above the
// score threshold, best-scored first, capped at MaxJobs. The skipped count
// covers unseen jobs that fell below the threshold.
func selectMatches(ctx context.Context, opts Options, fetched []types.Job) ([]types.Job, int, error) {
	var matched []types.Job
	skipped := 0
	for _, job := range fetched {
		if job.URL == "" {
			continue
		}
		seen, err := opts.Engine.Seen(ctx, job.URL)
		if err != nil {
			return nil, 0, fmt.Errorf("dedup check failed: %w", err)
		}
		if seen {
			if opts.Verbose {
				log.Printf("[ORCHESTRATOR] already seen: %s", job.URL)
			}
			continue
		}
		if job.MatchScore < opts.Threshold {
			skipped++
			continue
		}
		matched = append(matched, job)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].MatchScore > matched[j].MatchScore
	})
	if opts.MaxJobs > 0 && len(matched) > opts.MaxJobs {
		skipped += len(matched) - opts.MaxJobs
		matched = matched[:opts.MaxJobs]
	}
	return matched, skipped, nil
}

func applyJob(ctx context.Context, opts Options, job *types.Job, stats *types.RunStats) {
	attempt, err := opts.Engine.Apply(ctx, job.ID)
	if attempt == nil {
		log.Printf("[ORCHESTRATOR] apply %s failed: %v", job.ID, err)
		stats.Errors++
		return
	}
	switch attempt.Outcome {
	case applier.OutcomeSubmitted, applier.OutcomeFormFilled:
		stats.Applied++
	case applier.OutcomeError:
		stats.Errors++
	}
	if err != nil {
		log.Printf("[ORCHESTRATOR] apply %s: %v", job.ID, err)
	}
}
