package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/job-agent/internal/types"
)

// Store wraps a PostgreSQL connection pool holding jobs and run history.
type Store struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, unavailable("connect", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, unavailable("ping", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Init creates the jobs and runs tables if they do not exist.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS jobs (
			id              TEXT PRIMARY KEY,
			title           TEXT,
			company         TEXT,
			location        TEXT,
			url             TEXT UNIQUE NOT NULL,
			source          TEXT,
			description     TEXT,
			salary          DOUBLE PRECISION,
			match_score     DOUBLE PRECISION,
			cover_letter    TEXT,
			resume_summary  TEXT,
			required_skills JSONB,
			status          TEXT NOT NULL DEFAULT 'pending',
			applied_at      TIMESTAMPTZ,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			notes           TEXT
		);

		CREATE TABLE IF NOT EXISTS runs (
			id      BIGSERIAL PRIMARY KEY,
			run_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			scraped INTEGER NOT NULL DEFAULT 0,
			matched INTEGER NOT NULL DEFAULT 0,
			applied INTEGER NOT NULL DEFAULT 0,
			errors  INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		return unavailable("init schema", err)
	}
	return nil
}

// UpsertJob inserts a job record. Inserting a duplicate URL is a no-op:
// the first write wins, which is the idempotent-ingestion contract.
func (s *Store) UpsertJob(ctx context.Context, job *types.Job) error {
	skillsJSON, err := json.Marshal(job.RequiredSkills)
	if err != nil {
		return fmt.Errorf("failed to marshal required skills: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, title, company, location, url, source, description,
		                   salary, match_score, cover_letter, resume_summary,
		                   required_skills, status, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (url) DO NOTHING`,
		job.ID, job.Title, job.Company, job.Location, job.URL, job.Source,
		job.Description, job.Salary, job.MatchScore, job.CoverLetter,
		job.ResumeSummary, skillsJSON, string(types.StatusPending), job.Notes,
	)
	if err != nil {
		return unavailable("upsert job", err)
	}
	return nil
}

// Exists reports whether a job with the given URL has already been stored.
func (s *Store) Exists(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM jobs WHERE url = $1`, url,
	).Scan(&one)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, unavailable("exists", err)
	}
	return true, nil
}

// SetStatus updates a job's lifecycle status. appliedAt is recorded when the
// job enters a terminal or review state and left untouched otherwise.
func (s *Store) SetStatus(ctx context.Context, id string, status types.Status, appliedAt *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $1, applied_at = COALESCE($2, applied_at) WHERE id = $3`,
		string(status), appliedAt, id,
	)
	if err != nil {
		return unavailable("set status", err)
	}
	return nil
}

// UpdateTailoring stores the generated cover letter and resume summary
// for a job.
func (s *Store) UpdateTailoring(ctx context.Context, id, coverLetter, resumeSummary string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET cover_letter = $1, resume_summary = $2 WHERE id = $3`,
		coverLetter, resumeSummary, id,
	)
	if err != nil {
		return unavailable("update tailoring", err)
	}
	return nil
}

// GetJob retrieves a job by ID. Returns nil without error when absent.
func (s *Store) GetJob(ctx context.Context, id string) (*types.Job, error) {
	row := s.pool.QueryRow(ctx, jobSelect+` WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, unavailable("get job", err)
	}
	return job, nil
}

// ListJobs returns jobs filtered by status, ordered by descending match
// score. With an empty status it returns every job, newest first.
func (s *Store) ListJobs(ctx context.Context, status types.Status) ([]types.Job, error) {
	var rows pgx.Rows
	var err error
	if status != "" {
		rows, err = s.pool.Query(ctx,
			jobSelect+` WHERE status = $1 ORDER BY match_score DESC`, string(status))
	} else {
		rows, err = s.pool.Query(ctx, jobSelect+` ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, unavailable("list jobs", err)
	}
	defer rows.Close()

	var jobs []types.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

// CountByStatus returns the number of stored jobs per lifecycle status.
func (s *Store) CountByStatus(ctx context.Context) (map[types.Status]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, unavailable("count by status", err)
	}
	defer rows.Close()

	counts := make(map[types.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[types.Status(status)] = n
	}
	return counts, rows.Err()
}

// RecordRun appends the counters for one orchestration pass.
func (s *Store) RecordRun(ctx context.Context, stats types.RunStats) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (scraped, matched, applied, errors)
		 VALUES ($1, $2, $3, $4)`,
		stats.Scraped, stats.Matched, stats.Applied, stats.Errors,
	)
	if err != nil {
		return unavailable("record run", err)
	}
	return nil
}

// RunHistory retrieves the most recent pass records, newest first.
func (s *Store) RunHistory(ctx context.Context, limit int) ([]types.RunStats, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT run_at, scraped, matched, applied, errors
		 FROM runs ORDER BY run_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, unavailable("run history", err)
	}
	defer rows.Close()

	var history []types.RunStats
	for rows.Next() {
		var r types.RunStats
		if err := rows.Scan(&r.RunAt, &r.Scraped, &r.Matched, &r.Applied, &r.Errors); err != nil {
			return nil, fmt.Errorf("failed to scan run record: %w", err)
		}
		history = append(history, r)
	}
	return history, rows.Err()
}

const jobSelect = `SELECT id, title, company, location, url, source,
       COALESCE(description, ''), COALESCE(salary, 0), COALESCE(match_score, 0),
       COALESCE(cover_letter, ''), COALESCE(resume_summary, ''), required_skills,
       status, applied_at, created_at, COALESCE(notes, '')
  FROM jobs`

func scanJob(row pgx.Row) (*types.Job, error) {
	var j types.Job
	var skillsJSON []byte
	var status string
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Location, &j.URL, &j.Source,
		&j.Description, &j.Salary, &j.MatchScore, &j.CoverLetter, &j.ResumeSummary,
		&skillsJSON, &status, &j.AppliedAt, &j.CreatedAt, &j.Notes)
	if err != nil {
		return nil, err
	}
	j.Status = types.Status(status)
	if skillsJSON != nil {
		_ = json.Unmarshal(skillsJSON, &j.RequiredSkills)
	}
	return &j, nil
}
