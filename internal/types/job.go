// Package types defines the shared data model for the job application agent.
package types

import (
	"crypto/md5"
	"encoding/hex"
	"time"
)

// JobIDLength is the number of hex characters kept from the URL digest.
const JobIDLength = 10

// MakeJobID derives a stable job identifier from the canonical posting URL.
// Re-ingesting the same URL always yields the same identifier, which is the
// primary deduplication key for the whole system.
func MakeJobID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])[:JobIDLength]
}

// Job is a unique posting under automation. All descriptive fields are
// immutable once stored; Status is owned exclusively by the lifecycle engine.
type Job struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Company        string     `json:"company"`
	Location       string     `json:"location"`
	URL            string     `json:"url"`
	Source         string     `json:"source"`
	Description    string     `json:"description,omitempty"`
	Salary         float64    `json:"salary,omitempty"`
	MatchScore     float64    `json:"match_score"`
	CoverLetter    string     `json:"cover_letter,omitempty"`
	ResumeSummary  string     `json:"resume_summary,omitempty"`
	RequiredSkills []string   `json:"required_skills,omitempty"`
	Status         Status     `json:"status"`
	AppliedAt      *time.Time `json:"applied_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// RunStats holds the aggregate counters for one orchestration pass.
type RunStats struct {
	RunAt   time.Time `json:"run_at,omitempty"`
	Scraped int       `json:"scraped"`
	Matched int       `json:"matched"`
	Applied int       `json:"applied"`
	Skipped int       `json:"skipped"`
	Errors  int       `json:"errors"`
}
