// Package orchestrator runs end-to-end passes: fetch postings, score and
// filter them, then apply or notify per configuration.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jonathan/job-agent/internal/types"
)

// Source produces candidate jobs for one pass.
type Source interface {
	Fetch(ctx context.Context) ([]types.Job, error)
}

// Tailor enriches a matched job before application: cover letter, resume
// summary, whatever the implementation provides.
type Tailor interface {
	Tailor(ctx context.Context, job *types.Job) error
}

// FileSource reads a JSON array of pre-scored jobs from disk. It is the
// ingestion path for externally scraped feeds.
type FileSource struct {
	Path string
}

func (f FileSource) Fetch(_ context.Context) ([]types.Job, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read jobs file: %w", err)
	}
	var jobs []types.Job
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file %s: %w", f.Path, err)
	}
	return jobs, nil
}
