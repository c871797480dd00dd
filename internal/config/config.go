// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the agent configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	ProfilePath  string `json:"profile_path,omitempty"`  // Path to candidate profile JSON
	JobsFile     string `json:"jobs_file,omitempty"`     // Path to pre-scored jobs JSON feed
	ArtifactsDir string `json:"artifacts_dir,omitempty"` // Directory for screenshots and page dumps

	// Behavior
	AutoSubmit     bool    `json:"auto_submit,omitempty"`     // Click submit controls after filling forms
	MatchThreshold float64 `json:"match_threshold,omitempty"` // Minimum match score to act on a job (0.0-1.0)
	MaxJobsPerRun  int     `json:"max_jobs_per_run,omitempty"`
	Verbose        bool    `json:"verbose,omitempty"` // Print detailed debug information

	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("config error: 'match_threshold' must be between 0.0 and 1.0")
	}
	if c.MaxJobsPerRun < 0 {
		return fmt.Errorf("config error: 'max_jobs_per_run' must be non-negative")
	}

	// Validate file paths exist (if specified)
	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); os.IsNotExist(err) {
			return fmt.Errorf("config error: profile file not found: %s", c.ProfilePath)
		}
	}
	if c.JobsFile != "" {
		if _, err := os.Stat(c.JobsFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: jobs file not found: %s", c.JobsFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ProfilePath == "" {
		result.ProfilePath = defaults.ProfilePath
	}
	if result.JobsFile == "" {
		result.JobsFile = defaults.JobsFile
	}
	if result.ArtifactsDir == "" {
		result.ArtifactsDir = defaults.ArtifactsDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.MatchThreshold == 0 {
		result.MatchThreshold = defaults.MatchThreshold
	}
	if result.MaxJobsPerRun == 0 {
		result.MaxJobsPerRun = defaults.MaxJobsPerRun
	}
	if !result.AutoSubmit {
		result.AutoSubmit = defaults.AutoSubmit
	}
	if !result.Verbose {
		result.Verbose = defaults.Verbose
	}

	return result
}
