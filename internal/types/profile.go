package types

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CandidateProfile holds the applicant details used to populate
// third-party application forms.
type CandidateProfile struct {
	Name           string `json:"name" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Location       string `json:"location" validate:"required"`
	CurrentCompany string `json:"current_company,omitempty"`
	LinkedIn       string `json:"linkedin,omitempty" validate:"omitempty,url"`
	GitHub         string `json:"github,omitempty" validate:"omitempty,url"`
	ResumePath     string `json:"resume_path,omitempty"`
}

// LoadProfile reads and validates a candidate profile from a JSON file.
func LoadProfile(path string) (*CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}

	var p CandidateProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile against its field constraints.
func (p *CandidateProfile) Validate() error {
	if err := validator.New().Struct(p); err != nil {
		return fmt.Errorf("invalid candidate profile: %w", err)
	}
	return nil
}

// FirstName returns the leading token of the candidate's full name.
// Providers like Greenhouse and Workable require split name fields.
func (p *CandidateProfile) FirstName() string {
	parts := strings.Fields(p.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// LastName returns the trailing token of the candidate's full name.
// For a single-word name this equals FirstName.
func (p *CandidateProfile) LastName() string {
	parts := strings.Fields(p.Name)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}
