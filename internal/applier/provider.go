package applier

import (
	"strings"

	"github.com/jonathan/job-agent/internal/types"
)

// FieldSpec maps one semantic candidate field onto a provider's form selector.
type FieldSpec struct {
	Field    string // semantic name: "email", "first_name", ...
	Selector string
	Value    string
}

// FieldOutcome classifies the result of attempting one field.
type FieldOutcome string

const (
	// FieldFilled means the value was written into the form
	FieldFilled FieldOutcome = "filled"
	// FieldNotFound means no element matched the selector
	FieldNotFound FieldOutcome = "not_found"
	// FieldBlocked means the element existed but could not be written
	FieldBlocked FieldOutcome = "blocked"
)

// FieldResult records the typed per-field outcome aggregated into an Attempt,
// so skipped selectors stay observable in artifacts and logs.
type FieldResult struct {
	Field    string       `json:"field"`
	Selector string       `json:"selector"`
	Outcome  FieldOutcome `json:"outcome"`
	Detail   string       `json:"detail,omitempty"`
}

// Provider is one ATS family variant. Variants are selected by URL-pattern
// dispatch in a fixed priority order; exactly one variant runs per job.
type Provider interface {
	// Name identifies the variant in attempt records and logs.
	Name() string
	// Identify reports whether this variant handles the given posting URL.
	Identify(url string) bool
	// Fields maps the candidate profile onto this provider's known
	// form-field selectors. Empty values are omitted.
	Fields(profile *types.CandidateProfile) []FieldSpec
}

// preStepper is implemented by providers that must click through an
// overview page before the form is reachable (e.g. Workable).
type preStepper interface {
	PreSteps() []string
}

// Providers returns the variant list in dispatch priority order:
// named-provider adapters first, the generic fallback last.
func Providers() []Provider {
	return []Provider{
		leverProvider{},
		greenhouseProvider{},
		workableProvider{},
		genericProvider{},
	}
}

// Dispatch selects the variant for a posting URL. The first matching
// variant wins; the generic fallback identifies every URL, so Dispatch
// never returns nil.
func Dispatch(url string) Provider {
	for _, p := range Providers() {
		if p.Identify(url) {
			return p
		}
	}
	return genericProvider{}
}

func urlContains(url string, patterns ...string) bool {
	lower := strings.ToLower(url)
	for _, pat := range patterns {
		if strings.Contains(lower, pat) {
			return true
		}
	}
	return false
}
