package applier

import "github.com/jonathan/job-agent/internal/types"

// leverProvider fills Lever postings. Lever forms use flat name attributes.
type leverProvider struct{}

func (leverProvider) Name() string { return "lever" }

func (leverProvider) Identify(url string) bool {
	return urlContains(url, "lever.co", "/lever")
}

func (leverProvider) Fields(profile *types.CandidateProfile) []FieldSpec {
	return compact([]FieldSpec{
		{Field: "name", Selector: `[name="name"]`, Value: profile.Name},
		{Field: "email", Selector: `[name="email"]`, Value: profile.Email},
		{Field: "phone", Selector: `[name="phone"]`, Value: profile.Phone},
		{Field: "location", Selector: `[name="location"]`, Value: profile.Location},
		{Field: "company", Selector: `[name="org"]`, Value: profile.CurrentCompany},
		{Field: "linkedin", Selector: `[name="urls[LinkedIn]"]`, Value: profile.LinkedIn},
		{Field: "github", Selector: `[name="urls[GitHub]"]`, Value: profile.GitHub},
	})
}

// greenhouseProvider fills Greenhouse postings, which split the candidate
// name into first/last inputs addressed by element id.
type greenhouseProvider struct{}

func (greenhouseProvider) Name() string { return "greenhouse" }

func (greenhouseProvider) Identify(url string) bool {
	return urlContains(url, "greenhouse")
}

func (greenhouseProvider) Fields(profile *types.CandidateProfile) []FieldSpec {
	return compact([]FieldSpec{
		{Field: "first_name", Selector: "#first_name", Value: profile.FirstName()},
		{Field: "last_name", Selector: "#last_name", Value: profile.LastName()},
		{Field: "email", Selector: "#email", Value: profile.Email},
		{Field: "phone", Selector: "#phone", Value: profile.Phone},
	})
}

// workableProvider fills Workable postings. Workable shows an overview page
// first; the form only appears after clicking through the apply button.
type workableProvider struct{}

func (workableProvider) Name() string { return "workable" }

func (workableProvider) Identify(url string) bool {
	return urlContains(url, "workable")
}

func (workableProvider) PreSteps() []string {
	return []string{`[data-ui="overview-apply-now"]`}
}

func (workableProvider) Fields(profile *types.CandidateProfile) []FieldSpec {
	return compact([]FieldSpec{
		{Field: "first_name", Selector: `[name="firstname"]`, Value: profile.FirstName()},
		{Field: "last_name", Selector: `[name="lastname"]`, Value: profile.LastName()},
		{Field: "email", Selector: `[name="email"]`, Value: profile.Email},
		{Field: "phone", Selector: `[name="phone"]`, Value: profile.Phone},
	})
}

// genericProvider is the last-resort fallback for unrecognized ATS pages.
// It probes broad attribute patterns and relies on missing fields being
// skipped rather than fatal.
type genericProvider struct{}

func (genericProvider) Name() string { return "generic" }

func (genericProvider) Identify(string) bool { return true }

func (genericProvider) Fields(profile *types.CandidateProfile) []FieldSpec {
	return compact([]FieldSpec{
		{Field: "name", Selector: `input[type="text"][name*="name"]`, Value: profile.Name},
		{Field: "email", Selector: `input[type="email"]`, Value: profile.Email},
		{Field: "phone", Selector: `input[type="tel"]`, Value: profile.Phone},
	})
}

// compact drops specs whose profile value is empty so the session never
// writes blank strings into optional inputs.
func compact(specs []FieldSpec) []FieldSpec {
	out := specs[:0]
	for _, spec := range specs {
		if spec.Value != "" {
			out = append(out, spec)
		}
	}
	return out
}
