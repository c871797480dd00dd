package applier

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CascadeTier identifies which detection strategy produced a submit
// candidate. Lower tiers are higher-confidence.
type CascadeTier string

const (
	// TierSubmitType matched a native submit-typed control.
	TierSubmitType CascadeTier = "submit_type"
	// TierCanonicalPhrase matched a control whose text is a known
	// application phrase, exactly.
	TierCanonicalPhrase CascadeTier = "canonical_phrase"
	// TierConvention matched a common ATS class, id, or data attribute.
	TierConvention CascadeTier = "convention"
	// TierKeyword matched only the last-resort keyword scan.
	TierKeyword CascadeTier = "keyword"
)

// SubmitCandidate is one clickable control the cascade identified as the
// form's submission trigger.
type SubmitCandidate struct {
	Selector string
	Text     string
	Tier     CascadeTier
}

// canonicalPhrases is ordered most-specific first so "Submit Application"
// wins over a bare "Submit" appearing elsewhere on the page.
var canonicalPhrases = []string{
	"submit application",
	"apply for this job",
	"apply for this position",
	"complete application",
	"send application",
	"review & submit",
	"review application",
	"confirm application",
	"apply now",
	"submit",
	"apply",
	"send",
	"continue",
	"next",
	"confirm",
	"finish",
	"done",
}

// conventionSelectors are class/id/data-attribute patterns that ATS vendors
// and form builders conventionally put on their submit controls.
var conventionSelectors = []string{
	"button.apply-button",
	"button.submit-btn",
	"button.btn-apply",
	"button.btn-submit",
	"button.application-submit",
	`[data-testid="submit-application"]`,
	`[data-testid="apply-button"]`,
	`[data-qa="btn-apply"]`,
	`[id*="submit"]`,
	`[id*="apply"]`,
}

// keywordTokens gate the last-resort scan: a control qualifies only when
// its lowercased text contains one of these.
var keywordTokens = []string{
	"submit", "apply", "send", "confirm", "complete", "finish", "continue", "next",
}

// FindSubmitCandidates scans the captured page markup for every control
// that could submit the application form, in strict cascade order:
// submit-typed controls, then exact canonical phrases most-specific first,
// then ATS naming conventions, then the last-resort keyword scan. Each
// control appears at most once, at its highest tier, so a caller can fall
// through to the next candidate when a click fails.
func FindSubmitCandidates(pageHTML string) ([]SubmitCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("parse page markup: %w", err)
	}

	var out []SubmitCandidate
	seen := make(map[string]struct{})
	add := func(s *goquery.Selection, tier CascadeTier) {
		if !interactable(s) {
			return
		}
		selector := cssPath(s)
		if _, dup := seen[selector]; dup {
			return
		}
		seen[selector] = struct{}{}
		out = append(out, SubmitCandidate{
			Selector: selector,
			Text:     controlText(s),
			Tier:     tier,
		})
	}

	doc.Find(`button[type="submit"], input[type="submit"]`).Each(func(_ int, s *goquery.Selection) {
		add(s, TierSubmitType)
	})

	controls := doc.Find(`button, input[type="button"], input[type="submit"], a[role="button"]`)
	for _, phrase := range canonicalPhrases {
		controls.Each(func(_ int, s *goquery.Selection) {
			if strings.ToLower(strings.TrimSpace(controlText(s))) == phrase {
				add(s, TierCanonicalPhrase)
			}
		})
	}

	for _, sel := range conventionSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			add(s, TierConvention)
		})
	}

	doc.Find(`button, input[type="submit"], input[type="button"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.ToLower(controlText(s))
		for _, token := range keywordTokens {
			if strings.Contains(text, token) {
				add(s, TierKeyword)
				return
			}
		}
	})

	return out, nil
}

// FindSubmitControl returns the highest-priority submit candidate. The
// boolean is false when no candidate survives, which the caller treats as
// a degraded outcome, not an error.
func FindSubmitControl(pageHTML string) (*SubmitCandidate, bool, error) {
	candidates, err := FindSubmitCandidates(pageHTML)
	if err != nil || len(candidates) == 0 {
		return nil, false, err
	}
	return &candidates[0], true, nil
}

// controlText returns the visible label of a control: inner text for
// buttons and links, the value attribute for inputs.
func controlText(s *goquery.Selection) string {
	if goquery.NodeName(s) == "input" {
		val, _ := s.Attr("value")
		return val
	}
	return strings.TrimSpace(s.Text())
}

// interactable filters out controls that static markup already shows as
// unusable: disabled, hidden, or styled invisible. Dynamic visibility
// cannot be judged from captured HTML and is left to the click itself.
func interactable(s *goquery.Selection) bool {
	if _, disabled := s.Attr("disabled"); disabled {
		return false
	}
	if _, hidden := s.Attr("hidden"); hidden {
		return false
	}
	if t, _ := s.Attr("type"); t == "hidden" {
		return false
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return false
	}
	return true
}

// cssPath builds a selector that uniquely addresses the selection in the
// live page: an id when the element has one, otherwise a positional
// tag:nth-of-type chain from the nearest id-bearing ancestor (or the root).
func cssPath(s *goquery.Selection) string {
	if len(s.Nodes) == 0 {
		return ""
	}
	var parts []string
	for node := s.Nodes[0]; node != nil && node.Type == html.ElementNode; node = node.Parent {
		if id := attrValue(node, "id"); id != "" {
			parts = append(parts, "#"+id)
			break
		}
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", node.Data, nthOfType(node)))
	}
	// Reverse into document order
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " > ")
}

func attrValue(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func nthOfType(node *html.Node) int {
	n := 1
	for sib := node.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode && sib.Data == node.Data {
			n++
		}
	}
	return n
}
