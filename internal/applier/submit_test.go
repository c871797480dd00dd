package applier

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(body string) string {
	return "<html><head></head><body>" + body + "</body></html>"
}

func TestFindSubmitControlTiers(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		wantTier CascadeTier
		wantText string
	}{
		{
			name:     "native submit type wins",
			html:     page(`<button>Apply Now</button><button type="submit">Go</button>`),
			wantTier: TierSubmitType,
			wantText: "Go",
		},
		{
			name:     "input submit uses value attribute",
			html:     page(`<input type="submit" value="Send Application">`),
			wantTier: TierSubmitType,
			wantText: "Send Application",
		},
		{
			name:     "canonical phrase when no submit type",
			html:     page(`<button>Cancel</button><button>Apply Now</button>`),
			wantTier: TierCanonicalPhrase,
			wantText: "Apply Now",
		},
		{
			name:     "phrase match is case insensitive",
			html:     page(`<button>SUBMIT APPLICATION</button>`),
			wantTier: TierCanonicalPhrase,
			wantText: "SUBMIT APPLICATION",
		},
		{
			name:     "convention class when text is unusual",
			html:     page(`<button class="btn-apply">Let's go!</button>`),
			wantTier: TierConvention,
			wantText: "Let's go!",
		},
		{
			name:     "data-testid convention",
			html:     page(`<div data-testid="submit-application">Finalize</div>`),
			wantTier: TierConvention,
			wantText: "Finalize",
		},
		{
			name:     "keyword scan as last resort",
			html:     page(`<button class="weird">Please apply here</button>`),
			wantTier: TierKeyword,
			wantText: "Please apply here",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, found, err := FindSubmitControl(tt.html)
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, tt.wantTier, candidate.Tier)
			assert.Equal(t, tt.wantText, candidate.Text)
			assert.NotEmpty(t, candidate.Selector)
		})
	}
}

// An exact canonical phrase must beat a merely keyword-bearing control
// even when the keyword control comes first in the document.
func TestCanonicalPhraseBeatsKeyword(t *testing.T) {
	html := page(`
		<button>Learn how to apply</button>
		<button>Submit Application</button>`)

	candidate, found, err := FindSubmitControl(html)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, TierCanonicalPhrase, candidate.Tier)
	assert.Equal(t, "Submit Application", candidate.Text)
}

// More specific phrases outrank shorter ones regardless of document order.
func TestPhraseSpecificityOrder(t *testing.T) {
	html := page(`
		<button>Submit</button>
		<button>Submit Application</button>`)

	candidate, found, err := FindSubmitControl(html)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Submit Application", candidate.Text)
}

// The keyword scan only runs once every stricter strategy came up empty.
// A disabled canonical control must not block the degradation path.
func TestKeywordScanGating(t *testing.T) {
	html := page(`
		<button disabled>Submit Application</button>
		<button>carry on to the next step</button>`)

	candidate, found, err := FindSubmitControl(html)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, TierKeyword, candidate.Tier)
	assert.Equal(t, "carry on to the next step", candidate.Text)
}

func TestFindSubmitCandidatesOrderAndDedup(t *testing.T) {
	t.Run("candidates come in cascade order", func(t *testing.T) {
		html := page(`
			<button id="loose">Please apply here</button>
			<button id="styled" class="btn-apply">Proceed</button>
			<button id="phrase">Apply Now</button>
			<button id="native" type="submit">Go</button>`)

		candidates, err := FindSubmitCandidates(html)
		require.NoError(t, err)
		require.Len(t, candidates, 4)

		var selectors []string
		var tiers []CascadeTier
		for _, c := range candidates {
			selectors = append(selectors, c.Selector)
			tiers = append(tiers, c.Tier)
		}
		assert.Equal(t, []string{"#native", "#phrase", "#styled", "#loose"}, selectors)
		assert.Equal(t, []CascadeTier{TierSubmitType, TierCanonicalPhrase, TierConvention, TierKeyword}, tiers)
	})

	t.Run("a control appears once at its highest tier", func(t *testing.T) {
		// Matches the submit-type, phrase, and keyword strategies at once.
		candidates, err := FindSubmitCandidates(page(
			`<button id="one" type="submit">Submit Application</button>`))
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, TierSubmitType, candidates[0].Tier)
	})
}

func TestNoCandidateFound(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"no controls at all", page(`<p>We are not hiring.</p>`)},
		{"only unrelated buttons", page(`<button>Close</button><button>Share</button>`)},
		{"only disabled controls", page(`<button type="submit" disabled>Submit</button>`)},
		{"only hidden controls", page(`<button type="submit" style="display: none">Submit</button>`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate, found, err := FindSubmitControl(tt.html)
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, candidate)
		})
	}
}

func TestInteractable(t *testing.T) {
	tests := []struct {
		name string
		html string
		want bool
	}{
		{"plain button", `<button id="x">Go</button>`, true},
		{"disabled", `<button id="x" disabled>Go</button>`, false},
		{"hidden attribute", `<button id="x" hidden>Go</button>`, false},
		{"hidden input type", `<input id="x" type="hidden" value="Go">`, false},
		{"display none", `<button id="x" style="display:none">Go</button>`, false},
		{"display none with spaces", `<button id="x" style="display: none;">Go</button>`, false},
		{"visibility hidden", `<button id="x" style="visibility: hidden">Go</button>`, false},
		{"other inline style", `<button id="x" style="color: red">Go</button>`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(page(tt.html)))
			require.NoError(t, err)
			sel := doc.Find("#x")
			require.Equal(t, 1, sel.Length())
			assert.Equal(t, tt.want, interactable(sel))
		})
	}
}

func TestCSSPath(t *testing.T) {
	t.Run("prefers element id", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(
			page(`<div><button id="apply-btn">Apply</button></div>`)))
		require.NoError(t, err)
		assert.Equal(t, "#apply-btn", cssPath(doc.Find("button")))
	})

	t.Run("anchors at nearest id ancestor", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(
			page(`<div id="form-wrap"><div><button>Apply</button></div></div>`)))
		require.NoError(t, err)
		assert.Equal(t, "#form-wrap > div:nth-of-type(1) > button:nth-of-type(1)",
			cssPath(doc.Find("button")))
	})

	t.Run("positional path distinguishes siblings", func(t *testing.T) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(
			page(`<div id="w"><button>One</button><button>Two</button></div>`)))
		require.NoError(t, err)

		second := doc.Find("button").Eq(1)
		assert.Equal(t, "#w > button:nth-of-type(2)", cssPath(second))
	})
}
