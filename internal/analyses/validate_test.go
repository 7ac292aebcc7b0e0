package analyses

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insight/internal/llm"
)

const validAnalysisJSON = `{
	"overallScore": 78,
	"atsCompatibilityScore": 82,
	"personalizedAdvice": "Lead with outcomes.",
	"sections": [
		{"name": "Experience", "score": 80, "feedback": "Solid.", "category": "content"},
		{"name": "Layout", "score": 70, "feedback": "Dense.", "category": "format"}
	],
	"strengths": ["Clear progression"],
	"improvements": ["Quantify results"],
	"keywordMatches": [{"keyword": "go", "frequency": 4, "relevance": "high"}],
	"missingKeywords": ["kafka"],
	"recommendations": [
		{"priority": "low", "title": "Trim summary", "description": "Two lines max."},
		{"priority": "high", "title": "Add metrics", "description": "Numbers per bullet."}
	]
}`

func TestParseStructuredDirectJSON(t *testing.T) {
	result, err := parseStructured(validAnalysisJSON)
	require.NoError(t, err)
	assert.Equal(t, 78, result.OverallScore)
	assert.Len(t, result.Sections, 2)
}

func TestParseStructuredStripsCodeFence(t *testing.T) {
	fenced := "```json\n" + validAnalysisJSON + "\n```"
	result, err := parseStructured(fenced)
	require.NoError(t, err)
	assert.Equal(t, 82, result.ATSCompatibilityScore)
}

func TestParseStructuredExtractsFromProse(t *testing.T) {
	wrapped := "Here is the analysis you asked for:\n" + validAnalysisJSON + "\nLet me know if you need anything else."
	result, err := parseStructured(wrapped)
	require.NoError(t, err)
	assert.Equal(t, 78, result.OverallScore)
}

func TestParseStructuredHonorsBracesInStrings(t *testing.T) {
	payload := `{"overallScore": 50, "atsCompatibilityScore": 50, "personalizedAdvice": "use {braces} and \"quotes\" freely", "sections": [{"name": "Experience", "score": 50, "feedback": "", "category": "content"}]}`
	result, err := parseStructured("noise " + payload + " trailing")
	require.NoError(t, err)
	assert.Equal(t, "use {braces} and \"quotes\" freely", result.PersonalizedAdvice)
}

func TestParseStructuredRejectsEmptyAndProseOnly(t *testing.T) {
	for _, raw := range []string{"", "   ", "I could not analyze this resume."} {
		_, err := parseStructured(raw)
		assert.ErrorIs(t, err, ErrFormat, "input %q", raw)
	}
}

func TestParseStructuredRejectsMissingSections(t *testing.T) {
	_, err := parseStructured(`{"overallScore": 60, "atsCompatibilityScore": 60, "sections": []}`)
	assert.ErrorIs(t, err, ErrFormat)

	_, err = parseStructured(`{"overallScore": 60, "sections": [{"name": "  ", "score": 10, "category": "content"}]}`)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestNormalizeAnalysisClampsAndCleans(t *testing.T) {
	match := 140
	result := StructuredAnalysis{
		OverallScore:          120,
		ATSCompatibilityScore: -10,
		MatchPercentage:       &match,
		Sections: []Section{
			{Name: "Experience", Score: 250, Category: Category("unknown")},
		},
		KeywordMatches: []KeywordMatch{
			{Keyword: "Go", Frequency: 3, Relevance: RelevanceHigh},
			{Keyword: "go", Frequency: 5, Relevance: RelevanceHigh},
			{Keyword: "ghost", Frequency: 0, Relevance: RelevanceLow},
			{Keyword: "sql", Frequency: 1, Relevance: Relevance("critical")},
		},
		MissingKeywords: []string{"go", "kafka", "kafka", ""},
		Recommendations: []Recommendation{
			{Priority: Priority("urgent"), Title: "Fix dates"},
			{Priority: PriorityHigh, Title: "Add metrics"},
			{Priority: PriorityLow, Title: "Trim summary"},
		},
	}

	normalizeAnalysis(&result)

	assert.Equal(t, 100, result.OverallScore)
	assert.Equal(t, 0, result.ATSCompatibilityScore)
	require.NotNil(t, result.MatchPercentage)
	assert.Equal(t, 100, *result.MatchPercentage)

	assert.Equal(t, 100, result.Sections[0].Score)
	assert.Equal(t, CategoryContent, result.Sections[0].Category, "unknown categories fall back to content")

	require.Len(t, result.KeywordMatches, 2)
	assert.Equal(t, 5, result.KeywordMatches[0].Frequency, "duplicate keywords keep the larger frequency")
	assert.Equal(t, RelevanceLow, result.KeywordMatches[1].Relevance, "unknown relevance defaults to low")

	assert.Equal(t, []string{"kafka"}, result.MissingKeywords, "matched and blank keywords drop out of missing")

	require.Len(t, result.Recommendations, 3)
	assert.Equal(t, PriorityHigh, result.Recommendations[0].Priority)
	assert.Equal(t, "Fix dates", result.Recommendations[1].Title, "unknown priority becomes medium and keeps order")
	assert.Equal(t, PriorityLow, result.Recommendations[2].Priority)

	assert.NotNil(t, result.Strengths)
	assert.NotNil(t, result.Improvements)
}

type scriptedClient struct {
	responses []string
	errs      []error
	prompts   []string
	tiers     []llm.Tier
}

func (c *scriptedClient) Invoke(_ context.Context, prompt string, tier llm.Tier) (string, error) {
	c.prompts = append(c.prompts, prompt)
	c.tiers = append(c.tiers, tier)
	call := len(c.prompts) - 1
	var err error
	if call < len(c.errs) {
		err = c.errs[call]
	}
	var resp string
	if call < len(c.responses) {
		resp = c.responses[call]
	}
	return resp, err
}

func TestParseWithRepairSkipsRepromptOnSuccess(t *testing.T) {
	client := &scriptedClient{}

	result, err := parseWithRepair(context.Background(), client, llm.TierFast, validAnalysisJSON)

	require.NoError(t, err)
	assert.Equal(t, 78, result.OverallScore)
	assert.Empty(t, client.prompts, "no re-prompt for a clean response")
}

func TestParseWithRepairRepromptsOnce(t *testing.T) {
	client := &scriptedClient{responses: []string{validAnalysisJSON}}

	result, err := parseWithRepair(context.Background(), client, llm.TierFast, "Sorry, here is prose instead of JSON.")

	require.NoError(t, err)
	assert.Equal(t, 78, result.OverallScore)
	require.Len(t, client.prompts, 1)
	assert.True(t, strings.HasPrefix(client.prompts[0], repairPromptHeader))
	assert.Contains(t, client.prompts[0], "prose instead of JSON")
	assert.Equal(t, llm.TierFast, client.tiers[0], "repair stays on the failing tier")
}

func TestParseWithRepairGivesUpAfterSecondFailure(t *testing.T) {
	client := &scriptedClient{responses: []string{"still not json"}}

	_, err := parseWithRepair(context.Background(), client, llm.TierEnhanced, "not json either")

	assert.ErrorIs(t, err, ErrFormat)
	assert.Len(t, client.prompts, 1, "only one corrective re-prompt is allowed")
}

func TestParseWithRepairSurfacesProviderErrors(t *testing.T) {
	client := &scriptedClient{errs: []error{llm.ErrRateLimited}}

	_, err := parseWithRepair(context.Background(), client, llm.TierFast, "not json")

	assert.ErrorIs(t, err, llm.ErrRateLimited)
	assert.False(t, errors.Is(err, ErrFormat))
}
