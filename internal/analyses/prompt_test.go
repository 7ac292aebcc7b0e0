package analyses

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildStage1PromptGenericMode(t *testing.T) {
	prompt := BuildStage1Prompt(AnalysisRequest{ResumeText: "Jane Doe, Go engineer."})

	assert.Contains(t, prompt, "Jane Doe, Go engineer.")
	assert.Contains(t, prompt, "MODE: GENERIC ANALYSIS")
	assert.NotContains(t, prompt, "matchPercentage\": <integer")
	assert.NotContains(t, prompt, "Target job:")
	assert.NotContains(t, prompt, "{{", "all template placeholders must be replaced")
}

func TestBuildStage1PromptJobMatchMode(t *testing.T) {
	prompt := BuildStage1Prompt(AnalysisRequest{
		ResumeText:     "Jane Doe, Go engineer.",
		JobTitle:       "Platform Engineer",
		JobDescription: "Build Go services on Kubernetes.",
	})

	assert.Contains(t, prompt, "MODE: JOB-MATCH ANALYSIS")
	assert.Contains(t, prompt, "matchPercentage")
	assert.Contains(t, prompt, "hirabilityScore")
	assert.Contains(t, prompt, "Title: Platform Engineer")
	assert.Contains(t, prompt, "Build Go services on Kubernetes.")
	assert.NotContains(t, prompt, "{{")
}

func TestBuildStage1PromptDescriptionOnlyTarget(t *testing.T) {
	prompt := BuildStage1Prompt(AnalysisRequest{
		ResumeText:     "resume",
		JobDescription: "A job with no title.",
	})

	assert.Contains(t, prompt, "MODE: JOB-MATCH ANALYSIS")
	assert.NotContains(t, prompt, "Title:")
	assert.Contains(t, prompt, "A job with no title.")
}

func TestBuildStage2PromptEmbedsStage1Result(t *testing.T) {
	stage1 := StructuredAnalysis{
		OverallScore: 77,
		Sections:     []Section{{Name: "Experience", Score: 77, Category: CategoryContent}},
	}

	prompt, err := BuildStage2Prompt(AnalysisRequest{ResumeText: "resume"}, stage1)

	require.NoError(t, err)
	assert.Contains(t, prompt, `"overallScore":77`)
	assert.NotContains(t, prompt, "{{STAGE1_RESULT}}")
	assert.False(t, strings.Contains(prompt, "matchAnalysis"), "generic mode does not ask for match narrative")
}

func TestBuildStage2PromptJobMatchMentionsMatchAnalysis(t *testing.T) {
	stage1 := StructuredAnalysis{
		OverallScore: 70,
		Sections:     []Section{{Name: "Experience", Score: 70, Category: CategoryContent}},
	}

	prompt, err := BuildStage2Prompt(AnalysisRequest{ResumeText: "resume", JobTitle: "SRE"}, stage1)

	require.NoError(t, err)
	assert.Contains(t, prompt, "matchAnalysis")
}
