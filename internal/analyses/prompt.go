package analyses

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
)

var (
	//go:embed prompts/stage1.txt
	stage1Template string
	//go:embed prompts/stage2.txt
	stage2Template string
)

const jobMatchFields = `,
  "matchPercentage": <integer 0-100>,
  "hirabilityScore": <integer 0-100>,
  "matchAnalysis": "<string>"`

const genericModeInstructions = `
MODE: GENERIC ANALYSIS (no target job supplied).
Evaluate the resume against general professional standards. Omit
matchPercentage, hirabilityScore and matchAnalysis. Leave missingKeywords
as an empty array.
`

const jobMatchModeInstructions = `
MODE: JOB-MATCH ANALYSIS.
Evaluate the resume specifically against the target job below. Populate
matchPercentage (how well the resume covers the job requirements),
hirabilityScore (overall candidacy strength for this job) and matchAnalysis
(a frank narrative of fit, gaps and positioning). missingKeywords must list
important job terms absent from the resume.
`

// BuildStage1Prompt assembles the comprehensive analysis prompt. The rubric,
// response contract and mode instructions live in the embedded template.
func BuildStage1Prompt(req AnalysisRequest) string {
	matchFields := ""
	mode := genericModeInstructions
	if req.HasJobTarget() {
		matchFields = jobMatchFields
		mode = jobMatchModeInstructions
	}
	replacer := strings.NewReplacer(
		"{{JOB_MATCH_FIELDS}}", matchFields,
		"{{MODE_INSTRUCTIONS}}", mode,
		"{{RESUME_TEXT}}", req.ResumeText,
		"{{JOB_TARGET}}", formatJobTarget(req),
	)
	return replacer.Replace(stage1Template)
}

// BuildStage2Prompt seeds the polish pass with the serialized stage-1 result.
// Serialization failure cannot happen for a value that round-tripped through
// the stage-1 parser, but the error is surfaced rather than swallowed.
func BuildStage2Prompt(req AnalysisRequest, stage1 StructuredAnalysis) (string, error) {
	payload, err := json.Marshal(stage1)
	if err != nil {
		return "", fmt.Errorf("serialize stage-1 result: %w", err)
	}
	matchField := ""
	if req.HasJobTarget() {
		matchField = " and matchAnalysis"
	}
	replacer := strings.NewReplacer(
		"{{MATCH_ANALYSIS_FIELD}}", matchField,
		"{{STAGE1_RESULT}}", string(payload),
	)
	return replacer.Replace(stage2Template), nil
}

func formatJobTarget(req AnalysisRequest) string {
	if !req.HasJobTarget() {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nTarget job:\n")
	if trimmedNonEmpty(req.JobTitle) {
		fmt.Fprintf(&b, "Title: %s\n", strings.TrimSpace(req.JobTitle))
	}
	if trimmedNonEmpty(req.JobDescription) {
		fmt.Fprintf(&b, "Description:\n%s\n", strings.TrimSpace(req.JobDescription))
	}
	return b.String()
}
