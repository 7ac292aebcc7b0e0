package analyses

import (
	"context"
	"fmt"
	"strings"

	"resume-insight/internal/llm"
	"resume-insight/internal/shared/metrics"
	"resume-insight/internal/shared/telemetry"
)

// Stage names the states of the two-stage orchestration.
type Stage string

const (
	StageAnalysisPending Stage = "stage1_pending"
	StageRefinePending   Stage = "stage2_pending"
	StageComplete        Stage = "complete"
	StageFailed          Stage = "failed"
)

// Pipeline runs the full analysis: deterministic keyword matching, the
// stage-1 structural model call, the stage-2 polish call with fallback, and
// score aggregation. One Pipeline is safe for concurrent use; all per-request
// state lives on the stack.
type Pipeline struct {
	Client     llm.Client
	Matcher    *Matcher
	Aggregator AggregatorConfig
}

// NewPipeline wires a pipeline with default matcher and aggregator settings.
func NewPipeline(client llm.Client) *Pipeline {
	return &Pipeline{
		Client:     client,
		Matcher:    NewMatcher(DefaultMatcherConfig()),
		Aggregator: DefaultAggregatorConfig(),
	}
}

// Run executes the pipeline for one request. Stage-1 failure fails the run;
// stage-2 failure of any kind falls back to the validated stage-1 result.
// The returned artifacts hold raw model output for audit persistence.
func (p *Pipeline) Run(ctx context.Context, req AnalysisRequest) (StructuredAnalysis, RawArtifacts, error) {
	var artifacts RawArtifacts
	if strings.TrimSpace(req.ResumeText) == "" {
		return StructuredAnalysis{}, artifacts, fmt.Errorf("%w: resume text is empty", ErrInvalidInput)
	}
	if p.Client == nil {
		return StructuredAnalysis{}, artifacts, fmt.Errorf("missing llm client")
	}

	matcher := p.Matcher
	if matcher == nil {
		matcher = NewMatcher(DefaultMatcherConfig())
	}
	matches, missing := matcher.Match(req.ResumeText, req.JobTitle, req.JobDescription)

	stage := StageAnalysisPending

	raw, err := p.Client.Invoke(ctx, BuildStage1Prompt(req), llm.TierFast)
	if err != nil {
		p.transition(ctx, stage, StageFailed)
		return StructuredAnalysis{}, artifacts, stageOneError(err)
	}
	artifacts.Stage1 = raw

	result, err := parseWithRepair(ctx, p.Client, llm.TierFast, raw)
	if err != nil {
		p.transition(ctx, stage, StageFailed)
		return StructuredAnalysis{}, artifacts, stageOneError(err)
	}
	stage = p.transition(ctx, stage, StageRefinePending)

	if refined, rawStage2, ok := p.refine(ctx, req, result); ok {
		artifacts.Stage2 = rawStage2
		result = mergeRefinement(result, refined)
	} else {
		artifacts.Stage2 = rawStage2
		metrics.IncStageTwoFallback()
	}
	p.transition(ctx, stage, StageComplete)

	applyKeywordAuthority(&result, req, matches, missing)
	aggregateScores(&result, p.Aggregator)
	normalizeAnalysis(&result)
	return result, artifacts, nil
}

// refine runs the stage-2 polish call. Any failure is reported, not
// propagated; stage 2 is a quality enhancement, not a correctness
// requirement.
func (p *Pipeline) refine(ctx context.Context, req AnalysisRequest, stage1 StructuredAnalysis) (StructuredAnalysis, string, bool) {
	prompt, err := BuildStage2Prompt(req, stage1)
	if err != nil {
		telemetry.Error("analysis.stage2_fallback", map[string]any{"error": sanitizeError(err)})
		return StructuredAnalysis{}, "", false
	}
	raw, err := p.Client.Invoke(ctx, prompt, llm.TierEnhanced)
	if err != nil {
		telemetry.Error("analysis.stage2_fallback", map[string]any{"error": sanitizeError(err)})
		return StructuredAnalysis{}, "", false
	}
	refined, err := parseWithRepair(ctx, p.Client, llm.TierEnhanced, raw)
	if err != nil {
		telemetry.Error("analysis.stage2_fallback", map[string]any{"error": sanitizeError(err)})
		return StructuredAnalysis{}, raw, false
	}
	return refined, raw, true
}

func (p *Pipeline) transition(ctx context.Context, from, to Stage) Stage {
	telemetry.Info("analysis.stage", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"transition": string(from) + "->" + string(to),
	})
	return to
}

func stageOneError(err error) error {
	if llm.IsTransient(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// mergeRefinement lays stage-2 prose over the stage-1 structure. Numeric
// scores, the section set, keyword data and list lengths stay with stage 1;
// a refinement that altered the shape is only applied where it still lines up.
func mergeRefinement(base, refined StructuredAnalysis) StructuredAnalysis {
	out := base

	if strings.TrimSpace(refined.PersonalizedAdvice) != "" {
		out.PersonalizedAdvice = refined.PersonalizedAdvice
	}
	if strings.TrimSpace(refined.MatchAnalysis) != "" {
		out.MatchAnalysis = refined.MatchAnalysis
	}

	for i := range out.Sections {
		for j := range refined.Sections {
			if strings.EqualFold(out.Sections[i].Name, refined.Sections[j].Name) &&
				strings.TrimSpace(refined.Sections[j].Feedback) != "" {
				out.Sections[i].Feedback = refined.Sections[j].Feedback
				break
			}
		}
	}

	if len(refined.Strengths) == len(out.Strengths) {
		out.Strengths = refined.Strengths
	}
	if len(refined.Improvements) == len(out.Improvements) {
		out.Improvements = refined.Improvements
	}
	if len(refined.Recommendations) == len(out.Recommendations) {
		for i := range out.Recommendations {
			if strings.TrimSpace(refined.Recommendations[i].Title) != "" {
				out.Recommendations[i].Title = refined.Recommendations[i].Title
			}
			if strings.TrimSpace(refined.Recommendations[i].Description) != "" {
				out.Recommendations[i].Description = refined.Recommendations[i].Description
			}
		}
	}
	return out
}

// applyKeywordAuthority overwrites model keyword fields with the matcher's
// output. The deterministic matcher is authoritative for keywordMatches and
// missingKeywords; the model keeps every narrative field.
func applyKeywordAuthority(result *StructuredAnalysis, req AnalysisRequest, matches []KeywordMatch, missing []string) {
	result.KeywordMatches = matches
	if req.HasJobTarget() {
		result.MissingKeywords = missing
	} else {
		result.MissingKeywords = []string{}
		result.MatchPercentage = nil
		result.HirabilityScore = nil
		result.MatchAnalysis = ""
	}
}
