package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-insight/internal/llm"
	"resume-insight/internal/resumes"
	"resume-insight/internal/shared/metrics"
	"resume-insight/internal/shared/telemetry"
)

// Service contains business logic for analysis jobs. The pipeline itself is
// synchronous; the service runs it asynchronously per job and persists the
// outcome through the Repo collaborator.
type Service struct {
	Repo          Repo
	Resumes       resumes.Repo
	LLM           llm.Client
	Provider      string
	FastModel     string
	EnhancedModel string
	Matcher       *Matcher
	Aggregator    AggregatorConfig
}

// Create enqueues a new analysis and kicks off asynchronous completion.
func (s *Service) Create(ctx context.Context, resumeID, userID, jobTitle, jobDescription string) (Analysis, error) {
	if resumeID == "" || userID == "" {
		return Analysis{}, errors.New("resumeID and userID are required")
	}

	if s.Resumes != nil {
		resume, err := s.Resumes.GetByID(ctx, userID, resumeID)
		if err != nil {
			if errors.Is(err, resumes.ErrNotFound) {
				return Analysis{}, ErrNotFound
			}
			return Analysis{}, err
		}
		if strings.TrimSpace(resume.RawText) == "" {
			return Analysis{}, ErrInvalidInput
		}
	}

	analysis := Analysis{
		ID:             uuid.NewString(),
		ResumeID:       resumeID,
		UserID:         userID,
		JobTitle:       strings.TrimSpace(jobTitle),
		JobDescription: strings.TrimSpace(jobDescription),
		Provider:       normalizeProvider(s.Provider),
		FastModel:      s.FastModel,
		EnhancedModel:  s.EnhancedModel,
		Status:         StatusQueued,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		return Analysis{}, err
	}

	go s.completeAsync(backgroundWithRequestID(ctx), analysis.ID)

	return analysis, nil
}

// Get returns an analysis by ID, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if analysisID == "" {
		return Analysis{}, errors.New("analysisID is required")
	}
	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		return Analysis{}, err
	}
	if userID != "" && analysis.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// List returns analyses for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if userID == "" {
		return nil, errors.New("userID is required")
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "openai"
	}
	return provider
}

func (s *Service) completeAsync(ctx context.Context, analysisID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failAnalysis(ctx, analysisID, "", fmt.Errorf("panic: %v", r), nil)
		}
	}()

	startedAt := time.Now().UTC()
	if err := s.Repo.MarkProcessing(ctx, analysisID, startedAt); err != nil {
		s.failAnalysis(ctx, analysisID, "", fmt.Errorf("set processing: %w", err), &startedAt)
		return
	}

	analysis, err := s.Repo.GetByID(ctx, analysisID)
	if err != nil {
		s.failAnalysis(ctx, analysisID, "", fmt.Errorf("analysis lookup: %w", err), &startedAt)
		return
	}
	metrics.IncAnalysisStarted()
	s.logStatus(ctx, analysis, StatusProcessing, "queued->processing", nil)

	if s.LLM == nil {
		s.failAnalysis(ctx, analysisID, analysis.UserID, errors.New("missing llm client"), &startedAt)
		return
	}
	if s.Resumes == nil {
		s.failAnalysis(ctx, analysisID, analysis.UserID, errors.New("missing resume repo"), &startedAt)
		return
	}

	resume, err := s.Resumes.GetByID(ctx, analysis.UserID, analysis.ResumeID)
	if err != nil {
		s.failAnalysis(ctx, analysisID, analysis.UserID, fmt.Errorf("resume lookup id=%s: %w", analysis.ResumeID, err), &startedAt)
		return
	}

	pipeline := &Pipeline{
		Client:     newRetryingClient(s.LLM, analysisID, requestIDFromContext(ctx)),
		Matcher:    s.Matcher,
		Aggregator: s.aggregatorConfig(),
	}

	req := AnalysisRequest{
		ResumeText:     resume.RawText,
		JobTitle:       analysis.JobTitle,
		JobDescription: analysis.JobDescription,
	}

	result, artifacts, runErr := pipeline.Run(ctx, req)
	if artifacts.Stage1 != "" || artifacts.Stage2 != "" {
		if err := s.Repo.SaveArtifacts(ctx, analysisID, artifacts.Stage1, artifacts.Stage2); err != nil {
			s.failAnalysis(ctx, analysisID, analysis.UserID, fmt.Errorf("save artifacts: %w", err), &startedAt)
			return
		}
	}
	if runErr != nil {
		s.failAnalysis(ctx, analysisID, analysis.UserID, runErr, &startedAt)
		return
	}

	completedAt := time.Now().UTC()
	if err := s.Repo.Complete(ctx, analysisID, result, completedAt); err != nil {
		s.failAnalysis(ctx, analysisID, analysis.UserID, fmt.Errorf("save analysis result: %w", err), &startedAt)
		return
	}
	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(&startedAt, &completedAt))
	s.logStatus(ctx, analysis, StatusCompleted, "processing->completed", &completedAt)
}

func (s *Service) aggregatorConfig() AggregatorConfig {
	if len(s.Aggregator.Weights) == 0 {
		return DefaultAggregatorConfig()
	}
	return s.Aggregator
}

func (s *Service) failAnalysis(ctx context.Context, analysisID, userID string, err error, startedAt *time.Time) {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := time.Now().UTC()
	// Use a fresh context so a cancelled request still records its failure.
	if updateErr := s.Repo.Fail(context.Background(), analysisID, code, msg, retryable, completedAt); updateErr != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"analysis_id": analysisID,
			"error":       sanitizeError(updateErr),
			"cause":       msg,
		})
	}
	metrics.IncAnalysisFailed()
	if startedAt != nil {
		metrics.ObserveAnalysisDurationMs(durationMs(startedAt, &completedAt))
	}
	telemetry.Info("analysis.status", map[string]any{
		"request_id":  requestIDFromContext(ctx),
		"user_id":     userID,
		"analysis_id": analysisID,
		"status":      StatusFailed,
		"error_code":  code,
		"retryable":   retryable,
		"error":       msg,
	})
}

func (s *Service) logStatus(ctx context.Context, analysis Analysis, status, transition string, completedAt *time.Time) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           analysis.UserID,
		"resume_id":         analysis.ResumeID,
		"analysis_id":       analysis.ID,
		"status":            status,
		"status_transition": transition,
	}
	if completedAt != nil {
		fields["duration_ms"] = durationMs(analysis.StartedAt, completedAt)
	}
	telemetry.Info("analysis.status", fields)
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}

// classifyFailure maps pipeline errors to stable error codes plus a
// retryable hint for the client.
func classifyFailure(err error) (string, bool) {
	switch {
	case err == nil:
		return ErrorCodeInternal, false
	case errors.Is(err, ErrInvalidInput):
		return ErrorCodeValidation, false
	case errors.Is(err, ErrFormat):
		return ErrorCodeSchemaMismatch, false
	case errors.Is(err, llm.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeModelTimeout, true
	case errors.Is(err, ErrUnavailable), errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrRateLimited):
		return ErrorCodeModelUnavailable, true
	case errors.Is(err, llm.ErrBadRequest):
		return ErrorCodeValidation, false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "resume lookup") || strings.Contains(msg, "save artifacts") ||
		strings.Contains(msg, "save analysis result") || strings.Contains(msg, "set processing") {
		return ErrorCodeStorage, true
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
