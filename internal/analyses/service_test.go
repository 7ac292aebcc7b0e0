package analyses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insight/internal/llm"
	"resume-insight/internal/resumes"
)

func newTestService(t *testing.T, client llm.Client) (*Service, *MemoryRepo, *resumes.MemoryRepo) {
	t.Helper()
	repo := NewMemoryRepo()
	resumeRepo := resumes.NewMemoryRepo()
	require.NoError(t, resumeRepo.Create(context.Background(), resumes.Resume{
		ID:        "resume-1",
		UserID:    "user-1",
		FileName:  "jane.pdf",
		RawText:   pipelineResume,
		CreatedAt: time.Now().UTC(),
	}))
	svc := &Service{
		Repo:          repo,
		Resumes:       resumeRepo,
		LLM:           client,
		Provider:      "openai",
		FastModel:     "gpt-4o-mini",
		EnhancedModel: "gpt-4o",
	}
	return svc, repo, resumeRepo
}

// waitForTerminal polls until the async worker settles the analysis.
func waitForTerminal(t *testing.T, repo *MemoryRepo, analysisID string) Analysis {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		analysis, err := repo.GetByID(context.Background(), analysisID)
		require.NoError(t, err)
		if analysis.Status == StatusCompleted || analysis.Status == StatusFailed {
			return analysis
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("analysis %s never reached a terminal status", analysisID)
	return Analysis{}
}

func TestServiceCreateRunsAnalysisToCompletion(t *testing.T) {
	client := &pipelineClient{responses: []string{stage1Response(false), refinedResponse(t, false)}}
	svc, repo, _ := newTestService(t, client)

	created, err := svc.Create(context.Background(), "resume-1", "user-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, created.Status)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "openai", created.Provider)

	final := waitForTerminal(t, repo, created.ID)
	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.Result)
	assert.Equal(t, "Polished advice.", final.Result.PersonalizedAdvice)
	assert.NotNil(t, final.CompletedAt)
	assert.Nil(t, final.ErrorCode)
	assert.Equal(t, stage1Response(false), final.RawStage1)
}

func TestServiceCreateRejectsUnknownResume(t *testing.T) {
	svc, _, _ := newTestService(t, &pipelineClient{})

	_, err := svc.Create(context.Background(), "missing-resume", "user-1", "", "")
	assert.ErrorIs(t, err, ErrNotFound)

	// A resume owned by someone else looks identical to a missing one.
	_, err = svc.Create(context.Background(), "resume-1", "user-2", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceCreateRejectsEmptyResumeText(t *testing.T) {
	svc, _, resumeRepo := newTestService(t, &pipelineClient{})
	require.NoError(t, resumeRepo.Create(context.Background(), resumes.Resume{
		ID: "resume-blank", UserID: "user-1", RawText: "   ",
	}))

	_, err := svc.Create(context.Background(), "resume-blank", "user-1", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestServiceFailureRecordsErrorCode(t *testing.T) {
	client := &pipelineClient{errs: []error{llm.ErrTimeout, llm.ErrTimeout, llm.ErrTimeout}}
	svc, repo, _ := newTestService(t, client)

	created, err := svc.Create(context.Background(), "resume-1", "user-1", "", "")
	require.NoError(t, err)

	final := waitForTerminal(t, repo, created.ID)
	assert.Equal(t, StatusFailed, final.Status)
	require.NotNil(t, final.ErrorCode)
	// The timeout is transient, so retries wrap it as unavailable.
	assert.Equal(t, ErrorCodeModelUnavailable, *final.ErrorCode)
	require.NotNil(t, final.Retryable)
	assert.True(t, *final.Retryable)
	assert.Nil(t, final.Result)
}

func TestServiceSchemaMismatchNotRetryable(t *testing.T) {
	client := &pipelineClient{responses: []string{"prose", "more prose"}}
	svc, repo, _ := newTestService(t, client)

	created, err := svc.Create(context.Background(), "resume-1", "user-1", "", "")
	require.NoError(t, err)

	final := waitForTerminal(t, repo, created.ID)
	assert.Equal(t, StatusFailed, final.Status)
	require.NotNil(t, final.ErrorCode)
	assert.Equal(t, ErrorCodeSchemaMismatch, *final.ErrorCode)
	require.NotNil(t, final.Retryable)
	assert.False(t, *final.Retryable)
	// The unusable raw output is still kept for audit.
	assert.Equal(t, "prose", final.RawStage1)
}

func TestServiceGetScopesToOwner(t *testing.T) {
	client := &pipelineClient{responses: []string{stage1Response(false), refinedResponse(t, false)}}
	svc, repo, _ := newTestService(t, client)

	created, err := svc.Create(context.Background(), "resume-1", "user-1", "", "")
	require.NoError(t, err)
	waitForTerminal(t, repo, created.ID)

	got, err := svc.Get(context.Background(), "user-1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(context.Background(), "user-2", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(context.Background(), Analysis{
			ID:        id,
			UserID:    "user-1",
			Status:    StatusQueued,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	svc := &Service{Repo: repo}

	got, err := svc.List(context.Background(), "user-1", 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	rest, err := svc.List(context.Background(), "user-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "a", rest[0].ID)
}

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		code      string
		retryable bool
	}{
		{"invalid input", ErrInvalidInput, ErrorCodeValidation, false},
		{"format", ErrFormat, ErrorCodeSchemaMismatch, false},
		{"timeout", llm.ErrTimeout, ErrorCodeModelTimeout, true},
		{"deadline", context.DeadlineExceeded, ErrorCodeModelTimeout, true},
		{"unavailable", llm.ErrUnavailable, ErrorCodeModelUnavailable, true},
		{"rate limited", llm.ErrRateLimited, ErrorCodeModelUnavailable, true},
		{"bad request", llm.ErrBadRequest, ErrorCodeValidation, false},
		{"storage", assertableError("resume lookup id=x: gone"), ErrorCodeStorage, true},
		{"unknown", assertableError("boom"), ErrorCodeInternal, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, retryable := classifyFailure(tc.err)
			assert.Equal(t, tc.code, code)
			assert.Equal(t, tc.retryable, retryable)
		})
	}
}

type assertableError string

func (e assertableError) Error() string { return string(e) }
