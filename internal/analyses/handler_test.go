package analyses

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-insight/internal/resumes"
)

func newHandlerRouter(t *testing.T, svc *Service, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartAnalysisAccepted(t *testing.T) {
	client := &pipelineClient{responses: []string{stage1Response(false), refinedResponse(t, false)}}
	svc, repo, _ := newTestService(t, client)
	r := newHandlerRouter(t, svc, "user-1")

	w := doJSON(t, r, http.MethodPost, "/api/v1/resumes/resume-1/analyses", "")

	require.Equal(t, http.StatusAccepted, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusQueued, resp["status"])
	analysisID, _ := resp["analysisId"].(string)
	require.NotEmpty(t, analysisID)

	waitForTerminal(t, repo, analysisID)
}

func TestStartAnalysisTitleWithoutDescriptionRejected(t *testing.T) {
	svc, _, _ := newTestService(t, &pipelineClient{})
	r := newHandlerRouter(t, svc, "user-1")

	w := doJSON(t, r, http.MethodPost, "/api/v1/resumes/resume-1/analyses",
		`{"jobTitle": "Platform Engineer"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "jobDescription")
}

func TestStartAnalysisUnknownResume(t *testing.T) {
	svc, _, _ := newTestService(t, &pipelineClient{})
	r := newHandlerRouter(t, svc, "user-1")

	w := doJSON(t, r, http.MethodPost, "/api/v1/resumes/nope/analyses", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartAnalysisMalformedBody(t *testing.T) {
	svc, _, _ := newTestService(t, &pipelineClient{})
	r := newHandlerRouter(t, svc, "user-1")

	w := doJSON(t, r, http.MethodPost, "/api/v1/resumes/resume-1/analyses", `{"jobTitle":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartAnalysisEmptyResumeText(t *testing.T) {
	svc, _, resumeRepo := newTestService(t, &pipelineClient{})
	require.NoError(t, resumeRepo.Create(context.Background(), resumes.Resume{
		ID: "resume-blank", UserID: "user-1", RawText: " ",
	}))
	r := newHandlerRouter(t, svc, "user-1")

	w := doJSON(t, r, http.MethodPost, "/api/v1/resumes/resume-blank/analyses", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no extractable text")
}

func TestGetAnalysisCompletedIncludesResult(t *testing.T) {
	client := &pipelineClient{responses: []string{stage1Response(false), refinedResponse(t, false)}}
	svc, repo, _ := newTestService(t, client)
	r := newHandlerRouter(t, svc, "user-1")

	created, err := svc.Create(context.Background(), "resume-1", "user-1", "", "")
	require.NoError(t, err)
	waitForTerminal(t, repo, created.ID)

	w := doJSON(t, r, http.MethodGet, "/api/v1/analyses/"+created.ID, "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusCompleted, resp["status"])
	require.Contains(t, resp, "result")
	result := resp["result"].(map[string]any)
	assert.Equal(t, "Polished advice.", result["personalizedAdvice"])
	assert.Contains(t, resp, "completedAt")
	assert.NotContains(t, resp, "error")
}

func TestGetAnalysisFailedIncludesErrorEnvelope(t *testing.T) {
	svc, repo, _ := newTestService(t, &pipelineClient{})
	r := newHandlerRouter(t, svc, "user-1")

	now := time.Now().UTC()
	require.NoError(t, repo.Create(context.Background(), Analysis{
		ID: "an-1", ResumeID: "resume-1", UserID: "user-1",
		Status: StatusQueued, CreatedAt: now,
	}))
	require.NoError(t, repo.Fail(context.Background(), "an-1",
		ErrorCodeModelUnavailable, "provider down", true, now))

	w := doJSON(t, r, http.MethodGet, "/api/v1/analyses/an-1", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, StatusFailed, resp["status"])
	errBody := resp["error"].(map[string]any)
	assert.Equal(t, ErrorCodeModelUnavailable, errBody["code"])
	assert.Equal(t, true, errBody["retryable"])
	assert.NotContains(t, resp, "result")
}

func TestGetAnalysisScopedToOwner(t *testing.T) {
	svc, repo, _ := newTestService(t, &pipelineClient{})
	require.NoError(t, repo.Create(context.Background(), Analysis{
		ID: "an-2", ResumeID: "resume-1", UserID: "someone-else",
		Status: StatusQueued, CreatedAt: time.Now().UTC(),
	}))
	r := newHandlerRouter(t, svc, "user-1")

	w := doJSON(t, r, http.MethodGet, "/api/v1/analyses/an-2", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListAnalysesSummaries(t *testing.T) {
	svc, repo, _ := newTestService(t, &pipelineClient{})
	now := time.Now().UTC()
	match := 64
	require.NoError(t, repo.Create(context.Background(), Analysis{
		ID: "old", UserID: "user-1", ResumeID: "resume-1",
		Status: StatusQueued, CreatedAt: now.Add(-time.Hour),
	}))
	require.NoError(t, repo.Create(context.Background(), Analysis{
		ID: "new", UserID: "user-1", ResumeID: "resume-1", JobTitle: "SRE",
		Status: StatusQueued, CreatedAt: now,
	}))
	require.NoError(t, repo.Complete(context.Background(), "new", StructuredAnalysis{
		OverallScore:    81,
		MatchPercentage: &match,
		Sections:        []Section{{Name: "Experience", Score: 81, Category: CategoryContent}},
	}, now))

	r := newHandlerRouter(t, svc, "user-1")
	w := doJSON(t, r, http.MethodGet, "/api/v1/analyses?limit=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)

	assert.Equal(t, "new", resp[0]["analysisId"])
	assert.Equal(t, float64(81), resp[0]["overallScore"])
	assert.Equal(t, float64(64), resp[0]["matchPercentage"])
	assert.Equal(t, "SRE", resp[0]["jobTitle"])

	assert.Equal(t, "old", resp[1]["analysisId"])
	assert.NotContains(t, resp[1], "overallScore")
}
