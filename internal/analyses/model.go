package analyses

import "time"

const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// AnalysisRequest is the immutable input to the analysis pipeline.
type AnalysisRequest struct {
	ResumeText     string
	JobTitle       string
	JobDescription string
}

// HasJobTarget reports whether a target job was supplied, which switches the
// pipeline from generic analysis to job-match analysis.
func (r AnalysisRequest) HasJobTarget() bool {
	return trimmedNonEmpty(r.JobTitle) || trimmedNonEmpty(r.JobDescription)
}

// Category classifies a section of the assessment.
type Category string

const (
	CategoryFormat   Category = "format"
	CategoryContent  Category = "content"
	CategoryKeywords Category = "keywords"
	CategoryImpact   Category = "impact"
)

// Known reports whether c is one of the fixed categories.
func (c Category) Known() bool {
	switch c {
	case CategoryFormat, CategoryContent, CategoryKeywords, CategoryImpact:
		return true
	}
	return false
}

// Relevance tiers a matched keyword's importance to the target job.
type Relevance string

const (
	RelevanceHigh   Relevance = "high"
	RelevanceMedium Relevance = "medium"
	RelevanceLow    Relevance = "low"
)

// Priority orders recommendations, most urgent first.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Section is one scored slice of the assessment.
type Section struct {
	Name     string   `json:"name"`
	Score    int      `json:"score"`
	Feedback string   `json:"feedback"`
	Category Category `json:"category"`
}

// KeywordMatch is a keyword found in the resume.
type KeywordMatch struct {
	Keyword   string    `json:"keyword"`
	Frequency int       `json:"frequency"`
	Relevance Relevance `json:"relevance"`
}

// Recommendation is one actionable improvement.
type Recommendation struct {
	Priority    Priority `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

// StructuredAnalysis is the canonical pipeline output. Every score field is
// an integer in [0,100]; list fields are never nil after normalization.
type StructuredAnalysis struct {
	OverallScore          int              `json:"overallScore"`
	ATSCompatibilityScore int              `json:"atsCompatibilityScore"`
	PersonalizedAdvice    string           `json:"personalizedAdvice"`
	Sections              []Section        `json:"sections"`
	Strengths             []string         `json:"strengths"`
	Improvements          []string         `json:"improvements"`
	KeywordMatches        []KeywordMatch   `json:"keywordMatches"`
	MissingKeywords       []string         `json:"missingKeywords"`
	Recommendations       []Recommendation `json:"recommendations"`

	// Job-match fields, populated only when a job target was supplied.
	MatchPercentage *int   `json:"matchPercentage,omitempty"`
	HirabilityScore *int   `json:"hirabilityScore,omitempty"`
	MatchAnalysis   string `json:"matchAnalysis,omitempty"`
}

// RawArtifacts keeps the unparsed model responses for audit and debugging.
// The caller decides whether to persist them.
type RawArtifacts struct {
	Stage1 string
	Stage2 string
}

// Analysis is a stored analysis job.
type Analysis struct {
	ID             string              `json:"id"`
	ResumeID       string              `json:"resumeId"`
	UserID         string              `json:"userId"`
	JobTitle       string              `json:"jobTitle,omitempty"`
	JobDescription string              `json:"jobDescription,omitempty"`
	Provider       string              `json:"provider"`
	FastModel      string              `json:"fastModel"`
	EnhancedModel  string              `json:"enhancedModel"`
	Status         string              `json:"status"`
	Result         *StructuredAnalysis `json:"result,omitempty"`
	RawStage1      string              `json:"-"`
	RawStage2      string              `json:"-"`
	ErrorCode      *string             `json:"errorCode,omitempty"`
	ErrorMessage   *string             `json:"errorMessage,omitempty"`
	Retryable      *bool               `json:"retryable,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
	StartedAt      *time.Time          `json:"startedAt,omitempty"`
	CompletedAt    *time.Time          `json:"completedAt,omitempty"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}
