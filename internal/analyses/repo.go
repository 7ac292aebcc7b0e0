package analyses

import (
	"context"
	"time"
)

// Repo defines persistence operations for analysis jobs. The core has no
// knowledge of the storage schema behind it.
type Repo interface {
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, analysisID string) (Analysis, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error
	SaveArtifacts(ctx context.Context, analysisID, rawStage1, rawStage2 string) error
	Complete(ctx context.Context, analysisID string, result StructuredAnalysis, completedAt time.Time) error
	Fail(ctx context.Context, analysisID, code, message string, retryable bool, completedAt time.Time) error
}
