package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres. The structured result and raw stage
// artifacts live in JSONB/text columns; see the embedded migrations.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, resume_id, user_id, job_title, job_description, provider,
	fast_model, enhanced_model, status, result, raw_stage1, raw_stage2,
	error_code, error_message, retryable, created_at, started_at, completed_at, updated_at`

// Create inserts a new analysis row.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO analyses (
			id, resume_id, user_id, job_title, job_description, provider,
			fast_model, enhanced_model, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		analysis.ID, analysis.ResumeID, analysis.UserID,
		analysis.JobTitle, analysis.JobDescription, analysis.Provider,
		analysis.FastModel, analysis.EnhancedModel, analysis.Status,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis by its ID.
func (r *PGRepo) GetByID(ctx context.Context, analysisID string) (Analysis, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1`, analysisID)
	return scanAnalysis(row)
}

// ListByUser returns a user's analyses newest first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+analysisColumns+` FROM analyses
		 WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := []Analysis{}
	for rows.Next() {
		analysis, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, analysis)
	}
	return analyses, rows.Err()
}

// MarkProcessing moves an analysis into the processing state.
func (r *PGRepo) MarkProcessing(ctx context.Context, analysisID string, startedAt time.Time) error {
	return r.exec(ctx, `
		UPDATE analyses SET status = $2, started_at = $3, updated_at = NOW()
		WHERE id = $1`, analysisID, StatusProcessing, startedAt)
}

// SaveArtifacts stores the raw stage outputs.
func (r *PGRepo) SaveArtifacts(ctx context.Context, analysisID, rawStage1, rawStage2 string) error {
	return r.exec(ctx, `
		UPDATE analyses SET raw_stage1 = $2, raw_stage2 = $3, updated_at = NOW()
		WHERE id = $1`, analysisID, rawStage1, rawStage2)
}

// Complete stores the final result and marks the analysis completed.
func (r *PGRepo) Complete(ctx context.Context, analysisID string, result StructuredAnalysis, completedAt time.Time) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.exec(ctx, `
		UPDATE analyses SET status = $2, result = $3, completed_at = $4,
			error_code = NULL, error_message = NULL, retryable = NULL,
			updated_at = NOW()
		WHERE id = $1`, analysisID, StatusCompleted, payload, completedAt)
}

// Fail marks the analysis failed with a stable error code.
func (r *PGRepo) Fail(ctx context.Context, analysisID, code, message string, retryable bool, completedAt time.Time) error {
	return r.exec(ctx, `
		UPDATE analyses SET status = $2, error_code = $3, error_message = $4,
			retryable = $5, completed_at = $6, updated_at = NOW()
		WHERE id = $1`, analysisID, StatusFailed, code, message, retryable, completedAt)
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var (
		analysis     Analysis
		jobTitle     sql.NullString
		jobDesc      sql.NullString
		result       []byte
		rawStage1    sql.NullString
		rawStage2    sql.NullString
		errorCode    sql.NullString
		errorMessage sql.NullString
		retryable    sql.NullBool
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	err := row.Scan(
		&analysis.ID, &analysis.ResumeID, &analysis.UserID,
		&jobTitle, &jobDesc, &analysis.Provider,
		&analysis.FastModel, &analysis.EnhancedModel, &analysis.Status,
		&result, &rawStage1, &rawStage2,
		&errorCode, &errorMessage, &retryable,
		&analysis.CreatedAt, &startedAt, &completedAt, &analysis.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	if err != nil {
		return Analysis{}, err
	}
	analysis.JobTitle = jobTitle.String
	analysis.JobDescription = jobDesc.String
	analysis.RawStage1 = rawStage1.String
	analysis.RawStage2 = rawStage2.String
	if len(result) > 0 {
		var parsed StructuredAnalysis
		if err := json.Unmarshal(result, &parsed); err != nil {
			return Analysis{}, err
		}
		analysis.Result = &parsed
	}
	if errorCode.Valid {
		analysis.ErrorCode = &errorCode.String
	}
	if errorMessage.Valid {
		analysis.ErrorMessage = &errorMessage.String
	}
	if retryable.Valid {
		analysis.Retryable = &retryable.Bool
	}
	if startedAt.Valid {
		analysis.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		analysis.CompletedAt = &completedAt.Time
	}
	return analysis, nil
}

var _ Repo = (*PGRepo)(nil)
