package resumes

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new resume.
func (r *PGRepo) Create(ctx context.Context, resume Resume) error {
	const query = `
INSERT INTO resumes (
    id,
    user_id,
    file_name,
    content_type,
    size_bytes,
    raw_text,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		resume.ID,
		resume.UserID,
		resume.FileName,
		resume.ContentType,
		resume.SizeBytes,
		resume.RawText,
		resume.CreatedAt,
	)
	return err
}

// GetByID returns a resume by ID scoped to its owner. Soft-deleted resumes
// are treated as missing.
func (r *PGRepo) GetByID(ctx context.Context, userID, resumeID string) (Resume, error) {
	const query = `
SELECT id, user_id, file_name, content_type, size_bytes, raw_text, created_at, updated_at, deleted_at
FROM resumes
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	var resume Resume
	var deletedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, resumeID, userID).Scan(
		&resume.ID,
		&resume.UserID,
		&resume.FileName,
		&resume.ContentType,
		&resume.SizeBytes,
		&resume.RawText,
		&resume.CreatedAt,
		&resume.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Resume{}, ErrNotFound
		}
		return Resume{}, err
	}
	if deletedAt.Valid {
		resume.DeletedAt = &deletedAt.Time
	}
	return resume, nil
}

// ListByUser returns resumes for a user, newest first. The raw text column is
// skipped to keep list responses light.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	const query = `
SELECT id, user_id, file_name, content_type, size_bytes, created_at, updated_at
FROM resumes
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := []Resume{}
	for rows.Next() {
		var resume Resume
		if err := rows.Scan(
			&resume.ID,
			&resume.UserID,
			&resume.FileName,
			&resume.ContentType,
			&resume.SizeBytes,
			&resume.CreatedAt,
			&resume.UpdatedAt,
		); err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	return resumes, rows.Err()
}

// Delete soft-deletes a resume.
func (r *PGRepo) Delete(ctx context.Context, userID, resumeID string) error {
	const query = `
UPDATE resumes SET deleted_at = NOW(), updated_at = NOW()
WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`

	res, err := r.DB.ExecContext(ctx, query, resumeID, userID)
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

var _ Repo = (*PGRepo)(nil)
