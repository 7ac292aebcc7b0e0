package resumes

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-insight/internal/extract"
	"resume-insight/internal/shared/util"
)

// Service contains business logic for resumes.
type Service struct {
	Repo           Repo
	MaxUploadBytes int64
}

// Upload extracts text from the uploaded file and records the resume.
func (s *Service) Upload(ctx context.Context, userID, fileName, contentType string, r io.Reader) (Resume, error) {
	if userID == "" {
		return Resume{}, ErrInvalidInput
	}
	fileName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Resume{}, ErrInvalidInput
	}

	limit := s.MaxUploadBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return Resume{}, err
	}
	if int64(len(data)) > limit {
		return Resume{}, ErrInvalidInput
	}
	if len(data) == 0 {
		return Resume{}, ErrInvalidInput
	}

	text, err := extract.FromBytes(ctx, data, contentType, fileName)
	if err != nil {
		if errors.Is(err, extract.ErrUnsupported) {
			return Resume{}, ErrInvalidInput
		}
		return Resume{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Resume{}, ErrNoText
	}

	now := time.Now().UTC()
	resume := Resume{
		ID:          uuid.NewString(),
		UserID:      userID,
		FileName:    fileName,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		RawText:     text,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Repo.Create(ctx, resume); err != nil {
		return Resume{}, err
	}
	return resume, nil
}

// Get returns a resume scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, resumeID string) (Resume, error) {
	if userID == "" || resumeID == "" {
		return Resume{}, ErrInvalidInput
	}
	return s.Repo.GetByID(ctx, userID, resumeID)
}

// List returns resumes for a user, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Delete soft-deletes a resume.
func (s *Service) Delete(ctx context.Context, userID, resumeID string) error {
	if userID == "" || resumeID == "" {
		return ErrInvalidInput
	}
	return s.Repo.Delete(ctx, userID, resumeID)
}
