package users

import (
	"context"
	"errors"
	"strings"
)

// Service contains business logic for user accounts.
type Service struct {
	Repo Repo
}

// NewService constructs a Service.
func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// Upsert persists the identity returned by the OAuth provider so resume and
// analysis ownership stays stable across sign-ins.
func (s *Service) Upsert(ctx context.Context, sub, email, name, picture string) error {
	if s == nil || s.Repo == nil {
		return errors.New("users service not configured")
	}
	if strings.TrimSpace(sub) == "" {
		return errors.New("user id is required")
	}
	return s.Repo.Upsert(ctx, User{
		ID:      sub,
		Email:   strings.TrimSpace(email),
		Name:    strings.TrimSpace(name),
		Picture: strings.TrimSpace(picture),
	})
}

// GetByID returns a user by ID.
func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}
