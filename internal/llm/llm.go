package llm

import (
	"context"
	"errors"
	"fmt"
)

// Tier selects which provider model handles a call. The fast tier does the
// bulk structural work; the enhanced tier rewrites narrative text.
type Tier string

const (
	TierFast     Tier = "fast"
	TierEnhanced Tier = "enhanced"
)

// Client abstracts the external language model provider. Implementations own
// network I/O and timeouts; callers treat the returned text as untrusted.
type Client interface {
	Invoke(ctx context.Context, prompt string, tier Tier) (string, error)
}

var (
	// ErrUnavailable covers network failures, auth failures and provider 5xx.
	ErrUnavailable = errors.New("model unavailable")
	// ErrTimeout is returned when a call exceeds its deadline.
	ErrTimeout = errors.New("model timeout")
	// ErrRateLimited is returned on provider 429 responses.
	ErrRateLimited = errors.New("model rate limited")
	// ErrBadRequest covers provider 4xx responses that retrying cannot fix.
	ErrBadRequest = errors.New("model rejected request")
)

// PlaceholderClient stands in when no provider is configured; every call
// fails with ErrUnavailable.
type PlaceholderClient struct{}

func (PlaceholderClient) Invoke(ctx context.Context, prompt string, tier Tier) (string, error) {
	return "", fmt.Errorf("%w: llm provider not configured", ErrUnavailable)
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrBadRequest) {
		return false
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
