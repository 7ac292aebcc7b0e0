package analyses

import (
	"context"
	"log"
	"time"

	"resume-insight/internal/llm"
)

const (
	llmMaxRetries     = 2
	llmRetryBaseDelay = 500 * time.Millisecond
)

// retryingClient retries transient provider failures with exponential
// backoff. Provider 4xx errors are never retried.
type retryingClient struct {
	base       llm.Client
	analysisID string
	requestID  string
	sleep      func(ctx context.Context, d time.Duration) error
}

func newRetryingClient(base llm.Client, analysisID, requestID string) llm.Client {
	if base == nil {
		return nil
	}
	return retryingClient{
		base:       base,
		analysisID: analysisID,
		requestID:  requestID,
		sleep:      sleepCtx,
	}
}

func (r retryingClient) Invoke(ctx context.Context, prompt string, tier llm.Tier) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= llmMaxRetries; attempt++ {
		if attempt > 0 {
			delay := llmRetryBaseDelay << (attempt - 1)
			log.Printf("llm retry attempt=%d tier=%s request_id=%s analysis_id=%s error=%s",
				attempt, tier, r.requestID, r.analysisID, sanitizeError(lastErr))
			if err := r.sleep(ctx, delay); err != nil {
				return "", err
			}
		}
		resp, err := r.base.Invoke(ctx, prompt, tier)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !llm.IsTransient(err) {
			return "", err
		}
	}
	return "", lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
