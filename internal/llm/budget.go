package llm

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// budgetClient bounds concurrent outbound provider calls across all requests.
// A slot is held for the full duration of a call; a caller whose context is
// cancelled while waiting gets ctx.Err() without ever taking a slot, but a
// slot already spent on an in-flight call is not refunded early.
type budgetClient struct {
	base Client
	sem  *semaphore.Weighted
}

// WithBudget wraps base so that at most maxInFlight calls run concurrently.
// maxInFlight <= 0 disables the bound.
func WithBudget(base Client, maxInFlight int64) Client {
	if maxInFlight <= 0 {
		return base
	}
	return &budgetClient{
		base: base,
		sem:  semaphore.NewWeighted(maxInFlight),
	}
}

func (b *budgetClient) Invoke(ctx context.Context, prompt string, tier Tier) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)
	return b.base.Invoke(ctx, prompt, tier)
}
