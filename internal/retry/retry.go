// Package retry provides the exponential-backoff helper used by the
// Extract Worker's retry policy. The Block Iterator and Tip Tracker run
// their own backoff loops and do not use it.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures an exponential backoff run.
type Policy struct {
	// BaseDelay is the first retry delay; each subsequent delay doubles.
	BaseDelay time.Duration
	// MaxDelay caps the backoff; zero means no cap.
	MaxDelay time.Duration
	// MaxAttempts bounds the number of calls to Operation, including the
	// first. Zero means unlimited (bounded only by ctx or MaxElapsedTime).
	MaxAttempts int
	// MaxElapsedTime caps the total wall-clock time spent retrying. Zero
	// means unlimited.
	MaxElapsedTime time.Duration
}

func (p Policy) backoffFor(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.BaseDelay > 0 {
		b.InitialInterval = p.BaseDelay
	}
	b.Multiplier = 2
	b.RandomizationFactor = 0
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.MaxElapsedTime = p.MaxElapsedTime

	var bo backoff.BackOff = b
	if p.MaxAttempts > 0 {
		bo = backoff.WithMaxRetries(bo, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(bo, ctx)
}

// Do runs op until it succeeds, the policy is exhausted, or ctx is
// cancelled. onRetry, if non-nil, is called after every failed attempt,
// including the last one, with the attempt number (1-indexed) and its error.
func Do(ctx context.Context, policy Policy, onRetry func(attempt int, err error), op func() error) error {
	attempt := 0
	wrapped := func() error {
		attempt++
		err := op()
		if err != nil && onRetry != nil {
			onRetry(attempt, err)
		}
		return err
	}
	return backoff.Retry(wrapped, policy.backoffFor(ctx))
}
