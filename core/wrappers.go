package core

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited wraps worker so each invocation first waits for a token from
// limiter. The concurrency limit still bounds how many tasks run at once; the
// limiter additionally bounds how often they start their real work.
//
// A wait error (cancelled context, or a burst smaller than one) fails the task
// without calling worker. A nil limiter returns worker unchanged.
func RateLimited[T, R any](limiter *rate.Limiter, worker Worker[T, R]) Worker[T, R] {
	if limiter == nil {
		return worker
	}
	return func(ctx context.Context, payload T) (R, error) {
		if err := limiter.Wait(ctx); err != nil {
			var zero R
			return zero, fmt.Errorf("simpleq: rate limit wait: %w", err)
		}
		return worker(ctx, payload)
	}
}
