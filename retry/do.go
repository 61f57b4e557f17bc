package retry

import (
	"context"
	"fmt"
)

// Do runs fn, retrying it according to the Retrier found in ctx (or a
// NoopRetrier if none was injected via ToContext). It returns as soon as fn
// succeeds, the retrier declines to retry, or the retrier's attempt budget
// is exhausted.
func Do[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	retrier := FromContextOrNoop(ctx)

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, fmt.Errorf("context cancelled: %w", ctx.Err())
		}

		if !retrier.ShouldRetry(err, attempt) {
			return zero, err
		}

		if maxAttempts := retrier.MaxAttempts(); maxAttempts > 0 && attempt >= maxAttempts {
			return zero, fmt.Errorf("max retry attempts (%d) reached: %w", maxAttempts, err)
		}

		if waitErr := retrier.Wait(ctx, attempt); waitErr != nil {
			return zero, fmt.Errorf("context cancelled: %w", waitErr)
		}
	}
}

// DoVoid is Do for operations that return only an error.
func DoVoid(ctx context.Context, fn func() error) error {
	_, err := Do(ctx, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
