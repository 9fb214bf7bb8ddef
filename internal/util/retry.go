package util

import (
	"context"
	"errors"
	"time"
)

// RetryErrWithBackoff calls fn up to maxTries times, sleeping backoff,
// 2*backoff, 4*backoff... between attempts. Context cancellation ends the
// loop immediately and is returned as-is, never wrapped.
func RetryErrWithBackoff(ctx context.Context, maxTries int, backoff time.Duration, fn func(context.Context) error) error {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err

		if i < maxTries-1 && backoff > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff << i):
			}
		}
	}
	return lastErr
}
