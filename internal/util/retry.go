package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// maxBackoff caps the wait between two attempts.
const maxBackoff = 10 * time.Second

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. RetryWithBackoff stops at once
// and returns err unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryWithBackoff calls fn until it succeeds, returns a Permanent error, or
// has run maxRetries+1 times. Waits double from base up to maxBackoff. fn
// receives the 0-indexed attempt number.
func RetryWithBackoff(ctx context.Context, maxRetries int, base time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(lastErr, &perm) {
			return perm.err
		}
		if attempt == maxRetries {
			break
		}

		wait := base << attempt
		if wait <= 0 || wait > maxBackoff {
			wait = maxBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}
