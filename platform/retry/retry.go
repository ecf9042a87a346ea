// Package retry provides bounded retries for I/O at the edge of the application.
// This is part of the platform layer and contains no business logic.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ops_reporting_backend/platform/logger"
)

// permanentError marks a failure that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs fn up to attempts times. The wait before attempt n+1 is n*n*baseDelay.
// Context cancellation stops both the loop and any pending wait.
func Do(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = err
		if log != nil {
			log.FetchRetry(name, attempt, err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
