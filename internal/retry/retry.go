// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs a fallible call under an attempt budget with
// exponential backoff and a per-attempt timeout.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// BackoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var BackoffBase = time.Second

const defaultAttempts = 5

// Policy configures Do.
type Policy struct {
	// Attempts is the total number of calls, including the first (default 5).
	Attempts int

	// Timeout bounds each attempt. Zero means no per-attempt deadline.
	// An attempt that runs out of time is retried.
	Timeout time.Duration

	// Name labels log lines (e.g. "extract").
	Name string

	// Logger receives one warning per failed attempt. Nil disables logging.
	Logger *zap.Logger
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it immediately. Nil stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Budget returns the longest Do can run under p: every attempt hitting its
// timeout plus every backoff. Zero Timeout means attempts are unbounded and
// Budget returns zero.
func (p Policy) Budget() time.Duration {
	if p.Timeout <= 0 {
		return 0
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	total := time.Duration(attempts) * p.Timeout
	for attempt := 1; attempt < attempts; attempt++ {
		total += time.Duration(math.Pow(2, float64(attempt-1))) * BackoffBase
	}
	return total
}

// Do calls fn until it succeeds, returns a Permanent error, or the attempt
// budget runs out. Backoff doubles from BackoffBase: 1x, 2x, 4x, ...
// Cancellation of the parent context stops the loop with ctx.Err().
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * BackoffBase
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}

		v, err := callOnce(ctx, p.Timeout, fn)
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if IsPermanent(err) {
			return zero, err
		}
		lastErr = err
		if p.Logger != nil {
			p.Logger.Warn("attempt failed",
				zap.String("call", p.Name),
				zap.Int("attempt", attempt+1),
				zap.Int("budget", attempts),
				zap.Error(err))
		}
	}
	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

func callOnce[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(attemptCtx)
	if err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return v, fmt.Errorf("attempt timed out after %v: %w", timeout, err)
	}
	return v, err
}
