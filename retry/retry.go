// Package retry provides bounded retries with exponential backoff and full
// jitter, used to harden agent RPC and other bridge control operations
// against transient failures.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Defaults applied by Resolve when options are left zero.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 250 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
)

// Options configures retry behavior.
type Options struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the backoff base used for the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the jittered backoff bound.
	MaxDelay time.Duration

	// ShouldRetry, when set, is consulted after each failed attempt with the
	// error and the upcoming attempt number. Returning false stops retrying
	// and the error is returned as-is.
	ShouldRetry func(err error, nextAttempt int) bool
}

// Resolve fills zero fields with defaults and validates the result. Callers
// that schedule retryable work without immediately executing it should
// Resolve at configuration time to fail fast on bad options.
func Resolve(opts Options) (Options, error) {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay == 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.MaxDelay == 0 {
		opts.MaxDelay = DefaultMaxDelay
	}
	if err := Validate(opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks option invariants without applying defaults.
func Validate(opts Options) error {
	if opts.MaxAttempts < 1 {
		return fmt.Errorf("retry: max attempts must be at least 1, got %d", opts.MaxAttempts)
	}
	if opts.BaseDelay <= 0 {
		return fmt.Errorf("retry: base delay must be positive, got %s", opts.BaseDelay)
	}
	if opts.MaxDelay <= 0 {
		return fmt.Errorf("retry: max delay must be positive, got %s", opts.MaxDelay)
	}
	if opts.BaseDelay > opts.MaxDelay {
		return fmt.Errorf("retry: base delay %s exceeds max delay %s", opts.BaseDelay, opts.MaxDelay)
	}
	return nil
}

// JitterBackoff returns a full-jitter delay for the given attempt: a uniform
// random duration in [0, min(max, base*2^attempt)]. The achievable upper
// bound never decreases as the attempt number grows.
func JitterBackoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	bound := float64(base) * math.Pow(2, float64(attempt))
	if bound > float64(max) {
		bound = float64(max)
	}
	if bound <= 0 {
		return 0
	}
	return time.Duration(rand.Float64() * bound)
}

// Do calls fn with an attempt number starting at 1, retrying failures with
// full-jitter backoff until the attempts are exhausted or ShouldRetry
// declines. The last attempt's error is returned verbatim. Invalid options
// are reported eagerly and are never retried.
func Do(ctx context.Context, fn func(ctx context.Context, attempt int) error, opts Options) error {
	resolved, err := Resolve(opts)
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 1; attempt <= resolved.MaxAttempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == resolved.MaxAttempts {
			break
		}
		if resolved.ShouldRetry != nil && !resolved.ShouldRetry(lastErr, attempt+1) {
			break
		}
		if err := sleep(ctx, JitterBackoff(attempt, resolved.BaseDelay, resolved.MaxDelay)); err != nil {
			return err
		}
	}
	return lastErr
}

// DoValue is the value-returning variant of Do. This is a package-level
// generic function because Go does not allow generic methods on non-generic
// receiver types.
func DoValue[T any](ctx context.Context, fn func(ctx context.Context, attempt int) (T, error), opts Options) (T, error) {
	var out T
	err := Do(ctx, func(ctx context.Context, attempt int) error {
		var fnErr error
		out, fnErr = fn(ctx, attempt)
		return fnErr
	}, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// sleep waits for the given duration unless the context is canceled first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
