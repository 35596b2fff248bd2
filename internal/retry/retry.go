// Package retry provides the bounded retry policy composed by every
// classification provider: per-attempt timeouts, exponential backoff with a
// cap, and an immediate stop on configuration-class failures.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"iconsort/internal/config"
	"iconsort/internal/services"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultFactor      = 1.5
)

// Policy describes how an operation is retried. The zero value performs a
// single attempt with no timeout.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	// Timeout bounds each attempt. Zero disables the per-attempt race.
	Timeout time.Duration
	// Retryable decides whether an error deserves another attempt. Nil uses
	// DefaultRetryable.
	Retryable func(error) bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry observes each scheduled retry.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Default returns the standard classification policy: three attempts with
// 1s, 1.5s, ... backoff capped at 10s.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Factor:      DefaultFactor,
	}
}

// FromConfig applies the classify section's attempt budget and timeout to
// the default policy.
func FromConfig(c config.Classify) Policy {
	p := Default()
	if c.RetryAttempts > 0 {
		p.MaxAttempts = c.RetryAttempts
	}
	p.Timeout = time.Duration(c.TimeoutMS) * time.Millisecond
	return p
}

// Backoff returns the delay before attempt+1, where attempt is 1-based.
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		return 0
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * math.Pow(factor, float64(attempt-1))
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// delayFor prefers a server-supplied Retry-After hint, capped at MaxDelay.
func (p Policy) delayFor(attempt int, err error) time.Duration {
	var hinted interface{ RetryAfter() time.Duration }
	if errors.As(err, &hinted) {
		if wait := hinted.RetryAfter(); wait > 0 {
			if p.MaxDelay > 0 && wait > p.MaxDelay {
				return p.MaxDelay
			}
			return wait
		}
	}
	return p.Backoff(attempt)
}

func (p Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 1
	}
	return p.MaxAttempts
}

// DefaultRetryable retries transient and timeout failures, including network
// timeouts that were not tagged, and never configuration failures or
// cancellation.
func DefaultRetryable(err error) bool {
	if err == nil || services.IsFatal(err) || errors.Is(err, context.Canceled) {
		return false
	}
	if services.IsRetryable(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Do runs fn until it succeeds, the attempt budget is spent, or an error is
// not retryable. Each attempt races fn against p.Timeout; a result arriving
// after its deadline is discarded.
func Do[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	retryable := p.Retryable
	if retryable == nil {
		retryable = DefaultRetryable
	}
	attempts := p.attempts()

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		value, err := runAttempt(ctx, p.Timeout, fn)
		if err == nil {
			return value, nil
		}
		lastErr = err
		if attempt == attempts || !retryable(err) {
			break
		}
		delay := p.delayFor(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	if attempts > 1 && retryable(lastErr) {
		return zero, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
	}
	return zero, lastErr
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	var zero T
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := fn(callCtx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case out := <-done:
		if out.err != nil && errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, timeoutError(timeout, out.err)
		}
		return out.value, out.err
	case <-timer.C:
		return zero, timeoutError(timeout, nil)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func timeoutError(timeout time.Duration, cause error) error {
	return services.Wrap(services.ErrTimeout, "", "attempt", fmt.Sprintf("no response within %s", timeout), cause)
}

func (p Policy) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if p.Sleep != nil {
		return p.Sleep(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
