// Package dispatch runs keyed work through a bounded, paced pool.
//
// Keys are split into slices of Width. Slices run one after another with
// BatchDelay between them; inside a slice every call runs concurrently and
// starts are staggered by Stagger. The pacing keeps a local inference
// backend from seeing request bursts larger than the configured width.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"iconsort/internal/config"
	"iconsort/internal/logging"
	"iconsort/internal/services"
)

// Pacing configures a Pool.
type Pacing struct {
	Width      int
	BatchDelay time.Duration
	Stagger    time.Duration
}

// PacingFromConfig reads width and delays from the classify section.
func PacingFromConfig(c config.Classify) Pacing {
	return Pacing{
		Width:      c.MaxConcurrent,
		BatchDelay: time.Duration(c.BatchDelayMS) * time.Millisecond,
		Stagger:    time.Duration(c.StaggerMS) * time.Millisecond,
	}
}

// Result is the outcome of one keyed call.
type Result[T any] struct {
	Value T
	Err   error
}

// Progress observes completed calls.
type Progress func(done, total int)

// Pool holds pacing and the sleep hook. It is stateless between runs and safe
// for concurrent use.
type Pool struct {
	pacing Pacing
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

// Option customizes a Pool.
type Option func(*Pool)

// WithSleeper replaces the pacing sleep, mainly for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Pool) { p.sleep = sleep }
}

// NewPool builds a pool. Width below 1 is treated as 1.
func NewPool(pacing Pacing, logger *slog.Logger, opts ...Option) *Pool {
	if pacing.Width < 1 {
		pacing.Width = 1
	}
	p := &Pool{pacing: pacing, sleep: sleepCtx, logger: logging.NewComponentLogger(logger, "dispatch")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Width reports the configured concurrency.
func (p *Pool) Width() int { return p.pacing.Width }

// Map calls fn once per key and collects results by key.
//
// Cancelling ctx stops new slices (and unstarted calls in the current
// slice); calls already running finish on a context detached from ctx, so
// they are bounded only by their own timeouts. A fatal error from any call
// lets the current slice finish and then stops the run. The returned error
// is ctx.Err() or the first fatal error; per-key failures live in the map.
func Map[T any](ctx context.Context, p *Pool, keys []string, fn func(ctx context.Context, key string) (T, error), progress Progress) (map[string]Result[T], error) {
	var (
		mu       sync.Mutex
		results  = make(map[string]Result[T], len(keys))
		fatalErr error
		done     int
	)
	detached := context.WithoutCancel(ctx)
	width := p.pacing.Width

	for start := 0; start < len(keys); start += width {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		if start > 0 {
			if err := p.sleep(ctx, p.pacing.BatchDelay); err != nil {
				return results, err
			}
		}

		end := min(start+width, len(keys))
		var group errgroup.Group
		group.SetLimit(width)
		var stopped error
		for i, key := range keys[start:end] {
			if i > 0 {
				if err := p.sleep(ctx, p.pacing.Stagger); err != nil {
					stopped = err
					break
				}
			}
			group.Go(func() error {
				value, err := fn(detached, key)
				mu.Lock()
				defer mu.Unlock()
				results[key] = Result[T]{Value: value, Err: err}
				if err != nil && services.IsFatal(err) && fatalErr == nil {
					fatalErr = err
				}
				done++
				if progress != nil {
					progress(done, len(keys))
				}
				return nil
			})
		}
		_ = group.Wait()

		if stopped != nil {
			return results, stopped
		}
		if fatalErr != nil {
			p.logger.Debug("dispatch stopped on fatal error",
				logging.String(logging.FieldEventType, "dispatch_fatal"),
				logging.Int("completed", len(results)),
				logging.Int("total", len(keys)),
			)
			return results, fatalErr
		}
	}
	return results, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
