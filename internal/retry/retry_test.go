package retry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"iconsort/internal/config"
	"iconsort/internal/retry"
	"iconsort/internal/services"
)

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestBackoffSchedule(t *testing.T) {
	p := retry.Default()
	want := []time.Duration{
		1 * time.Second,
		1500 * time.Millisecond,
		2250 * time.Millisecond,
		3375 * time.Millisecond,
	}
	for i, w := range want {
		if got := p.Backoff(i + 1); got != w {
			t.Fatalf("Backoff(%d) = %s, want %s", i+1, got, w)
		}
	}
	if got := p.Backoff(20); got != 10*time.Second {
		t.Fatalf("expected cap at 10s, got %s", got)
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := retry.Default()
	p.Sleep = sleeper.sleep

	calls := 0
	got, err := retry.Do(context.Background(), p, func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", services.Wrap(services.ErrTransient, "classify", "call", "backend busy", nil)
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if got != "ok" || calls != 3 {
		t.Fatalf("unexpected result %q after %d calls", got, calls)
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != time.Second || sleeper.delays[1] != 1500*time.Millisecond {
		t.Fatalf("unexpected delays %v", sleeper.delays)
	}
}

func TestDoStopsOnConfigurationError(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := retry.Default()
	p.Sleep = sleeper.sleep

	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, services.Wrap(services.ErrConfiguration, "classify", "call", "model not found", nil)
	})
	if !services.IsFatal(err) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 || len(sleeper.delays) != 0 {
		t.Fatalf("expected a single attempt without sleeping, got calls=%d sleeps=%d", calls, len(sleeper.delays))
	}
}

func TestDoDoesNotRetryUnknownErrors(t *testing.T) {
	p := retry.Default()
	p.Sleep = (&recordingSleeper{}).sleep
	calls := 0
	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one attempt, got calls=%d err=%v", calls, err)
	}
}

func TestDoTimesOutEachAttempt(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := retry.Default()
	p.Timeout = 20 * time.Millisecond
	p.Sleep = sleeper.sleep

	var calls atomic.Int32
	release := make(chan struct{})
	defer close(release)
	_, err := retry.Do(context.Background(), p, func(ctx context.Context) (string, error) {
		calls.Add(1)
		// Ignore ctx to prove the race discards a hung call.
		<-release
		return "late", nil
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(sleeper.delays))
	}
}

func TestDoStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retry.Default()
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}
	calls := 0
	_, err := retry.Do(ctx, p, func(context.Context) (int, error) {
		calls++
		return 0, services.Wrap(services.ErrTransient, "", "", "flaky", nil)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one attempt before cancellation, got %d", calls)
	}
}

func TestOnRetryObservesAttempts(t *testing.T) {
	p := retry.Default()
	p.MaxAttempts = 2
	p.Sleep = (&recordingSleeper{}).sleep
	var seen []int
	p.OnRetry = func(attempt int, _ time.Duration, _ error) { seen = append(seen, attempt) }

	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, services.ErrTimeout
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(seen) != 1 || seen[0] != 1 {
		t.Fatalf("unexpected retry notifications %v", seen)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Classify.RetryAttempts = 5
	cfg.Classify.TimeoutMS = 2500
	p := retry.FromConfig(cfg.Classify)
	if p.MaxAttempts != 5 || p.Timeout != 2500*time.Millisecond {
		t.Fatalf("unexpected policy %+v", p)
	}
	if p.Factor != 1.5 || p.MaxDelay != 10*time.Second {
		t.Fatalf("expected default backoff shape, got %+v", p)
	}
}

type waitHint struct{ wait time.Duration }

func (w waitHint) Error() string             { return "busy" }
func (w waitHint) Unwrap() error             { return services.ErrTransient }
func (w waitHint) RetryAfter() time.Duration { return w.wait }

func TestDoHonoursRetryAfterHint(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := retry.Default()
	p.Sleep = sleeper.sleep
	p.MaxAttempts = 3

	_, err := retry.Do(context.Background(), p, func(context.Context) (int, error) {
		return 0, waitHint{wait: 30 * time.Second}
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	want := []time.Duration{10 * time.Second, 10 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Fatalf("delay %d = %s, want %s", i, sleeper.delays[i], want[i])
		}
	}
}
