package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/graph-pattern-predictor/internal/core/domain"
	"github.com/sony/gobreaker/v2"
)

var errBusy = errors.New("endpoint busy")

func retryBusy(err error) Classification {
	return Classify(err, func(err error) bool { return errors.Is(err, errBusy) })
}

type observerFake struct {
	mu      sync.Mutex
	retries map[string]int
	states  []string
}

func (o *observerFake) ObserveRetry(operation string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.retries == nil {
		o.retries = map[string]int{}
	}
	o.retries[operation]++
}

func (o *observerFake) ObserveBreakerState(_ string, state string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, state)
}

func fastRetries(attempts int) Config {
	return Config{
		RetryMaxAttempts:    attempts,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
	}
}

func TestExecuteRetriesTransientFailure(t *testing.T) {
	observer := &observerFake{}
	exec := NewExecutor(fastRetries(3), WithObserver(observer))

	attempts := 0
	err := exec.Execute(context.Background(), "sparql.select", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBusy
		}
		return nil
	}, retryBusy)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	if observer.retries["sparql.select"] != 2 {
		t.Fatalf("expected 2 observed retries, got %v", observer.retries)
	}
}

func TestExecuteDoesNotRetryPermanentFailure(t *testing.T) {
	exec := NewExecutor(fastRetries(3))

	attempts := 0
	errBadQuery := errors.New("parse error")
	err := exec.Execute(context.Background(), "sparql.select", func(context.Context) error {
		attempts++
		return errBadQuery
	}, retryBusy)
	if !errors.Is(err, errBadQuery) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteStopsRetryingWhenContextEnds(t *testing.T) {
	cfg := fastRetries(5)
	cfg.RetryInitialBackoff = time.Second
	cfg.RetryMaxBackoff = time.Second
	exec := NewExecutor(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := exec.Execute(ctx, "sparql.select", func(context.Context) error {
		attempts++
		cancel()
		return errBusy
	}, retryBusy)
	if !errors.Is(err, errBusy) {
		t.Fatalf("expected last call error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	observer := &observerFake{}
	cfg := fastRetries(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 2
	cfg.BreakerFailureRatio = 0.5
	cfg.BreakerOpenTimeout = time.Minute
	cfg.BreakerHalfOpenMaxCalls = 1
	exec := NewExecutor(cfg, WithObserver(observer))

	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "sparql.select", func(context.Context) error {
			return errBusy
		}, retryBusy)
		if !errors.Is(err, errBusy) {
			t.Fatalf("iteration %d: expected busy error, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "sparql.select", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, retryBusy)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if len(observer.states) != 1 || observer.states[0] != "open" {
		t.Fatalf("expected one transition to open, got %v", observer.states)
	}
}

func TestCancelledCallsDoNotTripBreaker(t *testing.T) {
	cfg := fastRetries(1)
	cfg.BreakerEnabled = true
	cfg.BreakerMinRequests = 1
	cfg.BreakerFailureRatio = 0.1
	exec := NewExecutor(cfg)

	for i := 0; i < 3; i++ {
		_ = exec.Execute(context.Background(), "sparql.select", func(context.Context) error {
			return context.DeadlineExceeded
		}, retryBusy)
	}
	called := false
	err := exec.Execute(context.Background(), "sparql.select", func(context.Context) error {
		called = true
		return nil
	}, retryBusy)
	if err != nil || !called {
		t.Fatalf("expected closed breaker, err=%v called=%v", err, called)
	}
}

func TestDoReturnsValueAfterRetry(t *testing.T) {
	exec := NewExecutor(fastRetries(2))

	calls := 0
	got, err := Do(context.Background(), exec, "sparql.select", func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errBusy
		}
		return 42, nil
	}, retryBusy)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if got != 42 || calls != 2 {
		t.Fatalf("expected 42 after 2 calls, got %d after %d", got, calls)
	}
}

func TestDoWithoutExecutorCallsThrough(t *testing.T) {
	got, err := Do(context.Background(), nil, "sparql.select", func(context.Context) (string, error) {
		return "ok", nil
	}, nil)
	if err != nil || got != "ok" {
		t.Fatalf("expected pass-through call, got %q err=%v", got, err)
	}
}

func TestBackoffGrowsToCap(t *testing.T) {
	cfg := Config{
		RetryMaxAttempts:    5,
		RetryInitialBackoff: 100 * time.Millisecond,
		RetryMaxBackoff:     300 * time.Millisecond,
		RetryMultiplier:     2,
	}.withDefaults()

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond}
	for i, w := range want {
		if got := cfg.backoff(i + 1); got != w {
			t.Fatalf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestWithDefaultsKeepsBreakerSwitch(t *testing.T) {
	cfg := Config{RetryMaxBackoff: time.Millisecond, RetryInitialBackoff: time.Second}.withDefaults()
	if cfg.BreakerEnabled {
		t.Fatalf("expected breaker to stay disabled")
	}
	if cfg.RetryMaxAttempts != 3 || cfg.BreakerMinRequests != 20 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.RetryMaxBackoff != time.Second {
		t.Fatalf("expected max backoff raised to initial, got %v", cfg.RetryMaxBackoff)
	}
}

func TestAsTemporary(t *testing.T) {
	if err := AsTemporary("sparql select", errBusy, retryBusy); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary kind, got %v", err)
	}
	if err := AsTemporary("sparql select", gobreaker.ErrOpenState, nil); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open breaker as temporary, got %v", err)
	}
	permanentErr := errors.New("bad query")
	if err := AsTemporary("sparql select", permanentErr, retryBusy); err != permanentErr {
		t.Fatalf("expected permanent error unchanged, got %v", err)
	}
	if err := AsTemporary("sparql select", context.DeadlineExceeded, retryBusy); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline unchanged, got %v", err)
	}
}
