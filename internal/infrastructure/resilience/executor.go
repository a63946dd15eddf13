package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Observer is told about retries and breaker transitions.
type Observer interface {
	ObserveRetry(operation string)
	ObserveBreakerState(operation, state string)
}

type Option func(*Executor)

func WithObserver(o Observer) Option {
	return func(e *Executor) { e.observer = o }
}

// Executor runs endpoint calls behind a per-operation circuit breaker with
// bounded exponential-backoff retries.
type Executor struct {
	cfg      Config
	observer Observer

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[struct{}]
}

func NewExecutor(cfg Config, opts ...Option) *Executor {
	e := &Executor{
		cfg:      cfg.withDefaults(),
		breakers: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Execute(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	if fn == nil {
		return fmt.Errorf("resilience: operation callback is nil")
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	if classify == nil {
		classify = func(error) Classification { return permanent }
	}

	attempt := func() error { return e.retry(ctx, operation, fn, classify) }
	if !e.cfg.BreakerEnabled {
		return attempt()
	}
	_, err := e.breaker(operation, classify).Execute(func() (struct{}, error) {
		return struct{}{}, attempt()
	})
	return err
}

// Do is Execute for calls that produce a value. A nil executor calls fn once.
func Do[T any](ctx context.Context, e *Executor, operation string, fn func(context.Context) (T, error), classify Classifier) (T, error) {
	if e == nil {
		return fn(ctx)
	}
	var out T
	err := e.Execute(ctx, operation, func(callCtx context.Context) error {
		v, err := fn(callCtx)
		if err == nil {
			out = v
		}
		return err
	}, classify)
	return out, err
}

func (e *Executor) retry(ctx context.Context, operation string, fn func(context.Context) error, classify Classifier) error {
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= e.cfg.RetryMaxAttempts || !classify(err).Retryable {
			return err
		}

		wait := e.cfg.backoff(attempt)
		slog.Warn("retry_attempt",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", e.cfg.RetryMaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		if e.observer != nil {
			e.observer.ObserveRetry(operation)
		}
		if !sleep(ctx, wait) {
			return err
		}
	}
}

func (e *Executor) breaker(operation string, classify Classifier) *gobreaker.CircuitBreaker[struct{}] {
	e.mu.Lock()
	defer e.mu.Unlock()

	if b, ok := e.breakers[operation]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        operation,
		MaxRequests: e.cfg.BreakerHalfOpenMaxCalls,
		Timeout:     e.cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= e.cfg.BreakerMinRequests &&
				float64(counts.TotalFailures) >= e.cfg.BreakerFailureRatio*float64(counts.Requests)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !classify(err).RecordFailure
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "operation", name, "from", from.String(), "to", to.String())
			if e.observer != nil {
				e.observer.ObserveBreakerState(name, to.String())
			}
		},
	})
	e.breakers[operation] = b
	return b
}

func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// sleep waits d or until ctx is done, reporting whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
