package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        5 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts: got %d, want 3", attempts)
	}
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func(context.Context) error {
		attempts++
		return fatal
	}, func(err error) bool { return !errors.Is(err, fatal) })
	if !errors.Is(err, fatal) {
		t.Fatalf("err: got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts: got %d, want 1", attempts)
	}
}

func TestRetryExhaustsBudget(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), fastRetryConfig(), func(context.Context) error {
		attempts++
		return errors.New("still broken")
	}, nil)
	if err == nil {
		t.Fatal("expected final error")
	}
	if attempts != 4 {
		t.Fatalf("attempts: got %d, want 4 (initial + 3 retries)", attempts)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, fastRetryConfig(), func(context.Context) error {
		return errors.New("transient")
	}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err: got %v", err)
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        40 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	if got := cfg.Backoff(0); got != 10*time.Millisecond {
		t.Fatalf("attempt 0: %v", got)
	}
	if got := cfg.Backoff(1); got != 20*time.Millisecond {
		t.Fatalf("attempt 1: %v", got)
	}
	if got := cfg.Backoff(5); got != 40*time.Millisecond {
		t.Fatalf("attempt 5 should cap: %v", got)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
	})

	if cb.Allow() != nil {
		t.Fatal("closed breaker should allow")
	}
	cb.RecordFailure()
	cb.RecordFailure()

	if cb.State() != CircuitOpen {
		t.Fatalf("state after failures: %s", cb.State())
	}
	if cb.Allow() == nil {
		t.Fatal("open breaker should reject")
	}

	time.Sleep(15 * time.Millisecond)
	if cb.Allow() != nil {
		t.Fatal("breaker should half-open after timeout")
	}
	cb.RecordSuccess()
	if cb.State() != CircuitClosed {
		t.Fatalf("state after recovery: %s", cb.State())
	}
}

func TestCircuitBreakerReopensOnHalfOpenFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          5 * time.Millisecond,
	})

	cb.RecordFailure()
	time.Sleep(10 * time.Millisecond)
	if cb.Allow() != nil {
		t.Fatal("breaker should half-open after timeout")
	}
	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Fatalf("half-open failure should reopen: %s", cb.State())
	}
}
