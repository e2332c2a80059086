package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "dial" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func fastConfig(maxRetries int) Config {
	return Config{
		MaxRetries:     maxRetries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"timeout message", errors.New("read tcp: i/o timeout"), true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"kafka leader election", errors.New("[5] Leader Not Available: the cluster is in the middle of a leadership election"), true},
		{"net timeout", fmt.Errorf("wrapped: %w", timeoutErr{}), true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"connection exception class", &pq.Error{Code: "08006"}, true},
		{"unique violation", &pq.Error{Code: "23505"}, false},
		{"validation error", errors.New("validation error: until must be in the future"), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", fmt.Errorf("tenant pass: %w", context.DeadlineExceeded), false},
		{"generic error", errors.New("some random error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestWithRetry_Success(t *testing.T) {
	callCount := 0
	err := WithRetry(context.Background(), fastConfig(3), "test", func() error {
		callCount++
		return nil
	})
	if err != nil {
		t.Errorf("WithRetry() error = %v, want nil", err)
	}
	if callCount != 1 {
		t.Errorf("WithRetry() called function %d times, want 1", callCount)
	}
}

func TestWithRetry_RetryableError(t *testing.T) {
	callCount := 0
	err := WithRetry(context.Background(), fastConfig(2), "test", func() error {
		callCount++
		if callCount < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Errorf("WithRetry() error = %v, want nil", err)
	}
	if callCount != 3 {
		t.Errorf("WithRetry() called function %d times, want 3", callCount)
	}
}

func TestWithRetry_NonRetryableError(t *testing.T) {
	callCount := 0
	expectedErr := &pq.Error{Code: "23505"}
	err := WithRetry(context.Background(), fastConfig(3), "test", func() error {
		callCount++
		return expectedErr
	})
	if err != expectedErr {
		t.Errorf("WithRetry() error = %v, want %v", err, expectedErr)
	}
	if callCount != 1 {
		t.Errorf("WithRetry() called function %d times, want 1", callCount)
	}
}

func TestWithRetry_MaxRetriesExceeded(t *testing.T) {
	callCount := 0
	expectedErr := errors.New("connection timeout")
	err := WithRetry(context.Background(), fastConfig(2), "test", func() error {
		callCount++
		return expectedErr
	})
	if err != expectedErr {
		t.Errorf("WithRetry() error = %v, want %v", err, expectedErr)
	}
	if callCount != 3 { // 1 initial + 2 retries
		t.Errorf("WithRetry() called function %d times, want 3", callCount)
	}
}

func TestWithRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{
		MaxRetries:     10,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	err := WithRetry(ctx, cfg, "test", func() error {
		return errors.New("connection timeout")
	})
	if err != context.Canceled {
		t.Errorf("WithRetry() error = %v, want context.Canceled", err)
	}
}

func TestNewBackOff(t *testing.T) {
	cfg := Config{MaxRetries: 5, InitialBackoff: 100 * time.Millisecond, MaxBackoff: time.Second, BackoffFactor: 2.0}
	b := newBackOff(context.Background(), cfg)

	for attempt, base := range []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond, 800 * time.Millisecond, time.Second} {
		got := b.NextBackOff()
		lo, hi := time.Duration(float64(base)*0.75), time.Duration(float64(base)*1.25)
		if got < lo || got > hi {
			t.Errorf("NextBackOff() #%d = %v, want within [%v, %v]", attempt, got, lo, hi)
		}
	}
	if got := b.NextBackOff(); got != backoff.Stop {
		t.Errorf("NextBackOff() after MaxRetries = %v, want Stop", got)
	}
}

func TestNewBackOff_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := newBackOff(ctx, DefaultConfig()).NextBackOff(); got != backoff.Stop {
		t.Errorf("NextBackOff() on cancelled context = %v, want Stop", got)
	}
}

func TestWithRetry_NoRetries(t *testing.T) {
	callCount := 0
	err := WithRetry(context.Background(), fastConfig(0), "test", func() error {
		callCount++
		return errors.New("connection refused")
	})
	if err == nil || callCount != 1 {
		t.Errorf("WithRetry() = %v after %d calls, want error after 1", err, callCount)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxRetries != 3 || cfg.InitialBackoff != 100*time.Millisecond || cfg.MaxBackoff != 5*time.Second || cfg.BackoffFactor != 2.0 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
