// Package retry runs operations with exponential backoff on transient failures of the
// stores and brokers the inbox talks to.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries     int           // Maximum number of retry attempts (0 = no retries)
	InitialBackoff time.Duration // Initial backoff duration
	MaxBackoff     time.Duration // Maximum backoff duration
	BackoffFactor  float64       // Multiplier for exponential backoff
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2.0,
	}
}

// Postgres SQLSTATE codes and classes worth another attempt.
var retryablePQCodes = map[pq.ErrorCode]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"53300": true, // too_many_connections
	"57P03": true, // cannot_connect_now
}

var retryableMessages = []string{
	"timeout",
	"connection refused",
	"connection reset",
	"broken pipe",
	"temporary",
	"leader not available",
	"not leader for partition",
	"too many connections",
	"try again",
}

// IsRetryable reports whether err is transient. Context cancellation and deadline
// errors are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return retryablePQCodes[pqErr.Code] || pqErr.Code.Class() == "08" // connection_exception
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temp interface{ Temporary() bool }
	if errors.As(err, &temp) && temp.Temporary() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "validation error") {
		return false
	}
	for _, s := range retryableMessages {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// WithRetry executes fn, retrying with exponential backoff while the error is retryable.
// A non-retryable error is returned at once; cancelling ctx stops the retries with ctx.Err().
func WithRetry(ctx context.Context, cfg Config, operation string, fn func() error) error {
	attempts := 0
	op := func() error {
		attempts++
		err := fn()
		if err != nil && !IsRetryable(err) {
			slog.Debug("Error is not retryable, failing immediately",
				"operation", operation,
				"error", err,
			)
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		slog.Warn("Operation failed, retrying",
			"operation", operation,
			"attempt", attempts,
			"max_attempts", cfg.MaxRetries+1,
			"backoff", next,
			"error", err,
		)
	}

	err := backoff.RetryNotify(op, newBackOff(ctx, cfg), notify)
	switch {
	case err == nil && attempts > 1:
		slog.Info("Operation succeeded after retry",
			"operation", operation,
			"attempt", attempts,
		)
	case err != nil && attempts > cfg.MaxRetries && ctx.Err() == nil:
		slog.Warn("Max retries exceeded",
			"operation", operation,
			"attempts", attempts,
			"error", err,
		)
	}
	return err
}

// newBackOff grows the delay from InitialBackoff by BackoffFactor up to MaxBackoff,
// with 25% jitter, for at most MaxRetries retries.
func newBackOff(ctx context.Context, cfg Config) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = cfg.BackoffFactor
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	b.Reset()

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(maxRetries)), ctx)
}
