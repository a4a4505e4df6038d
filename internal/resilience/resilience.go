// Package resilience provides fault-tolerance patterns for outbound calls:
// retry with exponential backoff and a circuit breaker.
package resilience

import (
	"context"
	"math"
	"time"

	"github.com/sony/gobreaker"
)

// Config holds resilience parameters.
type Config struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// BaseDelay is the first backoff; attempt n waits BaseDelay × 2^n.
	BaseDelay time.Duration
	// AttemptTimeout bounds each individual try.
	AttemptTimeout time.Duration
}

// DefaultConfig matches the delivery contract for third-party senders:
// up to 3 attempts, exponential delay, 30-second hard timeout per attempt.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		AttemptTimeout: 30 * time.Second,
	}
}

// Retry executes fn with exponential backoff, bounding each attempt with
// AttemptTimeout. It respects context cancellation and returns the last
// error once attempts are exhausted, together with how many attempts ran.
func Retry(ctx context.Context, cfg Config, fn func(ctx context.Context) error) (int, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if cfg.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
		}
		lastErr = fn(attemptCtx)
		cancel()
		if lastErr == nil {
			return attempt + 1, nil
		}

		if attempt < cfg.MaxAttempts-1 {
			wait := time.Duration(math.Pow(2, float64(attempt))) * cfg.BaseDelay
			select {
			case <-ctx.Done():
				return attempt + 1, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return cfg.MaxAttempts, lastErr
}

// NewCircuitBreaker creates a circuit breaker with sensible defaults for
// third-party sender endpoints.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,                // half-open: allow 3 requests
		Interval:    30 * time.Second, // closed: reset counters every 30s
		Timeout:     10 * time.Second, // open -> half-open after 10s
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}
