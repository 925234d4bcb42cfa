// Package resilience provides retry with exponential backoff and transient
// error classification for the fetch engine.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls per-endpoint retry behavior.
type RetryConfig struct {
	// Attempts is the total number of tries per endpoint, including the
	// first. Default: 3.
	Attempts int

	// BaseDelay is the backoff before the first retry; each subsequent
	// retry doubles it. Default: 1s (so 1s, 2s, 4s).
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff. Default: 30s.
	MaxDelay time.Duration

	// JitterFraction widens each delay by ±fraction. Default: 0.2.
	JitterFraction float64

	// OnRetry is invoked before each backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the retry settings used for source endpoints.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:       3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.2,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts <= 0 {
		c.Attempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// Backoff returns the sleep before retry number attempt (0-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	c = c.withDefaults()
	d := float64(c.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	if c.JitterFraction > 0 {
		d += (rand.Float64()*2 - 1) * d * c.JitterFraction
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// DoVal runs fn up to Attempts times, sleeping Backoff between tries.
// Non-transient errors and context cancellation stop retries immediately.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) {
			return zero, lastErr
		}
		if attempt >= cfg.Attempts-1 {
			break
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		timer := time.NewTimer(cfg.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// RetryLogger returns an OnRetry callback that logs each retry.
func RetryLogger(source, endpoint string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying fetch",
			zap.String("source", source),
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
