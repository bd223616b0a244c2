// Package retry runs an operation with exponential backoff until it
// succeeds, fails with a non-retryable error, runs out of attempts, or its
// context is canceled.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Config controls the number of attempts and the delay between them.
type Config struct {
	// Attempts is the total number of calls, including the first one.
	Attempts int
	// InitialBackoff is the delay before the second attempt; it doubles for
	// each attempt after that.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay. Zero means no cap.
	MaxBackoff time.Duration
}

// DefaultConfig is used by the backend client.
func DefaultConfig() Config {
	return Config{
		Attempts:       3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}
}

// ShouldRetryFunc reports whether err is transient. A nil func retries
// every error.
type ShouldRetryFunc func(error) bool

// Do calls fn until it returns nil or a non-retryable error. When attempts
// are exhausted the last error is returned wrapped.
func Do(ctx context.Context, cfg Config, fn func() error, shouldRetry ShouldRetryFunc) error {
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, Backoff(cfg, attempt)); err != nil {
				return err
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		if shouldRetry != nil && !shouldRetry(err) {
			return err
		}
		lastErr = err
	}

	if attempts == 1 {
		return lastErr
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// Backoff returns the delay before the given retry (1 for the first retry).
func Backoff(cfg Config, retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	backoff := cfg.InitialBackoff
	for i := 1; i < retry; i++ {
		backoff *= 2
		if cfg.MaxBackoff > 0 && backoff >= cfg.MaxBackoff {
			return cfg.MaxBackoff
		}
	}
	if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return backoff
}

func sleep(ctx context.Context, d time.Duration) error {
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
