package snack

import (
	"context"
	"log"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts (default: 3)
	BaseDelay  time.Duration // Initial delay between retries (default: 200ms)
	MaxDelay   time.Duration // Maximum delay between retries (default: 5s)
	Multiplier float64       // Delay multiplier for exponential backoff (default: 2.0)
	EnableLog  bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
		EnableLog:  true,
	}
}

type attemptFunc func(ctx context.Context) (*Snack, error)

// withRetry runs fn until it succeeds, fails permanently or runs out of
// attempts.
func withRetry(ctx context.Context, cfg RetryConfig, fn attemptFunc) (*Snack, error) {
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 && cfg.EnableLog {
				log.Printf("[Snack] Succeeded on attempt %d", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return nil, err
		}

		if attempt < cfg.MaxRetries {
			delay := backoff(attempt, cfg)
			if cfg.EnableLog {
				log.Printf("[Snack] Attempt %d failed (%v), retrying in %v...", attempt+1, err, delay)
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	if cfg.EnableLog {
		log.Printf("[Snack] All %d attempts failed", cfg.MaxRetries+1)
	}
	return nil, lastErr
}

// backoff is exponential with 80-120% jitter.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	delay *= 0.8 + rand.Float64()*0.4
	return time.Duration(delay)
}
