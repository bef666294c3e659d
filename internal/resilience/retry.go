package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig shapes the backoff schedule for marketplace fetches.
type RetryConfig struct {
	// MaxAttempts counts every try including the first; 1 disables retries.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry; each further retry
	// multiplies it by Multiplier, capped at MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64

	// JitterFraction spreads each delay by up to this fraction either way so
	// concurrent batch fetches do not hammer the marketplace in lockstep.
	JitterFraction float64

	// ShouldRetry overrides the Retryable classifier when set.
	ShouldRetry func(error) bool

	// OnRetry observes each retry before its backoff sleep.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig is the schedule used when the marketplace config leaves
// retries unconfigured: three tries, half a second doubling up to 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.JitterFraction < 0 {
		cfg.JitterFraction = 0
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = Retryable
	}
	return cfg
}

// Do runs fn until it succeeds, fails permanently, exhausts the attempts, or
// the context ends. The last error comes back unchanged so callers can still
// inspect the StatusError underneath.
func Do[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !cfg.ShouldRetry(err) || attempt >= cfg.MaxAttempts {
			return zero, lastErr
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(cfg.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
}

// backoff computes the sleep before the retry following the given attempt.
func (cfg RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt-1))
	delay = math.Min(delay, float64(cfg.MaxBackoff))
	if cfg.JitterFraction > 0 {
		spread := delay * cfg.JitterFraction
		delay += (2*rand.Float64() - 1) * spread
	}
	return time.Duration(math.Max(delay, 0))
}
