package notify

import (
	"context"
	"time"

	"shiftlog/internal/config"
)

// retry runs op up to cfg.Attempts times with exponential backoff between
// attempts. It stops early when retryable reports false or ctx is done.
// onWait, when set, is called before each sleep.
func retry(ctx context.Context, cfg config.RetryConfig, op func(attempt int) error, retryable func(error) bool, onWait func(attempt int, delay time.Duration, err error)) error {
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	multiplier := backoffMultiplier(cfg)
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if onWait != nil {
			onWait(attempt, delay, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = nextDelay(cfg, delay, multiplier)
	}
	return err
}

// Backoff is the total time retry sleeps between attempts when every
// attempt fails.
func Backoff(cfg config.RetryConfig) time.Duration {
	multiplier := backoffMultiplier(cfg)
	var total time.Duration
	delay := cfg.InitialDelay
	for attempt := 1; attempt < cfg.Attempts; attempt++ {
		total += delay
		delay = nextDelay(cfg, delay, multiplier)
	}
	return total
}

func backoffMultiplier(cfg config.RetryConfig) float64 {
	if cfg.Multiplier < 1 {
		return 1
	}
	return cfg.Multiplier
}

func nextDelay(cfg config.RetryConfig, delay time.Duration, multiplier float64) time.Duration {
	delay = time.Duration(float64(delay) * multiplier)
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	return delay
}
