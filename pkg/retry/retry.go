package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// IsRetryableFunc reports whether an attempt that failed with err should be retried.
type IsRetryableFunc func(error) bool

// Config holds the retry policy. The zero value retries nothing.
type Config struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// InitialBackoff is the wait before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps every wait.
	MaxBackoff time.Duration
	// BackoffMultiplier grows the wait between consecutive retries.
	BackoffMultiplier float64
	// Jitter adds up to half of the wait at random.
	Jitter bool
	// IsRetryable filters errors; nil retries every error.
	IsRetryable IsRetryableFunc
}

// DefaultConfig returns 3 retries with exponential backoff from 100ms to 30s.
func DefaultConfig() Config {
	return Config{
		MaxRetries:        3,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// WithMaxRetries returns a copy with the retry count set.
func (c Config) WithMaxRetries(maxRetries int) Config {
	c.MaxRetries = maxRetries
	return c
}

// WithInitialBackoff returns a copy with the first wait set.
func (c Config) WithInitialBackoff(backoff time.Duration) Config {
	c.InitialBackoff = backoff
	return c
}

// WithMaxBackoff returns a copy with the wait cap set.
func (c Config) WithMaxBackoff(maxBackoff time.Duration) Config {
	c.MaxBackoff = maxBackoff
	return c
}

// WithBackoffMultiplier returns a copy with the growth factor set.
func (c Config) WithBackoffMultiplier(multiplier float64) Config {
	c.BackoffMultiplier = multiplier
	return c
}

// WithJitter returns a copy with jitter toggled.
func (c Config) WithJitter(jitter bool) Config {
	c.Jitter = jitter
	return c
}

// WithIsRetryable returns a copy with the error filter set.
func (c Config) WithIsRetryable(isRetryable IsRetryableFunc) Config {
	c.IsRetryable = isRetryable
	return c
}

func (c Config) normalized() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 30 * time.Second
	}
	if c.MaxBackoff < c.InitialBackoff {
		c.MaxBackoff = c.InitialBackoff
	}
	if c.BackoffMultiplier < 1 {
		c.BackoffMultiplier = 2.0
	}
	return c
}

// Backoff returns the wait before retry number attempt (0-based).
func (c Config) Backoff(attempt int) time.Duration {
	c = c.normalized()
	wait := float64(c.InitialBackoff) * math.Pow(c.BackoffMultiplier, float64(attempt))
	if wait > float64(c.MaxBackoff) {
		wait = float64(c.MaxBackoff)
	}
	d := time.Duration(wait)
	if c.Jitter && d > 1 {
		//nolint:gosec // jitter doesn't need cryptographic randomness
		d += time.Duration(rand.Int63n(int64(d) / 2))
	}
	return d
}

// ExhaustedError is returned once every allowed attempt failed.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err came from running out of attempts.
func IsExhausted(err error) bool {
	var exhausted *ExhaustedError
	return errors.As(err, &exhausted)
}

type permanentError struct {
	err error
}

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err so that Do returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Do runs fn until it succeeds, fails with a non-retryable error, runs out
// of attempts or ctx is done. A cancelled context returns ctx.Err(); a
// non-retryable error is returned as is; running out of attempts returns an
// *ExhaustedError wrapping the last failure.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg = cfg.normalized()

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		var permanent permanentError
		if errors.As(err, &permanent) {
			return permanent.err
		}
		if cfg.IsRetryable != nil && !cfg.IsRetryable(err) {
			return err
		}
		if attempt >= cfg.MaxRetries {
			return &ExhaustedError{Attempts: attempt + 1, Err: err}
		}

		wait := cfg.Backoff(attempt)
		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
