// Package retry runs fallible calls with a doubling delay between attempts.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	MaxAttempts int
	Delay       time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
	}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func (c Config) policy(ctx context.Context) backoff.BackOff {
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.Delay
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Do runs fn until it succeeds, the attempts run out, fn returns a
// Permanent error or ctx is done. The delay doubles after every failure.
func Do[T any](ctx context.Context, cfg Config, fn func(ctx context.Context) (T, error)) (T, error) {
	out, err := backoff.RetryWithData(func() (T, error) {
		return fn(ctx)
	}, cfg.policy(ctx))
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Run is Do for calls without a result.
func Run(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	return backoff.Retry(func() error {
		return fn(ctx)
	}, cfg.policy(ctx))
}
