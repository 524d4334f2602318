package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// retry calls fn up to attempts times with exponential backoff starting at wait.
// It returns the last error, or ctx.Err() if ctx ends first.
func retry(ctx context.Context, attempts int, wait time.Duration, log zerolog.Logger, what string, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = wait
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return fn(ctx)
	}, b, func(err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msgf("%s not ready", what)
	})
}
