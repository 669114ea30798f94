package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds retries for one external collaborator.
type Policy struct {
	Attempts uint64
	Initial  time.Duration
}

// Do runs op with bounded exponential backoff. Retrying stops early when
// ctx is cancelled or op returns a Permanent error.
func Do(ctx context.Context, p Policy, op func() error) error {
	if p.Attempts <= 1 {
		return op()
	}
	bo := backoff.NewExponentialBackOff()
	if p.Initial > 0 {
		bo.InitialInterval = p.Initial
	}
	bo.MaxElapsedTime = 0
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, p.Attempts-1), ctx))
}

// Permanent marks err as non-retryable (e.g. a 4xx response).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}
