// Package retryutil provides the bounded exponential retry helper used by
// the provisioning workflow to wait for asynchronously created issuer
// resources.
package retryutil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewExponentialBackOff returns the default retry policy: deterministic
// delays of 1s, 2s, 4s, 8s, ... between attempts, with no jitter and no
// elapsed-time cutoff. Attempt bounding is applied separately by Do.
func NewExponentialBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 10 * time.Minute
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Do runs op with the default exponential policy: one initial attempt plus
// up to maxRetries retries. The error from the final attempt propagates
// unchanged. Cancelling ctx abandons the loop between attempts; an attempt
// already in flight is never interrupted.
func Do[T any](ctx context.Context, maxRetries uint64, op func() (T, error)) (T, error) {
	return DoWithBackOff(ctx, maxRetries, NewExponentialBackOff(), op)
}

// DoWithBackOff is Do with a caller-supplied backoff policy, used by tests
// and callers that need a different delay ladder.
func DoWithBackOff[T any](ctx context.Context, maxRetries uint64, b backoff.BackOff, op func() (T, error)) (T, error) {
	return backoff.RetryWithData(op, backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx))
}

// Permanent marks err as non-retryable: Do stops immediately and returns it.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
