package retryutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoFirstAttemptSucceeds(t *testing.T) {
	calls := 0
	got, err := DoWithBackOff(context.Background(), 5, &backoff.ZeroBackOff{}, func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	got, err := DoWithBackOff(context.Background(), 5, &backoff.ZeroBackOff{}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("not yet")
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustionReturnsLastError(t *testing.T) {
	lastErr := errors.New("still failing")
	calls := 0
	_, err := DoWithBackOff(context.Background(), 2, &backoff.ZeroBackOff{}, func() (int, error) {
		calls++
		return 0, lastErr
	})
	require.ErrorIs(t, err, lastErr)
	// One initial attempt plus two retries.
	assert.Equal(t, 3, calls)
}

func TestDoPermanentStopsImmediately(t *testing.T) {
	calls := 0
	_, err := DoWithBackOff(context.Background(), 5, &backoff.ZeroBackOff{}, func() (int, error) {
		calls++
		return 0, Permanent(errors.New("bad request"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := DoWithBackOff(ctx, 10, backoff.NewConstantBackOff(10*time.Millisecond), func() (int, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return 0, errors.New("not yet")
	})
	require.Error(t, err)
	assert.LessOrEqual(t, calls, 3)
}

func TestExponentialBackOffLadder(t *testing.T) {
	b := NewExponentialBackOff()

	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	assert.Equal(t, 8*time.Second, b.NextBackOff())
}
