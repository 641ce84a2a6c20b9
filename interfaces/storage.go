package interfaces

import (
	"context"
	"errors"
)

var (
	// ErrCardNotRecorded is returned when a store holds no card id for the
	// requested user. Callers treat it as a miss, not a failure.
	ErrCardNotRecorded = errors.New("no card recorded for user")

	// ErrStoreUnavailable is returned when a card store backend is not
	// accessible. This could be due to network issues, authentication
	// failures, or service outages.
	ErrStoreUnavailable = errors.New("card store unavailable")
)

// CardStore records which card the provisioning workflow issued for each
// user, making card creation idempotent across requests and process
// restarts. Implementations must be safe for concurrent use.
type CardStore interface {
	// Get returns the card id recorded for the user, or ErrCardNotRecorded.
	Get(ctx context.Context, userID string) (string, error)

	// Set records the card id for the user, overwriting any previous entry.
	Set(ctx context.Context, userID, cardID string) error

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns a unique identifier for this store backend.
	Name() string
}
