package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

// failingStore simulates a degraded backend.
type failingStore struct {
	available bool
}

func (s *failingStore) Get(ctx context.Context, userID string) (string, error) {
	return "", errors.New("backend down")
}

func (s *failingStore) Set(ctx context.Context, userID, cardID string) error {
	return errors.New("backend down")
}

func (s *failingStore) Available(ctx context.Context) bool { return s.available }

func (s *failingStore) Name() string { return "failing" }

func TestMultiStoreReadsFirstHit(t *testing.T) {
	ctx := context.Background()
	first := NewMemoryStore()
	second := NewMemoryStore()
	require.NoError(t, second.Set(ctx, "user-1", "card-from-second"))

	multi := NewMultiStore([]interfaces.CardStore{first, second}, testLogger())

	cardID, err := multi.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-from-second", cardID)

	// A hit in the first store shadows later ones.
	require.NoError(t, first.Set(ctx, "user-1", "card-from-first"))
	cardID, err = multi.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-from-first", cardID)
}

func TestMultiStoreWritesAll(t *testing.T) {
	ctx := context.Background()
	first := NewMemoryStore()
	second := NewMemoryStore()

	multi := NewMultiStore([]interfaces.CardStore{first, second}, testLogger())
	require.NoError(t, multi.Set(ctx, "user-1", "card-1"))

	for _, store := range []*MemoryStore{first, second} {
		cardID, err := store.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "card-1", cardID)
	}
}

func TestMultiStoreWriteSucceedsWithOneBackend(t *testing.T) {
	ctx := context.Background()
	healthy := NewMemoryStore()
	multi := NewMultiStore([]interfaces.CardStore{&failingStore{available: true}, healthy}, testLogger())

	require.NoError(t, multi.Set(ctx, "user-1", "card-1"))

	cardID, err := healthy.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-1", cardID)
}

func TestMultiStoreWriteFailsWhenAllFail(t *testing.T) {
	ctx := context.Background()
	multi := NewMultiStore([]interfaces.CardStore{
		&failingStore{available: true},
		&failingStore{available: false},
	}, testLogger())

	assert.Error(t, multi.Set(ctx, "user-1", "card-1"))
}

func TestMultiStoreMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	multi := NewMultiStore([]interfaces.CardStore{NewMemoryStore(), NewMemoryStore()}, testLogger())

	_, err := multi.Get(ctx, "user-unknown")
	assert.ErrorIs(t, err, interfaces.ErrCardNotRecorded)
}

func TestMultiStoreAvailable(t *testing.T) {
	ctx := context.Background()

	multi := NewMultiStore([]interfaces.CardStore{&failingStore{available: false}}, testLogger())
	assert.False(t, multi.Available(ctx))

	multi = NewMultiStore([]interfaces.CardStore{&failingStore{available: false}, NewMemoryStore()}, testLogger())
	assert.True(t, multi.Available(ctx))
}
