package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/card-issuing-backend/interfaces"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.Get(ctx, "user-1")
	assert.ErrorIs(t, err, interfaces.ErrCardNotRecorded)

	require.NoError(t, store.Set(ctx, "user-1", "card-1"))

	cardID, err := store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-1", cardID)

	// Overwrites replace the record.
	require.NoError(t, store.Set(ctx, "user-1", "card-2"))
	cardID, err = store.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-2", cardID)

	assert.True(t, store.Available(ctx))
	assert.Equal(t, "memory", store.Name())
}
