package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreForSchemes(t *testing.T) {
	factory := NewStoreFactory(testLogger())

	store, err := factory.StoreFor("mem://")
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	path := filepath.Join(t.TempDir(), "cards.json")
	store, err = factory.StoreFor("file://" + path)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	store, err = factory.StoreFor("s3://card-records/prod?region=eu-west-1")
	require.NoError(t, err)
	assert.IsType(t, &S3Store{}, store)

	store, err = factory.StoreFor("vault://vault.example.com:8200/secret/issuing?token=test-token")
	require.NoError(t, err)
	assert.IsType(t, &VaultStore{}, store)
}

func TestStoreForRejectsInvalidURIs(t *testing.T) {
	factory := NewStoreFactory(testLogger())

	_, err := factory.StoreFor("redis://localhost")
	assert.Error(t, err)

	_, err = factory.StoreFor("s3://")
	assert.Error(t, err)

	_, err = factory.StoreFor("vault://vault.example.com:8200/onlymount")
	assert.Error(t, err)

	_, err = factory.StoreFor("file://")
	assert.Error(t, err)
}

func TestCreateMultiStore(t *testing.T) {
	factory := NewStoreFactory(testLogger())

	// A single URI yields the store directly, not a multi wrapper.
	store, err := factory.CreateMultiStore([]string{"mem://"})
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	// Invalid URIs are skipped as long as one store resolves.
	path := filepath.Join(t.TempDir(), "cards.json")
	store, err = factory.CreateMultiStore([]string{"bogus://", "mem://", "file://" + path})
	require.NoError(t, err)
	assert.Equal(t, "multi", store.Name())
	assert.True(t, store.Available(context.Background()))

	// All invalid is an error.
	_, err = factory.CreateMultiStore([]string{"bogus://", "redis://x"})
	assert.Error(t, err)
}
