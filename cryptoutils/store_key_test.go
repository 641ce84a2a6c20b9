package cryptoutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStoreKey(t *testing.T) {
	key := DeriveStoreKey([]byte("passphrase"), []byte("salt"))
	assert.Len(t, key, 32)

	// Deterministic for the same inputs, different otherwise.
	assert.Equal(t, key, DeriveStoreKey([]byte("passphrase"), []byte("salt")))
	assert.NotEqual(t, key, DeriveStoreKey([]byte("passphrase"), []byte("other-salt")))
	assert.NotEqual(t, key, DeriveStoreKey([]byte("other"), []byte("salt")))
}

func TestSealOpenWithKey(t *testing.T) {
	key := DeriveStoreKey([]byte("passphrase"), []byte("salt"))

	blob, err := SealWithKey(key, []byte("card-id-123"))
	require.NoError(t, err)

	plaintext, err := OpenWithKey(key, blob)
	require.NoError(t, err)
	assert.Equal(t, []byte("card-id-123"), plaintext)

	// Wrong key fails closed.
	wrongKey := DeriveStoreKey([]byte("wrong"), []byte("salt"))
	_, err = OpenWithKey(wrongKey, blob)
	assert.Error(t, err)

	// Truncated blobs are rejected.
	_, err = OpenWithKey(key, blob[:4])
	assert.Error(t, err)
}
