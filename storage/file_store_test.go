package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBlobStoreRoundTrip(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("alpha", []byte("first")))
	require.NoError(t, store.Save("beta", []byte("second")))

	blob, err := store.Load("alpha")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), blob)

	keys, err := store.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alpha", "beta"}, keys)
}

func TestFileBlobStoreMissingKey(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete("nope"))
}

func TestFileBlobStoreOverwrite(t *testing.T) {
	store, err := NewFileBlobStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save("key", []byte("v1")))
	require.NoError(t, store.Save("key", []byte("v2")))

	blob, err := store.Load("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), blob)
}

func TestFileBlobStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileBlobStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save("../escape/attempt", []byte("data")))

	blob, err := store.Load("../escape/attempt")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), blob)
}

func TestMemoryBlobStoreQuota(t *testing.T) {
	store := NewMemoryBlobStoreWithQuota(10)

	require.NoError(t, store.Save("a", []byte("12345")))
	assert.ErrorIs(t, store.Save("b", []byte("123456789")), ErrQuotaExceeded)

	// Replacing an existing key counts only the new size
	assert.NoError(t, store.Save("a", []byte("1234567890")))
}

func TestMemoryBlobStoreCopiesBlobs(t *testing.T) {
	store := NewMemoryBlobStore()

	original := []byte("immutable")
	require.NoError(t, store.Save("key", original))
	original[0] = 'X'

	blob, err := store.Load("key")
	require.NoError(t, err)
	assert.Equal(t, []byte("immutable"), blob)
}
