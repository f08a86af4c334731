// Package storage provides the key-value blob persistence backing the draw
// cache: a local file store by default, Postgres when a database is
// configured, and an in-memory store for tests.
package storage

import "errors"

// ErrQuotaExceeded is returned by a store when a write would exceed the
// configured storage budget. The cache reacts by evicting sibling entries
// and, on a second failure, retrying with a drastically reduced dataset.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// ErrNotFound is returned when no blob exists under the requested key
var ErrNotFound = errors.New("blob not found")

// BlobStore persists opaque blobs under string keys within one namespace
type BlobStore interface {
	// Save writes the blob, replacing any previous value under key
	Save(key string, blob []byte) error

	// Load reads the blob stored under key; ErrNotFound when absent
	Load(key string) ([]byte, error)

	// Delete removes the blob under key; deleting an absent key is a no-op
	Delete(key string) error

	// Keys lists all keys currently stored in the namespace
	Keys() ([]string, error)
}
