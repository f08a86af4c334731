package storage

import "sync"

// MemoryBlobStore is an in-memory BlobStore used in tests and as a
// last-resort backend when no persistent store is available.
type MemoryBlobStore struct {
	mutex    sync.RWMutex
	blobs    map[string][]byte
	maxBytes int
}

// NewMemoryBlobStore creates an unbounded in-memory store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte)}
}

// NewMemoryBlobStoreWithQuota creates an in-memory store that rejects
// writes once total stored bytes would exceed maxBytes. Tests use this to
// exercise the cache's quota-pressure paths.
func NewMemoryBlobStoreWithQuota(maxBytes int) *MemoryBlobStore {
	return &MemoryBlobStore{blobs: make(map[string][]byte), maxBytes: maxBytes}
}

func (s *MemoryBlobStore) Save(key string, blob []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.maxBytes > 0 {
		total := len(blob)
		for k, b := range s.blobs {
			if k != key {
				total += len(b)
			}
		}
		if total > s.maxBytes {
			return ErrQuotaExceeded
		}
	}

	stored := make([]byte, len(blob))
	copy(stored, blob)
	s.blobs[key] = stored
	return nil
}

func (s *MemoryBlobStore) Load(key string) ([]byte, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	blob, exists := s.blobs[key]
	if !exists {
		return nil, ErrNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (s *MemoryBlobStore) Delete(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *MemoryBlobStore) Keys() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := make([]string, 0, len(s.blobs))
	for key := range s.blobs {
		keys = append(keys, key)
	}
	return keys, nil
}
