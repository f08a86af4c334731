package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// DefaultFileQuotaBytes is a conservative fixed budget for the on-disk
// cache namespace, mirroring the tight storage assumptions the cache was
// designed under.
const DefaultFileQuotaBytes = 5 * 1024 * 1024

// FileBlobStore persists blobs as files under a single directory
type FileBlobStore struct {
	dir        string
	quotaBytes int
}

// NewFileBlobStore creates a file-backed store rooted at dir, creating the
// directory when missing.
func NewFileBlobStore(dir string) (*FileBlobStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", dir, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "FileBlobStore",
		"dir":       dir,
	}).Debug("Initialized file blob store")

	return &FileBlobStore{dir: dir, quotaBytes: DefaultFileQuotaBytes}, nil
}

func (s *FileBlobStore) path(key string) string {
	// Keys are internal identifiers; sanitize anyway so a bad key cannot
	// escape the cache directory.
	safe := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(key)
	return filepath.Join(s.dir, safe+".blob")
}

func (s *FileBlobStore) Save(key string, blob []byte) error {
	if s.quotaBytes > 0 {
		used, err := s.usedBytesExcluding(key)
		if err != nil {
			return err
		}
		if used+len(blob) > s.quotaBytes {
			return ErrQuotaExceeded
		}
	}

	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("failed to write cache blob: %w", err)
	}
	if err := os.Rename(tmp, s.path(key)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit cache blob: %w", err)
	}
	return nil
}

func (s *FileBlobStore) Load(key string) ([]byte, error) {
	blob, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache blob: %w", err)
	}
	return blob, nil
}

func (s *FileBlobStore) Delete(key string) error {
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache blob: %w", err)
	}
	return nil
}

func (s *FileBlobStore) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".blob") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".blob"))
	}
	return keys, nil
}

func (s *FileBlobStore) usedBytesExcluding(key string) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}

	skip := filepath.Base(s.path(key))
	total := 0
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == skip {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += int(info.Size())
	}
	return total, nil
}
