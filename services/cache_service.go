package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/config"
	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/NanoLinuxDevops/WinSphere/storage"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

const (
	cacheDataKey = "draw_cache_data"
	cacheMetaKey = "draw_cache_meta"

	// legacyCacheKey is the unversioned key used before the metadata
	// split; it is cleared on sight.
	legacyCacheKey = "draw_cache"

	// drasticTrimRecordCount is the dataset size of the last-resort save
	// attempt under storage quota pressure.
	drasticTrimRecordCount = 100
)

// DrawCacheService persists the draw dataset with versioning, integrity
// hashing, optional compression and quota-pressure handling. An in-memory
// mirror keeps the current dataset available even when the backing store
// rejects writes.
type DrawCacheService struct {
	store  storage.BlobStore
	config config.RefreshConfig
	logger *logrus.Entry

	mutex  sync.RWMutex
	mirror []models.DrawRecord
}

func NewDrawCacheService(store storage.BlobStore, cfg config.RefreshConfig) *DrawCacheService {
	return &DrawCacheService{
		store:  store,
		config: cfg,
		logger: logrus.WithField("component", "DrawCacheService"),
	}
}

// Save persists records plus companion metadata. The dataset is trimmed to
// the configured cap keeping the most recent draws. On quota pressure it
// evicts unrelated blobs and retries, and as a last resort persists only
// the newest records while the full dataset stays in the memory mirror.
func (s *DrawCacheService) Save(records []models.DrawRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	trimmed := trimMostRecent(records, s.config.MaxCacheSize)
	s.mirror = trimmed

	err := s.persist(trimmed)
	if err == nil {
		return nil
	}
	if err != storage.ErrQuotaExceeded {
		return err
	}

	s.logger.Warn("Cache save hit storage quota, evicting unrelated blobs")
	s.evictSiblings()
	if err := s.persist(trimmed); err == nil {
		return nil
	} else if err != storage.ErrQuotaExceeded {
		return err
	}

	s.logger.WithField("record_count", drasticTrimRecordCount).
		Warn("Cache save still over quota, persisting a drastically trimmed dataset")
	drastic := trimMostRecent(trimmed, drasticTrimRecordCount)
	if err := s.persist(drastic); err != nil {
		return fmt.Errorf("failed to save cache even after drastic trim: %w", err)
	}
	return nil
}

func (s *DrawCacheService) persist(records []models.DrawRecord) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to serialize cache data: %w", err)
	}

	blob := payload
	ratio := 1.0
	if s.config.CompressionEnabled {
		compressed, compressErr := gzipCompress(payload)
		if compressErr != nil {
			s.logger.WithError(compressErr).Warn("Compression failed, storing uncompressed")
		} else {
			blob = compressed
			ratio = float64(len(compressed)) / float64(len(payload))
		}
	}

	meta := models.CacheMetadata{
		Version:          models.CacheFormatVersion,
		Timestamp:        time.Now(),
		RecordCount:      len(records),
		ContentHash:      contentHash(records),
		CompressionRatio: ratio,
		LastAccess:       time.Now(),
	}
	metaBlob, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to serialize cache metadata: %w", err)
	}

	if err := s.store.Save(cacheDataKey, blob); err != nil {
		return err
	}
	if err := s.store.Save(cacheMetaKey, metaBlob); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"record_count":      len(records),
		"blob_bytes":        len(blob),
		"compression_ratio": ratio,
	}).Info("Saved draw data to cache")
	return nil
}

// Load returns the cached dataset after verifying format version, age and
// content integrity. Any verification failure clears the cache and
// returns ErrNotFound.
func (s *DrawCacheService) Load() ([]models.DrawRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.loadLocked()
}

func (s *DrawCacheService) loadLocked() ([]models.DrawRecord, error) {
	s.clearLegacyEntries()

	meta, err := s.loadMetadata()
	if err != nil {
		return nil, err
	}

	if meta.Version != models.CacheFormatVersion {
		s.logger.WithFields(logrus.Fields{
			"cached_version":  meta.Version,
			"current_version": models.CacheFormatVersion,
		}).Info("Cache format version mismatch, clearing cache")
		s.clearLocked()
		return nil, storage.ErrNotFound
	}

	if time.Since(meta.Timestamp) > s.config.CacheTimeout*7 {
		// Far beyond stale: the data is too old even for fallback use
		s.logger.Info("Cached data is expired beyond fallback usefulness, clearing cache")
		s.clearLocked()
		return nil, storage.ErrNotFound
	}

	blob, err := s.store.Load(cacheDataKey)
	if err != nil {
		return nil, err
	}

	payload := blob
	if isGzip(blob) {
		payload, err = gzipDecompress(blob)
		if err != nil {
			s.logger.WithError(err).Warn("Cache blob decompression failed, clearing cache")
			s.clearLocked()
			return nil, storage.ErrNotFound
		}
	}

	var records []models.DrawRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		s.logger.WithError(err).Warn("Cache blob is corrupted, clearing cache")
		s.clearLocked()
		return nil, storage.ErrNotFound
	}

	if hash := contentHash(records); hash != meta.ContentHash {
		s.logger.WithFields(logrus.Fields{
			"expected_hash": meta.ContentHash,
			"actual_hash":   hash,
		}).Warn("Cache integrity check failed, clearing cache")
		s.clearLocked()
		return nil, storage.ErrNotFound
	}

	s.touchLastAccess(meta)
	s.mirror = records
	return records, nil
}

// GetCachedData returns the cached dataset, falling back to the in-memory
// mirror when the backing store cannot serve it.
func (s *DrawCacheService) GetCachedData() ([]models.DrawRecord, error) {
	records, err := s.Load()
	if err == nil {
		return records, nil
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()
	if len(s.mirror) > 0 {
		s.logger.Debug("Serving draw data from in-memory mirror")
		return s.mirror, nil
	}
	return nil, err
}

// GetDataAge returns the age of the cached dataset
func (s *DrawCacheService) GetDataAge() (time.Duration, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	meta, err := s.loadMetadata()
	if err != nil {
		return 0, err
	}
	return time.Since(meta.Timestamp), nil
}

// IsFresh reports whether cached data exists and is within the cache timeout
func (s *DrawCacheService) IsFresh() bool {
	age, err := s.GetDataAge()
	if err != nil {
		return false
	}
	return age <= s.config.CacheTimeout
}

// Clear removes the cached dataset and its metadata
func (s *DrawCacheService) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.clearLocked()
}

func (s *DrawCacheService) clearLocked() error {
	if err := s.store.Delete(cacheDataKey); err != nil {
		return err
	}
	if err := s.store.Delete(cacheMetaKey); err != nil {
		return err
	}
	s.mirror = nil
	s.logger.Info("Cleared draw data cache")
	return nil
}

// Optimize rewrites the cache trimmed to the configured cap, reclaiming
// space taken by records beyond it.
func (s *DrawCacheService) Optimize() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		if err == storage.ErrNotFound {
			return nil
		}
		return err
	}
	return s.persist(trimMostRecent(records, s.config.MaxCacheSize))
}

// ValidateIntegrity verifies the stored blob against its metadata hash
// without mutating the cache.
func (s *DrawCacheService) ValidateIntegrity() (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	meta, err := s.loadMetadata()
	if err != nil {
		return false, err
	}
	blob, err := s.store.Load(cacheDataKey)
	if err != nil {
		return false, err
	}

	payload := blob
	if isGzip(blob) {
		if payload, err = gzipDecompress(blob); err != nil {
			return false, nil
		}
	}
	var records []models.DrawRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return false, nil
	}
	return contentHash(records) == meta.ContentHash, nil
}

// GetStats returns a diagnostic snapshot of the cache
func (s *DrawCacheService) GetStats() (models.CacheStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	meta, err := s.loadMetadata()
	if err != nil {
		return models.CacheStats{}, err
	}

	sizeBytes := 0
	if blob, blobErr := s.store.Load(cacheDataKey); blobErr == nil {
		sizeBytes = len(blob)
	}

	age := time.Since(meta.Timestamp)
	return models.CacheStats{
		RecordCount:      meta.RecordCount,
		DataAgeHours:     age.Hours(),
		IsFresh:          age <= s.config.CacheTimeout,
		Version:          meta.Version,
		ContentHash:      meta.ContentHash,
		CompressionRatio: meta.CompressionRatio,
		SizeBytes:        sizeBytes,
		LastUpdated:      meta.Timestamp,
		LastAccess:       meta.LastAccess,
	}, nil
}

func (s *DrawCacheService) loadMetadata() (models.CacheMetadata, error) {
	blob, err := s.store.Load(cacheMetaKey)
	if err != nil {
		return models.CacheMetadata{}, err
	}
	var meta models.CacheMetadata
	if err := json.Unmarshal(blob, &meta); err != nil {
		return models.CacheMetadata{}, storage.ErrNotFound
	}
	return meta, nil
}

func (s *DrawCacheService) touchLastAccess(meta models.CacheMetadata) {
	meta.LastAccess = time.Now()
	if blob, err := json.Marshal(meta); err == nil {
		// Best effort; a failed access-time update never fails a read
		_ = s.store.Save(cacheMetaKey, blob)
	}
}

func (s *DrawCacheService) clearLegacyEntries() {
	keys, err := s.store.Keys()
	if err != nil {
		return
	}
	for _, key := range keys {
		if key == legacyCacheKey {
			s.logger.WithField("key", key).Info("Removing legacy unversioned cache entry")
			_ = s.store.Delete(key)
		}
	}
}

// evictSiblings deletes every blob other than the cache's own keys,
// freeing quota held by unrelated data.
func (s *DrawCacheService) evictSiblings() {
	keys, err := s.store.Keys()
	if err != nil {
		return
	}
	for _, key := range keys {
		if key == cacheDataKey || key == cacheMetaKey {
			continue
		}
		s.logger.WithField("key", key).Info("Evicting blob to free cache quota")
		_ = s.store.Delete(key)
	}
}

// contentHash computes an FNV-64a digest over the canonical tuple form of
// each record, independent of JSON field ordering or whitespace.
func contentHash(records []models.DrawRecord) string {
	digest := fnv.New64a()
	for _, record := range records {
		fmt.Fprintf(digest, "%d|%s|%v|%d\n", record.DrawID, record.Date, record.Numbers, record.Bonus)
	}
	return fmt.Sprintf("%016x", digest.Sum64())
}

func trimMostRecent(records []models.DrawRecord, limit int) []models.DrawRecord {
	sorted := append([]models.DrawRecord(nil), records...)
	parser := DrawRecordParser{}
	sorted = parser.trimToMostRecent(sorted, limit)
	return sorted
}

func gzipCompress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}
	if _, err := writer.Write(payload); err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(blob []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func isGzip(blob []byte) bool {
	return len(blob) > 2 && blob[0] == 0x1f && blob[1] == 0x8b
}
