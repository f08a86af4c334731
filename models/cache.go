package models

import "time"

// CacheFormatVersion tags the persisted cache layout. Bump on any change
// to the blob shape; a mismatch invalidates the whole cache.
const CacheFormatVersion = "2.0"

// CacheMetadata is the companion record persisted alongside the data blob.
type CacheMetadata struct {
	Version          string    `json:"version"`
	Timestamp        time.Time `json:"timestamp"`
	RecordCount      int       `json:"record_count"`
	ContentHash      string    `json:"content_hash"`
	CompressionRatio float64   `json:"compression_ratio,omitempty"`
	LastAccess       time.Time `json:"last_access"`
}

// CacheStats is the diagnostic snapshot exposed by the cache service.
type CacheStats struct {
	RecordCount      int       `json:"record_count"`
	DataAgeHours     float64   `json:"data_age_hours"`
	IsFresh          bool      `json:"is_fresh"`
	Version          string    `json:"version"`
	ContentHash      string    `json:"content_hash"`
	CompressionRatio float64   `json:"compression_ratio,omitempty"`
	SizeBytes        int       `json:"size_bytes"`
	LastUpdated      time.Time `json:"last_updated"`
	LastAccess       time.Time `json:"last_access"`
}
