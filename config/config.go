package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	CacheDir    string
	LogLevel    string
	Refresh     RefreshConfig
}

// RefreshConfig holds the knobs of the refresh pipeline. Zero values are
// replaced with production defaults by ValidateAndApplyDefaults.
type RefreshConfig struct {
	// ArchiveURL is the remote draw archive endpoint returning CSV text
	ArchiveURL string `json:"archive_url"`

	// ArchiveIndexURL, when set, is an HTML page on which the CSV download
	// link is discovered instead of fetching ArchiveURL directly
	ArchiveIndexURL string `json:"archive_index_url,omitempty"`

	// MaxRetries is the total number of fetch attempts per refresh
	MaxRetries int `json:"max_retries"`

	// FetchTimeout bounds each individual fetch attempt
	FetchTimeout time.Duration `json:"fetch_timeout"`

	// RequestRateLimit is the minimum delay between archive requests
	RequestRateLimit time.Duration `json:"request_rate_limit"`

	// CacheTimeout is the age past which cached data counts as stale
	CacheTimeout time.Duration `json:"cache_timeout"`

	// MaxCacheSize caps the number of records kept in the cache
	MaxCacheSize int `json:"max_cache_size"`

	// FallbackToCachedData serves the last known-good dataset when a
	// fresh fetch fails
	FallbackToCachedData bool `json:"fallback_to_cached_data"`

	// AllowSyntheticFallback substitutes generated records when both the
	// fetch and the cache fail. Off by default: fabricated data masks
	// genuine total failure from the caller.
	AllowSyntheticFallback bool `json:"allow_synthetic_fallback"`

	// CompressionEnabled gzips the persisted cache blob
	CompressionEnabled bool `json:"compression_enabled"`
}

// DefaultRefreshConfig returns production-ready refresh defaults
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		ArchiveURL:           "https://pais.co.il/lotto/archive.aspx?download=1",
		MaxRetries:           3,
		FetchTimeout:         15 * time.Second,
		RequestRateLimit:     1 * time.Second,
		CacheTimeout:         24 * time.Hour,
		MaxCacheSize:         2000,
		FallbackToCachedData: true,
		CompressionEnabled:   true,
	}
}

// ValidateAndApplyDefaults validates the refresh configuration and applies
// defaults for invalid values
func (c *RefreshConfig) ValidateAndApplyDefaults() {
	logger := logrus.WithField("component", "RefreshConfig")
	defaults := DefaultRefreshConfig()

	if c.ArchiveURL == "" {
		c.ArchiveURL = defaults.ArchiveURL
		logger.Debug("Applied default ArchiveURL")
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaults.MaxRetries
		logger.Debug("Applied default MaxRetries")
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaults.FetchTimeout
		logger.Debug("Applied default FetchTimeout")
	}
	if c.RequestRateLimit <= 0 {
		c.RequestRateLimit = defaults.RequestRateLimit
		logger.Debug("Applied default RequestRateLimit")
	}
	if c.CacheTimeout <= 0 {
		c.CacheTimeout = defaults.CacheTimeout
		logger.Debug("Applied default CacheTimeout")
	}
	if c.MaxCacheSize <= 0 {
		c.MaxCacheSize = defaults.MaxCacheSize
		logger.Debug("Applied default MaxCacheSize")
	}
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CacheDir:    getEnv("CACHE_DIR", ".winsphere-cache"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Refresh: RefreshConfig{
			ArchiveURL:             getEnv("ARCHIVE_URL", ""),
			ArchiveIndexURL:        getEnv("ARCHIVE_INDEX_URL", ""),
			MaxRetries:             getEnvInt("MAX_RETRIES", 3),
			FetchTimeout:           time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)) * time.Second,
			RequestRateLimit:       time.Duration(getEnvInt("REQUEST_RATE_LIMIT_MS", 1000)) * time.Millisecond,
			CacheTimeout:           time.Duration(getEnvInt("CACHE_TIMEOUT_HOURS", 24)) * time.Hour,
			MaxCacheSize:           getEnvInt("MAX_CACHE_SIZE", 2000),
			FallbackToCachedData:   getEnvBool("FALLBACK_TO_CACHED_DATA", true),
			AllowSyntheticFallback: getEnvBool("ALLOW_SYNTHETIC_FALLBACK", false),
			CompressionEnabled:     getEnvBool("COMPRESSION_ENABLED", true),
		},
	}

	cfg.Refresh.ValidateAndApplyDefaults()
	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %t", key, value, fallback)
		return fallback
	}
	return parsed
}
