package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ArchiveRequestRateLimiter enforces a minimum delay between requests to
// the draw archive so retry bursts stay polite.
type ArchiveRequestRateLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewArchiveRequestRateLimiter creates a rate limiter with the specified minimum delay
func NewArchiveRequestRateLimiter(minimumDelay time.Duration) *ArchiveRequestRateLimiter {
	return &ArchiveRequestRateLimiter{
		minimumDelay:    minimumDelay,
		lastRequestTime: time.Now().Add(-minimumDelay),
	}
}

// EnforceRateLimit blocks until the minimum delay has elapsed since the last request
func (limiter *ArchiveRequestRateLimiter) EnforceRateLimit() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	elapsed := time.Since(limiter.lastRequestTime)
	if elapsed < limiter.minimumDelay {
		remaining := limiter.minimumDelay - elapsed

		logrus.WithFields(logrus.Fields{
			"component":       "ArchiveRequestRateLimiter",
			"remaining_delay": remaining,
			"request_count":   limiter.requestCount + 1,
		}).Debug("Enforcing rate limit delay")

		time.Sleep(remaining)
	}

	limiter.lastRequestTime = time.Now()
	limiter.requestCount++
}

// RequestCount returns the total number of requests processed
func (limiter *ArchiveRequestRateLimiter) RequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
