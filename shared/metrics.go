package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RefreshMetrics tracks outcomes of refresh operations for observability
type RefreshMetrics struct {
	mutex sync.Mutex

	totalRefreshes      int64
	successfulRefreshes int64
	fallbackRefreshes   int64
	failedRefreshes     int64
	coalescedRequests   int64

	totalFetchAttempts  int64
	fetchFailuresByKind map[ErrorKind]int64

	totalDuration time.Duration
	lastDuration  time.Duration
	lastRefresh   time.Time
}

// NewRefreshMetrics creates a new metrics collector
func NewRefreshMetrics() *RefreshMetrics {
	return &RefreshMetrics{
		fetchFailuresByKind: make(map[ErrorKind]int64),
	}
}

// RecordRefresh records one terminal refresh outcome
func (m *RefreshMetrics) RecordRefresh(success, fallbackUsed bool, attempts int, duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRefreshes++
	m.totalFetchAttempts += int64(attempts)
	m.totalDuration += duration
	m.lastDuration = duration
	m.lastRefresh = time.Now()

	switch {
	case success && fallbackUsed:
		m.fallbackRefreshes++
	case success:
		m.successfulRefreshes++
	default:
		m.failedRefreshes++
	}
}

// RecordFetchFailure records one classified fetch attempt failure
func (m *RefreshMetrics) RecordFetchFailure(kind ErrorKind) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fetchFailuresByKind[kind]++
}

// RecordCoalescedRequest records a refresh call served by an in-flight operation
func (m *RefreshMetrics) RecordCoalescedRequest() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.coalescedRequests++
}

// Snapshot returns a serializable view of the collected metrics
func (m *RefreshMetrics) Snapshot() map[string]interface{} {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	failures := make(map[string]int64, len(m.fetchFailuresByKind))
	for kind, count := range m.fetchFailuresByKind {
		failures[string(kind)] = count
	}

	avgDuration := time.Duration(0)
	if m.totalRefreshes > 0 {
		avgDuration = m.totalDuration / time.Duration(m.totalRefreshes)
	}

	return map[string]interface{}{
		"total_refreshes":        m.totalRefreshes,
		"successful_refreshes":   m.successfulRefreshes,
		"fallback_refreshes":     m.fallbackRefreshes,
		"failed_refreshes":       m.failedRefreshes,
		"coalesced_requests":     m.coalescedRequests,
		"total_fetch_attempts":   m.totalFetchAttempts,
		"fetch_failures_by_kind": failures,
		"avg_duration_ms":        avgDuration.Milliseconds(),
		"last_duration_ms":       m.lastDuration.Milliseconds(),
		"last_refresh":           m.lastRefresh,
	}
}

// LogSummary logs a summary of refresh metrics
func (m *RefreshMetrics) LogSummary() {
	snapshot := m.Snapshot()
	logrus.WithFields(logrus.Fields(snapshot)).Info("Refresh metrics summary")
}
