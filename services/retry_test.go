package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/config"
	"github.com/NanoLinuxDevops/WinSphere/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRetryConsumesFullBudget(t *testing.T) {
	cfg := refreshTestConfig()
	fetcher := &scriptedFetcher{script: func(int) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}}
	controller := NewRetryController(cfg)

	_, attempts, err := controller.FetchWithRetry(context.Background(), fetcher)

	require.Error(t, err)
	assert.Equal(t, cfg.MaxRetries, attempts)
	assert.Equal(t, cfg.MaxRetries, fetcher.callCount())

	refreshErr, ok := err.(*shared.RefreshError)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorKindNetwork, refreshErr.Kind)
	assert.True(t, refreshErr.Retryable)
	assert.Contains(t, refreshErr.Message, "All 3 fetch attempts failed")
}

func TestFetchWithRetryStopsOnNonRetryableError(t *testing.T) {
	fetcher := &scriptedFetcher{script: func(int) (string, error) {
		return "", errors.New("malformed response body")
	}}
	controller := NewRetryController(refreshTestConfig())

	_, attempts, err := controller.FetchWithRetry(context.Background(), fetcher)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, fetcher.callCount())
}

func TestFetchWithRetrySucceedsAfterTransientFailure(t *testing.T) {
	fetcher := &scriptedFetcher{script: func(call int) (string, error) {
		if call < 3 {
			return "", errors.New("dial tcp: connection reset")
		}
		return validArchiveCSV(10), nil
	}}
	controller := NewRetryController(refreshTestConfig())

	payload, attempts, err := controller.FetchWithRetry(context.Background(), fetcher)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.NotEmpty(t, payload)
}

func TestFetchWithRetryClampsEmptyBudget(t *testing.T) {
	// A config built without ValidateAndApplyDefaults must still get at
	// least one fetch attempt and a classified error back
	cfg := config.RefreshConfig{FallbackToCachedData: true}
	fetcher := &scriptedFetcher{script: func(int) (string, error) {
		return "", errors.New("dial tcp: connection refused")
	}}
	controller := NewRetryController(cfg)

	_, attempts, err := controller.FetchWithRetry(context.Background(), fetcher)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, fetcher.callCount())

	refreshErr, ok := err.(*shared.RefreshError)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorKindNetwork, refreshErr.Kind)
}

func TestFetchWithRetryHonorsContextCancellation(t *testing.T) {
	fetcher := &scriptedFetcher{
		delay: 5 * time.Second,
		script: func(int) (string, error) {
			return validArchiveCSV(10), nil
		},
	}
	controller := NewRetryController(refreshTestConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, _, err := controller.FetchWithRetry(ctx, fetcher)

	require.Error(t, err)
	refreshErr, ok := err.(*shared.RefreshError)
	require.True(t, ok)
	assert.Equal(t, shared.ErrorKindTimeout, refreshErr.Kind)
}
