package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyErrorByMessage(t *testing.T) {
	cases := []struct {
		name     string
		message  string
		expected ErrorKind
	}{
		{"timeout word", "request timeout while fetching archive", ErrorKindTimeout},
		{"deadline exceeded", "context deadline exceeded", ErrorKindTimeout},
		{"aborted", "operation aborted by signal", ErrorKindTimeout},
		{"cors", "CORS policy blocked the request", ErrorKindCORS},
		{"http 500", "archive returned HTTP 500 for url", ErrorKindServer},
		{"http 503", "archive returned HTTP 503 for url", ErrorKindServer},
		{"connection refused", "dial tcp: connection refused", ErrorKindNetwork},
		{"dns failure", "lookup pais.co.il: no such host", ErrorKindNetwork},
		{"unclassified", "something odd happened", ErrorKindUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyError(errors.New(tc.message)))
		})
	}
}

func TestClassifyErrorPriorityOrder(t *testing.T) {
	// A message matching both timeout and network vocab classifies as
	// timeout, the more specific kind
	err := errors.New("network fetch timed out")
	assert.Equal(t, ErrorKindTimeout, ClassifyError(err))
}

func TestClassifyPreservesExistingClassification(t *testing.T) {
	original := NewRefreshError(ErrorKindValidation, "bad payload", "validate_data", nil)

	classified := Classify(original, "other_operation")
	assert.Equal(t, ErrorKindValidation, classified.Kind)
	assert.Equal(t, "validate_data", classified.Operation)
}

func TestRetryabilityByKind(t *testing.T) {
	retryable := []ErrorKind{ErrorKindNetwork, ErrorKindTimeout, ErrorKindCORS, ErrorKindServer}
	for _, kind := range retryable {
		err := NewRefreshError(kind, "failure", "fetch_archive", nil)
		assert.True(t, err.Retryable, "kind %s should be retryable", kind)
	}

	terminal := []ErrorKind{ErrorKindValidation, ErrorKindProcessing, ErrorKindUnknown}
	for _, kind := range terminal {
		err := NewRefreshError(kind, "failure", "fetch_archive", nil)
		assert.False(t, err.Retryable, "kind %s should not be retryable", kind)
	}
}

func TestEstimatedRetrySeconds(t *testing.T) {
	cases := map[ErrorKind]int{
		ErrorKindNetwork: 30,
		ErrorKindTimeout: 60,
		ErrorKindCORS:    120,
		ErrorKindServer:  300,
		ErrorKindUnknown: 60,
	}
	for kind, expected := range cases {
		err := NewRefreshError(kind, "failure", "fetch_archive", nil)
		assert.Equal(t, expected, err.EstimatedRetrySeconds())
	}
}

func TestRefreshErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset by peer")
	wrapped := NewRefreshError(ErrorKindNetwork, "archive unreachable", "fetch_archive", cause)

	require.ErrorIs(t, fmt.Errorf("outer: %w", wrapped), cause)
	assert.Equal(t, "[network] archive unreachable", wrapped.Error())
}

func TestIsRetryableErrorOnPlainErrors(t *testing.T) {
	assert.True(t, IsRetryableError(errors.New("connection refused")))
	assert.False(t, IsRetryableError(errors.New("malformed payload")))
}
