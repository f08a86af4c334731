package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorKind represents the failure taxonomy of the refresh pipeline
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindCORS       ErrorKind = "cors"
	ErrorKindServer     ErrorKind = "server"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindProcessing ErrorKind = "processing"
	ErrorKindUnknown    ErrorKind = "unknown"
)

// RefreshError represents a classified refresh failure with retry context
type RefreshError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Cause     error     `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (e *RefreshError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *RefreshError) Unwrap() error {
	return e.Cause
}

// NewRefreshError creates a new refresh error with the retryability implied
// by its kind: network, timeout, cors and server failures may succeed on a
// later attempt; validation and processing failures cannot, since retrying
// an unchanged bad payload does not help.
func NewRefreshError(kind ErrorKind, message, operation string, cause error) *RefreshError {
	return &RefreshError{
		Kind:      kind,
		Message:   message,
		Retryable: kindIsRetryable(kind),
		Timestamp: time.Now(),
		Operation: operation,
		Cause:     cause,
	}
}

// WithDetails adds additional details to the error
func (e *RefreshError) WithDetails(details string) *RefreshError {
	e.Details = details
	return e
}

func kindIsRetryable(kind ErrorKind) bool {
	switch kind {
	case ErrorKindNetwork, ErrorKindTimeout, ErrorKindCORS, ErrorKindServer:
		return true
	default:
		return false
	}
}

// EstimatedRetrySeconds returns the per-kind hint surfaced to callers.
// It is independent of the actual backoff delay used internally.
func (e *RefreshError) EstimatedRetrySeconds() int {
	switch e.Kind {
	case ErrorKindNetwork:
		return 30
	case ErrorKindTimeout:
		return 60
	case ErrorKindCORS:
		return 120
	case ErrorKindServer:
		return 300
	default:
		return 60
	}
}

// ClassifyError assigns a kind to an arbitrary failure by matching its
// lowercased text against known substrings in priority order.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	if refreshErr, ok := err.(*RefreshError); ok {
		return refreshErr.Kind
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded", "aborted", "canceled", "cancelled"):
		return ErrorKindTimeout
	case containsAny(msg, "cors", "cross-origin"):
		return ErrorKindCORS
	case containsAny(msg, "500", "502", "503", "504"):
		return ErrorKindServer
	case containsAny(msg, "network", "fetch", "connection", "no such host", "refused", "reset"):
		return ErrorKindNetwork
	default:
		return ErrorKindUnknown
	}
}

// Classify wraps an arbitrary error into a RefreshError, preserving an
// existing classification when present.
func Classify(err error, operation string) *RefreshError {
	if err == nil {
		return nil
	}
	if refreshErr, ok := err.(*RefreshError); ok {
		if refreshErr.Operation == "" {
			refreshErr.Operation = operation
		}
		return refreshErr
	}
	return NewRefreshError(ClassifyError(err), err.Error(), operation, err)
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// IsRetryableError checks if an error is retryable
func IsRetryableError(err error) bool {
	if refreshErr, ok := err.(*RefreshError); ok {
		return refreshErr.Retryable
	}
	return kindIsRetryable(ClassifyError(err))
}

// LogError logs the error with structured fields
func (e *RefreshError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_kind":       e.Kind,
		"error_message":    e.Message,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Refresh error occurred")
}
