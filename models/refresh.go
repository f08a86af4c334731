package models

// RefreshErrorDetails is the serializable view of a classified refresh
// failure surfaced to callers.
type RefreshErrorDetails struct {
	Kind               string `json:"kind"`
	Message            string `json:"message"`
	Details            string `json:"details,omitempty"`
	Retryable          bool   `json:"retryable"`
	EstimatedRetrySecs int    `json:"estimated_retry_time,omitempty"`
}

// RefreshResult is the sole handoff point to the UI and prediction
// collaborators: one terminal outcome per refresh operation.
type RefreshResult struct {
	OperationID   string               `json:"operation_id"`
	Success       bool                 `json:"success"`
	Data          []DrawRecord         `json:"data,omitempty"`
	Error         string               `json:"error,omitempty"`
	ErrorDetails  *RefreshErrorDetails `json:"error_details,omitempty"`
	FromCache     bool                 `json:"from_cache"`
	DataAgeHours  float64              `json:"data_age"`
	RecordCount   int                  `json:"record_count"`
	RetryAttempts int                  `json:"retry_attempts,omitempty"`
	FallbackUsed  bool                 `json:"fallback_used,omitempty"`
	Synthetic     bool                 `json:"synthetic,omitempty"`
}
