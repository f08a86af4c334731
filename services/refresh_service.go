package services

import (
	"context"
	"sync"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/config"
	"github.com/NanoLinuxDevops/WinSphere/models"
	"github.com/NanoLinuxDevops/WinSphere/shared"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Refresh pipeline states, observable through State()
const (
	StateIdle          = "idle"
	StateCheckingCache = "checking-cache"
	StateFetching      = "fetching"
	StateValidating    = "validating"
	StateParsing       = "parsing"
	StateCaching       = "caching"
	StateDone          = "done"
	StateFailed        = "failed"
)

// minAcceptedRecords is the smallest dataset a refresh will accept as a
// successful outcome.
const minAcceptedRecords = 5

// DataRefreshService orchestrates the full refresh pipeline: cache check,
// fetch with retry, validation, parsing, caching and fallback. Concurrent
// refresh calls are coalesced onto one in-flight operation and share its
// result.
type DataRefreshService struct {
	config    config.RefreshConfig
	fetcher   ArchiveFetcher
	retry     *RetryController
	validator *DrawDataValidator
	parser    *DrawRecordParser
	cache     *DrawCacheService
	reports   *QualityReportGenerator
	synthetic *SyntheticDataGenerator
	metrics   *shared.RefreshMetrics
	logger    *logrus.Entry

	group singleflight.Group

	mutex      sync.RWMutex
	state      string
	lastReport *models.QualityReport
}

func NewDataRefreshService(cfg config.RefreshConfig, fetcher ArchiveFetcher, cache *DrawCacheService) *DataRefreshService {
	return &DataRefreshService{
		config:    cfg,
		fetcher:   fetcher,
		retry:     NewRetryController(cfg),
		validator: NewDrawDataValidatorWithConfig(ValidatorConfig{MinValidRecords: minAcceptedRecords}),
		parser:    NewDrawRecordParser(cfg.MaxCacheSize),
		cache:     cache,
		reports:   NewQualityReportGenerator(),
		synthetic: NewSyntheticDataGenerator(),
		metrics:   shared.NewRefreshMetrics(),
		logger:    logrus.WithField("component", "DataRefreshService"),
		state:     StateIdle,
	}
}

// Refresh runs one refresh operation. With force set, fresh cached data is
// bypassed and a new download is attempted. Calls arriving while an
// operation is in flight receive that operation's result: force only
// changes the pre-fetch cache check, so once a fetch is underway both
// call kinds share it instead of issuing a second download.
func (s *DataRefreshService) Refresh(ctx context.Context, force bool) models.RefreshResult {
	value, _, coalesced := s.group.Do("refresh", func() (interface{}, error) {
		return s.runRefresh(ctx, force), nil
	})
	if coalesced {
		s.metrics.RecordCoalescedRequest()
		s.logger.Debug("Refresh request coalesced onto in-flight operation")
	}
	return value.(models.RefreshResult)
}

func (s *DataRefreshService) runRefresh(ctx context.Context, force bool) models.RefreshResult {
	operationID := uuid.NewString()
	started := time.Now()
	logger := s.logger.WithField("operation_id", operationID)

	logger.WithField("force", force).Info("Starting data refresh")

	s.setState(StateCheckingCache)
	if !force && s.cache.IsFresh() {
		if records, err := s.cache.GetCachedData(); err == nil {
			age, _ := s.cache.GetDataAge()
			logger.WithField("record_count", len(records)).Info("Serving fresh cached data")
			s.setState(StateDone)
			result := models.RefreshResult{
				OperationID:  operationID,
				Success:      true,
				Data:         records,
				FromCache:    true,
				DataAgeHours: age.Hours(),
				RecordCount:  len(records),
			}
			s.metrics.RecordRefresh(true, false, 0, time.Since(started))
			return result
		}
	}

	s.setState(StateFetching)
	payload, attempts, fetchErr := s.retry.FetchWithRetry(ctx, s.fetcher)
	if fetchErr != nil {
		classified := shared.Classify(fetchErr, "fetch_archive")
		s.metrics.RecordFetchFailure(classified.Kind)
		classified.LogError()
		return s.finishWithFallback(operationID, started, attempts, classified, logger)
	}

	s.setState(StateValidating)
	outcome := s.validator.Validate(payload)
	report := s.reports.Generate(outcome)
	s.storeReport(report)
	if !outcome.IsValid {
		message := "Downloaded data failed validation"
		if len(outcome.Errors) > 0 {
			message = outcome.Errors[0]
		}
		validationErr := shared.NewRefreshError(shared.ErrorKindValidation, message, "validate_data", nil).
			WithDetails(joinBounded(outcome.Errors, 5))
		validationErr.LogError()
		return s.finishWithFallback(operationID, started, attempts, validationErr, logger)
	}

	s.setState(StateParsing)
	records, parseErr := s.parser.Parse(ctx, payload)
	if parseErr != nil {
		classified := shared.Classify(parseErr, "parse_data")
		return s.finishWithFallback(operationID, started, attempts, classified, logger)
	}
	if len(records) < minAcceptedRecords {
		processingErr := shared.NewRefreshError(shared.ErrorKindProcessing,
			"Parsed dataset is too small to accept", "parse_data", nil)
		processingErr.LogError()
		return s.finishWithFallback(operationID, started, attempts, processingErr, logger)
	}

	s.setState(StateCaching)
	if err := s.cache.Save(records); err != nil {
		// The fresh data is in hand; a cache write failure degrades
		// future fallback but not this refresh
		logger.WithError(err).Warn("Failed to persist refreshed data to cache")
	}

	s.setState(StateDone)
	logger.WithFields(logrus.Fields{
		"record_count":   len(records),
		"retry_attempts": attempts,
		"quality_score":  outcome.DataQualityScore,
	}).Info("Data refresh completed")

	s.metrics.RecordRefresh(true, false, attempts, time.Since(started))
	return models.RefreshResult{
		OperationID:   operationID,
		Success:       true,
		Data:          records,
		RecordCount:   len(records),
		RetryAttempts: attempts,
	}
}

// finishWithFallback resolves a failed pipeline: cached data first, then
// synthetic data when explicitly enabled, otherwise a terminal failure.
func (s *DataRefreshService) finishWithFallback(operationID string, started time.Time, attempts int, cause *shared.RefreshError, logger *logrus.Entry) models.RefreshResult {
	details := errorDetails(cause)

	if s.config.FallbackToCachedData {
		if records, err := s.cache.GetCachedData(); err == nil && len(records) > 0 {
			age, _ := s.cache.GetDataAge()
			logger.WithFields(logrus.Fields{
				"record_count":   len(records),
				"data_age_hours": age.Hours(),
			}).Warn("Refresh failed, falling back to cached data")

			s.setState(StateDone)
			s.metrics.RecordRefresh(true, true, attempts, time.Since(started))
			return models.RefreshResult{
				OperationID:   operationID,
				Success:       true,
				Data:          records,
				Error:         cause.Message,
				ErrorDetails:  details,
				FromCache:     true,
				FallbackUsed:  true,
				DataAgeHours:  age.Hours(),
				RecordCount:   len(records),
				RetryAttempts: attempts,
			}
		}
	}

	if s.config.AllowSyntheticFallback {
		records := s.synthetic.Generate(50, 0)
		logger.Warn("Refresh failed with no cached data, serving synthetic records")

		s.setState(StateDone)
		s.metrics.RecordRefresh(true, true, attempts, time.Since(started))
		return models.RefreshResult{
			OperationID:   operationID,
			Success:       true,
			Data:          records,
			Error:         cause.Message,
			ErrorDetails:  details,
			FallbackUsed:  true,
			Synthetic:     true,
			RecordCount:   len(records),
			RetryAttempts: attempts,
		}
	}

	logger.WithField("error_kind", cause.Kind).Error("Refresh failed with no usable fallback")
	s.setState(StateFailed)
	s.metrics.RecordRefresh(false, false, attempts, time.Since(started))
	return models.RefreshResult{
		OperationID:   operationID,
		Success:       false,
		Error:         cause.Message,
		ErrorDetails:  details,
		RetryAttempts: attempts,
	}
}

// State returns the current pipeline state
func (s *DataRefreshService) State() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

// LastQualityReport returns the report from the most recent validation,
// or nil when no payload has been validated yet.
func (s *DataRefreshService) LastQualityReport() *models.QualityReport {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastReport
}

// Metrics returns a snapshot of refresh metrics
func (s *DataRefreshService) Metrics() map[string]interface{} {
	return s.metrics.Snapshot()
}

// Cache exposes the cache service for diagnostic surfaces
func (s *DataRefreshService) Cache() *DrawCacheService {
	return s.cache
}

func (s *DataRefreshService) setState(state string) {
	s.mutex.Lock()
	s.state = state
	s.mutex.Unlock()
}

func (s *DataRefreshService) storeReport(report models.QualityReport) {
	s.mutex.Lock()
	s.lastReport = &report
	s.mutex.Unlock()
}

func errorDetails(err *shared.RefreshError) *models.RefreshErrorDetails {
	if err == nil {
		return nil
	}
	details := &models.RefreshErrorDetails{
		Kind:      string(err.Kind),
		Message:   err.Message,
		Details:   err.Details,
		Retryable: err.Retryable,
	}
	if err.Retryable {
		details.EstimatedRetrySecs = err.EstimatedRetrySeconds()
	}
	return details
}

func joinBounded(messages []string, limit int) string {
	if len(messages) == 0 {
		return ""
	}
	if len(messages) > limit {
		messages = messages[:limit]
	}
	joined := messages[0]
	for _, m := range messages[1:] {
		joined += "; " + m
	}
	return joined
}
