package services

import (
	"context"
	"fmt"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/config"
	"github.com/NanoLinuxDevops/WinSphere/shared"
	"github.com/sirupsen/logrus"
)

// RetryController drives the fetch-with-retry loop: bounded attempts,
// per-attempt timeouts, error classification and kind-aware backoff
// between attempts. MaxRetries counts total fetch invocations, not
// re-attempts after the first.
type RetryController struct {
	config  config.RefreshConfig
	backoff *shared.BackoffPolicy
	logger  *logrus.Entry
}

func NewRetryController(cfg config.RefreshConfig) *RetryController {
	// Callers may hand in a config that skipped ValidateAndApplyDefaults;
	// an empty attempt budget would mean no fetch at all
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = config.DefaultRefreshConfig().FetchTimeout
	}
	return &RetryController{
		config:  cfg,
		backoff: shared.NewBackoffPolicy(),
		logger:  logrus.WithField("component", "RetryController"),
	}
}

// FetchWithRetry runs fetcher.Fetch until it succeeds, a non-retryable
// failure occurs, the attempt budget is exhausted or ctx is done. It
// returns the payload, the number of attempts consumed and the classified
// error of the last attempt on failure.
func (c *RetryController) FetchWithRetry(ctx context.Context, fetcher ArchiveFetcher) (string, int, error) {
	var lastErr *shared.RefreshError

	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return "", attempt - 1, shared.Classify(ctx.Err(), "fetch_archive")
		}

		payload, err := c.fetchOnce(ctx, fetcher)
		if err == nil {
			c.logger.WithField("attempt", attempt).Debug("Archive fetch succeeded")
			return payload, attempt, nil
		}

		lastErr = shared.Classify(err, "fetch_archive")
		c.logger.WithFields(logrus.Fields{
			"attempt":     attempt,
			"max_retries": c.config.MaxRetries,
			"error_kind":  lastErr.Kind,
			"retryable":   lastErr.Retryable,
		}).Warn("Archive fetch attempt failed")

		if !lastErr.Retryable {
			return "", attempt, lastErr
		}
		if attempt == c.config.MaxRetries {
			break
		}

		delay := c.backoff.Delay(attempt, lastErr.Kind)
		c.logger.WithFields(logrus.Fields{
			"delay":        delay,
			"next_attempt": attempt + 1,
		}).Debug("Backing off before next fetch attempt")

		select {
		case <-ctx.Done():
			return "", attempt, shared.Classify(ctx.Err(), "fetch_archive")
		case <-time.After(delay):
		}
	}

	final := shared.NewRefreshError(lastErr.Kind,
		fmt.Sprintf("All %d fetch attempts failed: %s", c.config.MaxRetries, lastErr.Message),
		"fetch_archive", lastErr)
	// The budget for this refresh is spent but a later refresh may succeed
	final.Retryable = true
	return "", c.config.MaxRetries, final
}

// fetchOnce runs a single attempt under its own timeout so one hanging
// request cannot consume the whole retry budget.
func (c *RetryController) fetchOnce(ctx context.Context, fetcher ArchiveFetcher) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.config.FetchTimeout)
	defer cancel()

	payload, err := fetcher.Fetch(attemptCtx)
	if err != nil {
		if attemptCtx.Err() == context.DeadlineExceeded {
			return "", shared.NewRefreshError(shared.ErrorKindTimeout,
				fmt.Sprintf("Archive fetch timed out after %s", c.config.FetchTimeout),
				"fetch_archive", err)
		}
		return "", err
	}
	return payload, nil
}
