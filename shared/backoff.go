package shared

import (
	"math"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultBackoffBase is the first-attempt delay before kind scaling
	DefaultBackoffBase = 1 * time.Second

	// MaxBackoffDelay caps any computed delay, jitter included
	MaxBackoffDelay = 30 * time.Second

	// backoffJitterFraction is the maximum random fraction added on top of
	// the deterministic delay to avoid synchronized retries
	backoffJitterFraction = 0.3
)

// BackoffPolicy computes kind-aware exponential backoff delays between
// retry attempts.
type BackoffPolicy struct {
	baseDelay time.Duration
	maxDelay  time.Duration
	rng       *rand.Rand
}

// NewBackoffPolicy creates a backoff policy with production defaults
func NewBackoffPolicy() *BackoffPolicy {
	return NewBackoffPolicyWithBase(DefaultBackoffBase)
}

// NewBackoffPolicyWithBase creates a backoff policy with a custom base
// delay, mainly so tests can keep sleeps short.
func NewBackoffPolicyWithBase(base time.Duration) *BackoffPolicy {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	return &BackoffPolicy{
		baseDelay: base,
		maxDelay:  MaxBackoffDelay,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// kindMultiplier scales the base delay by failure kind: timeouts and
// server-side errors deserve longer pauses than plain network blips.
func kindMultiplier(kind ErrorKind) float64 {
	switch kind {
	case ErrorKindTimeout:
		return 2.0
	case ErrorKindServer:
		return 3.0
	case ErrorKindCORS:
		return 1.5
	default:
		return 1.0
	}
}

// Delay returns the sleep duration before retry number attempt (1-based):
// base × kind multiplier × 2^(attempt−1), plus up to 30% jitter, capped.
func (p *BackoffPolicy) Delay(attempt int, kind ErrorKind) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	scaled := float64(p.baseDelay) * kindMultiplier(kind)
	exponential := scaled * math.Pow(2, float64(attempt-1))
	jitter := exponential * backoffJitterFraction * p.rng.Float64()
	total := time.Duration(exponential + jitter)

	if total > p.maxDelay {
		total = p.maxDelay
	}

	logrus.WithFields(logrus.Fields{
		"component":  "BackoffPolicy",
		"attempt":    attempt,
		"error_kind": kind,
		"delay":      total,
	}).Debug("Computed retry backoff delay")

	return total
}
