package domain

import (
	"time"

	"github.com/reshetovitsme/rss-magazine/internal/shared/errors"
	"github.com/samber/oops"
)

// RetryPolicy bounds how often and how patiently a fetch is retried.
// The delay between attempts is drawn uniformly from [MinDelay, MaxDelay].
type RetryPolicy struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy is three attempts with one to three seconds between them
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MinDelay:    time.Second,
		MaxDelay:    3 * time.Second,
	}
}

// Validate rejects policies that would retry forever or wait a negative time
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return oops.With("max_attempts", p.MaxAttempts).Wrap(errors.ErrInvalidPolicy)
	}
	if p.MinDelay < 0 || p.MaxDelay < p.MinDelay {
		return oops.With("min_delay", p.MinDelay, "max_delay", p.MaxDelay).Wrap(errors.ErrInvalidPolicy)
	}
	return nil
}

// Jitter is the random part of the delay
func (p RetryPolicy) Jitter() time.Duration {
	return p.MaxDelay - p.MinDelay
}
