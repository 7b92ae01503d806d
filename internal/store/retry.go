package store

import (
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how often and how patiently unprocessed batch items are
// resubmitted.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter is the fraction of each delay that is randomised, in [0, 1].
	Jitter float64
}

// DefaultRetryPolicy mirrors the production settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 5,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Jitter:     0.2,
	}
}

// Delay returns the wait before retry number attempt (0-based): BaseDelay
// doubled per attempt, capped at MaxDelay, then reduced by up to Jitter.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.MaxDelay
	if attempt < 32 {
		if shifted := p.BaseDelay << attempt; shifted > 0 && (p.MaxDelay <= 0 || shifted < p.MaxDelay) {
			d = shifted
		}
	}
	if d <= 0 {
		d = p.BaseDelay
	}
	if p.Jitter > 0 {
		j := min(p.Jitter, 1)
		d -= time.Duration(j * rand.Float64() * float64(d))
	}
	return d
}

// Allows reports whether retry number attempt (0-based) is within budget.
func (p RetryPolicy) Allows(attempt int) bool {
	return attempt < p.MaxRetries
}
