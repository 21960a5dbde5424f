package githubapi

import (
	"time"

	"github.com/google/go-github/v75/github"
)

const (
	remainingQuotaLowWaterMarkConstant = 10
	quotaSafetyMarginConstant          = 10 * time.Second
)

// quotaGate carries the only transport state between calls: the remaining
// request quota and the reset timestamp observed on the latest response.
type quotaGate struct {
	remainingQuota int
	resetTime      time.Time
	observed       bool
}

func newQuotaGate() *quotaGate {
	return &quotaGate{}
}

// observe records rate metadata from a response. Callers invoke it on every
// response, not only on rate-limit rejections.
func (gate *quotaGate) observe(rate github.Rate) {
	if rate.Limit == 0 && rate.Remaining == 0 && rate.Reset.Time.IsZero() {
		return
	}
	gate.remainingQuota = rate.Remaining
	gate.resetTime = rate.Reset.Time
	gate.observed = true
}

// waitDuration returns how long the next call must be delayed to respect the
// low-water mark, or zero when the call may proceed immediately.
func (gate *quotaGate) waitDuration(currentTime time.Time) time.Duration {
	if !gate.observed {
		return 0
	}
	if gate.remainingQuota >= remainingQuotaLowWaterMarkConstant {
		return 0
	}

	untilReset := gate.resetTime.Sub(currentTime)
	if untilReset < 0 {
		untilReset = 0
	}
	return untilReset + quotaSafetyMarginConstant
}

// markRecovered clears the observed state after a gate sleep so the next call
// proceeds on the assumption the quota window has rolled over.
func (gate *quotaGate) markRecovered() {
	gate.observed = false
}

// recoveryDuration returns how long to sleep after an explicit rate-limit
// rejection before retrying the same call.
func (gate *quotaGate) recoveryDuration(currentTime time.Time, resetTime time.Time) time.Duration {
	untilReset := resetTime.Sub(currentTime)
	if untilReset < 0 {
		untilReset = 0
	}
	return untilReset + quotaSafetyMarginConstant
}
