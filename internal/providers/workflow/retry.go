package workflow

import (
	"math"
	"time"
)

// errorMatches reports whether code is named by errorEquals, honoring the
// "States.ALL" wildcard (spec §4.5.5).
func errorMatches(errorEquals []string, code string) bool {
	for _, e := range errorEquals {
		if e == "States.ALL" || e == code {
			return true
		}
	}
	return false
}

// selectRetrier returns the first RetryConfig matching code, in list
// order.
func selectRetrier(retries []RetryConfig, code string) *RetryConfig {
	for i := range retries {
		if errorMatches(retries[i].ErrorEquals, code) {
			return &retries[i]
		}
	}
	return nil
}

// selectCatcher returns the first CatchConfig matching code, in list
// order.
func selectCatcher(catches []CatchConfig, code string) *CatchConfig {
	for i := range catches {
		if errorMatches(catches[i].ErrorEquals, code) {
			return &catches[i]
		}
	}
	return nil
}

// nextDelay advances r's attempt counter and reports the wait before the
// next attempt, or ok=false once MaxAttempts is exhausted. Wait follows
// interval * backoff_rate^attempt (spec §4.5.5), attempt counted from 0.
func nextDelay(r *RetryConfig) (wait time.Duration, ok bool) {
	if r.attempt >= r.MaxAttempts {
		return 0, false
	}
	interval := r.IntervalSecs
	if interval <= 0 {
		interval = 1.0
	}
	backoff := r.BackoffRate
	if backoff <= 0 {
		backoff = 2.0
	}
	wait = time.Duration(interval * math.Pow(backoff, float64(r.attempt)) * float64(time.Second))
	r.attempt++
	return wait, true
}
