// Package common provides shared utilities for PerfLens
package common

import "time"

// Freshness TTLs for cached provider data. Symbol resolution and
// fundamentals move slowly; historical price batches churn intraday but
// re-fetching on every request is wasteful and rate-limit-risky.
const (
	FreshnessSearch       = 1 * time.Hour
	FreshnessFundamentals = 1 * time.Hour
	FreshnessHistory      = 10 * time.Minute
	FreshnessDividends    = 1 * time.Hour
	FreshnessInsiders     = 1 * time.Hour
	FreshnessNews         = 15 * time.Minute
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
