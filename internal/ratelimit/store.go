// Package ratelimit implements fixed-window request counters.
//
// A window opens on the first hit for a key and lasts for the configured
// duration. Every hit inside the window increments the counter and is allowed
// only while the count stays at or below the limit. Once the window has
// passed, the next hit opens a fresh window with a count of one.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Result is the outcome of a single Take
type Result struct {
	Allowed   bool
	Count     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long the caller should wait before the window resets
func (r Result) RetryAfter(now time.Time) time.Duration {
	d := r.ResetAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Store holds buckets. Implementations must make Take atomic per key.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

func newResult(count, limit int, resetAt time.Time) Result {
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   count <= limit,
		Count:     count,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
