package ratelimit

import (
	"context"
	"time"
)

// Rule is a ceiling of Limit hits per Window
type Rule struct {
	Limit  int
	Window time.Duration
}

// Limiter splits one store into two keyspaces so that per-IP throttling and
// application keys (such as "resend:<email>") never share a counter.
type Limiter struct {
	store Store
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// TakeIP counts a hit against the caller's IP address
func (l *Limiter) TakeIP(ctx context.Context, ip string, rule Rule) (Result, error) {
	return l.store.Take(ctx, "ip:"+ip, rule.Limit, rule.Window)
}

// TakeKey counts a hit against a composite application key
func (l *Limiter) TakeKey(ctx context.Context, key string, rule Rule) (Result, error) {
	return l.store.Take(ctx, "app:"+key, rule.Limit, rule.Window)
}
