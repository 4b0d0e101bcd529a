package ratelimit

import (
	"context"
	"sync"
	"time"

	"sdp-backend/internal/timeutil"
)

// sweepEvery controls how often Take drops buckets whose window has passed
const sweepEvery = 1024

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps buckets in process memory. Counters are not shared
// between instances: N replicas behind a load balancer each enforce their
// own ceiling, so the effective limit is N times the configured one. Use
// RedisStore when that matters.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     timeutil.Clock
	takes   int
}

func NewMemoryStore(clock timeutil.Clock) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     timeutil.OrNow(clock),
	}
}

func (s *MemoryStore) Take(_ context.Context, key string, limit int, window time.Duration) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.takes++
	if s.takes%sweepEvery == 0 {
		s.sweep(now)
	}

	b, ok := s.buckets[key]
	if !ok || now.After(b.resetAt) {
		b = &bucket{count: 0, resetAt: now.Add(window)}
		s.buckets[key] = b
	}
	b.count++

	return newResult(b.count, limit, b.resetAt), nil
}

// Len reports how many buckets are currently held
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *MemoryStore) sweep(now time.Time) {
	for k, b := range s.buckets {
		if now.After(b.resetAt) {
			delete(s.buckets, k)
		}
	}
}
