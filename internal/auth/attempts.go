package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter bounds consecutive failed PIN logins per subject.
// After max failures the subject is locked out for the configured window.
//
// Counters are best-effort: a limiter backend outage must not grant a
// bypass, so backend errors are surfaced to the caller.
type AttemptLimiter struct {
	store   AttemptStore
	max     int
	lockout time.Duration
}

// AttemptStore is the persistence contract for failure counters.
type AttemptStore interface {
	// Incr increments the counter for key, setting ttl on first increment,
	// and returns the new value.
	Incr(ctx context.Context, key string, ttl time.Duration) (int, error)
	// Get returns the current counter value (0 if absent).
	Get(ctx context.Context, key string) (int, error)
	// Del removes the counter.
	Del(ctx context.Context, key string) error
}

func NewAttemptLimiter(store AttemptStore, max int, lockout time.Duration) *AttemptLimiter {
	if max <= 0 {
		max = 3
	}
	if lockout <= 0 {
		lockout = 5 * time.Minute
	}
	return &AttemptLimiter{store: store, max: max, lockout: lockout}
}

// Locked reports whether the subject has exhausted its attempts.
func (l *AttemptLimiter) Locked(ctx context.Context, subject string) (bool, error) {
	n, err := l.store.Get(ctx, attemptKey(subject))
	if err != nil {
		return false, err
	}
	return n >= l.max, nil
}

// RecordFailure registers a failed attempt and returns how many remain.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, subject string) (remaining int, err error) {
	n, err := l.store.Incr(ctx, attemptKey(subject), l.lockout)
	if err != nil {
		return 0, err
	}
	remaining = l.max - n
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Reset clears the counter after a successful login.
func (l *AttemptLimiter) Reset(ctx context.Context, subject string) error {
	return l.store.Del(ctx, attemptKey(subject))
}

func attemptKey(subject string) string {
	return fmt.Sprintf("auth:pin_attempts:%s", subject)
}

/* ===================== STORES ===================== */

// RedisAttemptStore keeps counters in Redis so lockouts survive restarts
// and apply across instances.
type RedisAttemptStore struct {
	RDB *redis.Client
}

func (s *RedisAttemptStore) Incr(ctx context.Context, key string, ttl time.Duration) (int, error) {
	n, err := s.RDB.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := s.RDB.PExpire(ctx, key, ttl).Err(); err != nil {
			return int(n), err
		}
	}
	return int(n), nil
}

func (s *RedisAttemptStore) Get(ctx context.Context, key string) (int, error) {
	n, err := s.RDB.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *RedisAttemptStore) Del(ctx context.Context, key string) error {
	return s.RDB.Del(ctx, key).Err()
}

// MemoryAttemptStore is a simple in-memory store useful for tests.
// TTL expiry is not simulated; tests reset explicitly.
type MemoryAttemptStore struct {
	counts map[string]int
}

func NewMemoryAttemptStore() *MemoryAttemptStore {
	return &MemoryAttemptStore{counts: map[string]int{}}
}

func (s *MemoryAttemptStore) Incr(ctx context.Context, key string, ttl time.Duration) (int, error) {
	_ = ctx
	_ = ttl
	s.counts[key]++
	return s.counts[key], nil
}

func (s *MemoryAttemptStore) Get(ctx context.Context, key string) (int, error) {
	_ = ctx
	return s.counts[key], nil
}

func (s *MemoryAttemptStore) Del(ctx context.Context, key string) error {
	_ = ctx
	delete(s.counts, key)
	return nil
}
