package callsession

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CallLock enforces a single active outgoing call per subscriber.
type CallLock interface {
	Acquire(ctx context.Context, phone string) (bool, error)
	Release(ctx context.Context, phone string) error
}

func activeCallKey(phone string) string { return "calls:active:" + phone }

// RedisCallLock backs the lock with Redis so the single-session guarantee
// holds across API replicas. The TTL bounds lock leakage if a process dies
// mid-call; calls run for at most the affordable window, so the TTL should
// comfortably exceed the longest call the deployment allows.
type RedisCallLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func (l *RedisCallLock) Acquire(ctx context.Context, phone string) (bool, error) {
	if l.Client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if l.TTL <= 0 {
		return false, fmt.Errorf("lock ttl must be > 0")
	}
	return l.Client.SetNX(ctx, activeCallKey(phone), "1", l.TTL).Result()
}

func (l *RedisCallLock) Release(ctx context.Context, phone string) error {
	if l.Client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return l.Client.Del(ctx, activeCallKey(phone)).Err()
}

// MemoryCallLock is the in-process variant used by tests and single-node
// deployments without Redis.
type MemoryCallLock struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryCallLock() *MemoryCallLock {
	return &MemoryCallLock{held: make(map[string]bool)}
}

func (l *MemoryCallLock) Acquire(_ context.Context, phone string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[phone] {
		return false, nil
	}
	l.held[phone] = true
	return true, nil
}

func (l *MemoryCallLock) Release(_ context.Context, phone string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, phone)
	return nil
}
