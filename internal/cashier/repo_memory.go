package cashier

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
type MemoryRepo struct {
	mu      sync.Mutex
	entries []Entry
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Entry) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *MemoryRepo) FindByIdempotencyKey(ctx context.Context, managerName, key string) (Entry, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ManagerName == managerName && e.IdempotencyKey == key {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (r *MemoryRepo) ListSince(ctx context.Context, managerName string, from time.Time) ([]Entry, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Entry
	for _, e := range r.entries {
		if e.ManagerName == managerName && !e.CreatedAt.Before(from) {
			out = append(out, e)
		}
	}
	return out, nil
}
