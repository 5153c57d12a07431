package callrecord

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
// Histories are kept most-recent-first, matching the Postgres ordering.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string][]CallRecord // ownerPhone -> history
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string][]CallRecord{}}
}

func (r *MemoryRepo) Append(ctx context.Context, rec CallRecord) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	// Prepend: newest entry first.
	r.records[rec.OwnerPhone] = append([]CallRecord{rec}, r.records[rec.OwnerPhone]...)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, ownerPhone string) ([]CallRecord, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallRecord(nil), r.records[ownerPhone]...), nil
}

func (r *MemoryRepo) MarkRead(ctx context.Context, ownerPhone, recordID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, rec := range r.records[ownerPhone] {
		if rec.ID == recordID {
			r.records[ownerPhone][i].Status = StatusRead
			return nil
		}
	}
	return ErrNotFound
}
