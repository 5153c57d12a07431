package subscriber

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
type MemoryRepo struct {
	mu   sync.Mutex
	subs map[string]Subscriber
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{subs: map[string]Subscriber{}}
}

func (r *MemoryRepo) GetByPhone(ctx context.Context, phone string) (Subscriber, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[phone]
	return s, ok, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, s Subscriber) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.Phone] = s
	return nil
}

func (r *MemoryRepo) ApplyCreditDelta(ctx context.Context, phone string, delta int64, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[phone]
	if !ok {
		return ErrNotFound
	}
	if s.CreditMinor+delta < 0 {
		return ErrInsufficientCredit
	}
	s.CreditMinor += delta
	s.UpdatedAt = now
	r.subs[phone] = s
	return nil
}

func (r *MemoryRepo) CountByPrefix(ctx context.Context, prefix string) (int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for phone := range r.subs {
		if strings.HasPrefix(phone, prefix) {
			n++
		}
	}
	return n, nil
}

// SetContacts replaces a subscriber's contact book. Test helper.
func (r *MemoryRepo) SetContacts(phone string, contacts []Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[phone]
	if !ok {
		return
	}
	s.Contacts = contacts
	r.subs[phone] = s
}
