package operator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is a simple in-memory repository useful for tests and early development.
type MemoryRepo struct {
	mu        sync.Mutex
	operators map[string]Operator // keyed by lowercase name
	numbers   map[string][]string // lowercase name -> available numbers
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		operators: map[string]Operator{},
		numbers:   map[string][]string{},
	}
}

func (r *MemoryRepo) GetByName(ctx context.Context, name string) (Operator, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.operators[strings.ToLower(name)]
	return o, ok, nil
}

func (r *MemoryRepo) GetAll(ctx context.Context) ([]Operator, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Operator, 0, len(r.operators))
	for _, o := range r.operators {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepo) Insert(ctx context.Context, o Operator, numbers []string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(o.Name)
	r.operators[key] = o
	r.numbers[key] = append([]string(nil), numbers...)
	return nil
}

func (r *MemoryRepo) Rename(ctx context.Context, oldName, newName string, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	oldKey := strings.ToLower(oldName)
	o, ok := r.operators[oldKey]
	if !ok {
		return ErrNotFound
	}
	delete(r.operators, oldKey)
	o.Name = newName
	o.UpdatedAt = now
	newKey := strings.ToLower(newName)
	r.operators[newKey] = o
	r.numbers[newKey] = r.numbers[oldKey]
	delete(r.numbers, oldKey)
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, name string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	delete(r.operators, key)
	delete(r.numbers, key)
	return nil
}

func (r *MemoryRepo) AddIndex(ctx context.Context, name, index string, numbers []string, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	o, ok := r.operators[key]
	if !ok {
		return ErrNotFound
	}
	o.Indexes = append(o.Indexes, index)
	o.UpdatedAt = now
	r.operators[key] = o
	r.numbers[key] = append(r.numbers[key], numbers...)
	return nil
}

func (r *MemoryRepo) RemoveIndex(ctx context.Context, name, index string, now time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	o, ok := r.operators[key]
	if !ok {
		return ErrNotFound
	}
	kept := o.Indexes[:0]
	for _, idx := range o.Indexes {
		if idx != index {
			kept = append(kept, idx)
		}
	}
	o.Indexes = kept
	o.UpdatedAt = now
	r.operators[key] = o

	nums := r.numbers[key][:0]
	for _, n := range r.numbers[key] {
		if !strings.HasPrefix(n, index) {
			nums = append(nums, n)
		}
	}
	r.numbers[key] = nums
	return nil
}

func (r *MemoryRepo) ListNumbers(ctx context.Context, name string) ([]string, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.numbers[strings.ToLower(name)]...), nil
}

func (r *MemoryRepo) TakeNumber(ctx context.Context, name, phone string) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	nums := r.numbers[key]
	for i, n := range nums {
		if n == phone {
			r.numbers[key] = append(nums[:i], nums[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepo) FindByIndex(ctx context.Context, index string) (Operator, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.operators {
		if o.OwnsPrefix(index) {
			return o, true, nil
		}
	}
	return Operator{}, false, nil
}
