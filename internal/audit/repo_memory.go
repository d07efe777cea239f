package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps events in process when DB_HOST is unset. With a positive
// capacity the oldest events are dropped first.
type MemoryRepo struct {
	mu       sync.Mutex
	events   []Event
	capacity int
}

func NewMemoryRepo(capacity int) *MemoryRepo { return &MemoryRepo{capacity: capacity} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	if r.capacity > 0 && len(r.events) > r.capacity {
		drop := len(r.events) - r.capacity
		r.events = append(r.events[:0:0], r.events[drop:]...)
	}
	return nil
}

func (r *MemoryRepo) Find(ctx context.Context, f Filter) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	limit := f.limit()
	out := make([]Event, 0, min(limit, len(r.events)))
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.matches(r.events[i]) {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

// Events returns everything retained, oldest first.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
