package tracking

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo is a simple in-memory event repository for tests and early
// development. It mirrors the Postgres repo's ordering contract.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event

	// FailReads makes read methods error, for exercising store-failure paths.
	FailReads error
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Insert(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *MemoryRepo) Count(ctx context.Context, f Filter) (int, error) {
	if r.FailReads != nil {
		return 0, r.FailReads
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if matches(e, f) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepo) Stream(ctx context.Context, f Filter, fn func(Event) error) error {
	if r.FailReads != nil {
		return r.FailReads
	}
	r.mu.Lock()
	matched := make([]Event, 0)
	for _, e := range r.events {
		if matches(e, f) {
			matched = append(matched, e)
		}
	}
	r.mu.Unlock()

	// timestamp descending, same as the Postgres cursor
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	for _, e := range matched {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Events returns a copy of everything stored, in insertion order.
func (r *MemoryRepo) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func matches(e Event, f Filter) bool {
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && e.Timestamp.After(f.To) {
		return false
	}
	if f.ComponentName != "" && e.ComponentName != f.ComponentName {
		return false
	}
	if f.ProjectID != "" && e.ProjectID != f.ProjectID {
		return false
	}
	return true
}
