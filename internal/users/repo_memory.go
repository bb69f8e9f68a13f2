package users

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory user repository for tests and early
// development. It enforces the same one-principal-per-email invariant as the
// Postgres UNIQUE constraint.

type MemoryRepo struct {
	mu      sync.Mutex
	byEmail map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byEmail: map[string]User{}}
}

func (r *MemoryRepo) Create(ctx context.Context, u User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[u.Email]; exists {
		return ErrEmailTaken
	}
	r.byEmail[u.Email] = u
	return nil
}

func (r *MemoryRepo) FindByEmail(ctx context.Context, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

// Len reports the number of stored principals.
func (r *MemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byEmail)
}
