package command

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Repository loads and stores aggregates under optimistic versioning.
type Repository[A any] interface {
	Get(ctx context.Context, id string) (A, error)
	// Save stores next only if the stored version equals expectedVersion,
	// otherwise it returns ErrVersionConflict.
	Save(ctx context.Context, next A, expectedVersion int64) error
}

// MemoryRepository is a Repository kept in process memory.
type MemoryRepository[A Versioned[A]] struct {
	mu    sync.RWMutex
	items map[string]A
}

// NewMemoryRepository returns an empty in-process repository.
func NewMemoryRepository[A Versioned[A]]() *MemoryRepository[A] {
	return &MemoryRepository[A]{items: make(map[string]A)}
}

// Create stores a new aggregate at version 1.
func (r *MemoryRepository[A]) Create(_ context.Context, a A) (A, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[a.AggregateID()]; ok {
		var zero A
		return zero, ErrAlreadyExists
	}
	a = a.WithVersion(1)
	r.items[a.AggregateID()] = a
	return a, nil
}

func (r *MemoryRepository[A]) Get(_ context.Context, id string) (A, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		var zero A
		return zero, ErrNotFound
	}
	return a, nil
}

// Save replaces an existing aggregate still at expectedVersion.
func (r *MemoryRepository[A]) Save(_ context.Context, next A, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.items[next.AggregateID()]
	if !ok {
		return ErrNotFound
	}
	if cur.AggregateVersion() != expectedVersion {
		return ErrVersionConflict
	}
	r.items[next.AggregateID()] = next
	return nil
}

// IDs returns the stored aggregate IDs, sorted.
func (r *MemoryRepository[A]) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.items))
}
