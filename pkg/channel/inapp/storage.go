package inapp

import (
	"context"
	"slices"
	"sync"
	"time"
)

// Storage persists inbox entries.
type Storage interface {
	Create(ctx context.Context, n Notification) error
	List(ctx context.Context, userID string, opts ListOptions) ([]Notification, error)
	MarkRead(ctx context.Context, userID string, ids ...string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// MemoryStorage keeps inboxes in memory. Suitable for development and tests.
type MemoryStorage struct {
	mu    sync.RWMutex
	inbox map[string][]Notification
	now   func() time.Time
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{inbox: make(map[string][]Notification), now: time.Now}
}

// Create stores n.
func (s *MemoryStorage) Create(_ context.Context, n Notification) error {
	if n.ID == "" {
		return ErrMissingID
	}
	if n.UserID == "" {
		return ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	s.inbox[n.UserID] = append(s.inbox[n.UserID], n)
	return nil
}

// List returns matching entries, newest first.
func (s *MemoryStorage) List(_ context.Context, userID string, opts ListOptions) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Notification
	for _, n := range s.inbox[userID] {
		if opts.match(n) {
			out = append(out, n)
		}
	}

	slices.SortStableFunc(out, func(a, b Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if opts.Offset >= len(out) {
		return []Notification{}, nil
	}
	end := len(out)
	if opts.Limit > 0 && opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return out[opts.Offset:end], nil
}

// MarkRead marks the given entries read. With no ids every entry is marked.
func (s *MemoryStorage) MarkRead(_ context.Context, userID string, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entries := s.inbox[userID]
	for i := range entries {
		if entries[i].Read || (len(ids) > 0 && !slices.Contains(ids, entries[i].ID)) {
			continue
		}
		entries[i].Read = true
		entries[i].ReadAt = &now
	}
	return nil
}

func (s *MemoryStorage) CountUnread(_ context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.inbox[userID] {
		if !n.Read {
			count++
		}
	}
	return count, nil
}
