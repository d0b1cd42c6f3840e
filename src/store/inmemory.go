package store

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore is a thread-safe in-memory implementation of Store.
// Used for tests and for runs that should not touch the disk.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		entries: make(map[string]Entry),
	}
}

// Get retrieves an entry by key.
func (s *InMemoryStore) Get(ctx context.Context, key string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneEntry(entry), nil
}

// Set saves an entry, indexed by its key.
func (s *InMemoryStore) Set(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.Key] = *cloneEntry(*entry)
	return nil
}

// Prune removes expired entries.
func (s *InMemoryStore) Prune(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.entries {
		if !entry.Fresh(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Clear removes all entries.
func (s *InMemoryStore) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.entries)
	s.entries = make(map[string]Entry)
	return removed, nil
}

// Len returns the number of stored entries.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close is a no-op for in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}

// cloneEntry copies the mutable parts of an entry so callers cannot alias stored data.
func cloneEntry(e Entry) *Entry {
	out := e
	if e.Header != nil {
		out.Header = e.Header.Clone()
	}
	if e.Body != nil {
		out.Body = append([]byte(nil), e.Body...)
	}
	return &out
}
