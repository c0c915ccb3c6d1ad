// Package repository holds the in-memory backend used by tests and the memory driver.
package repository

import (
	"context"
	"sync"
)

// MemoryStore keeps collections in process memory. Used by tests and the
// memory driver.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	revs   map[string]int64
	closed bool
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte), revs: make(map[string]int64)}
}

// Get returns a copy of the stored value.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrStoreClosed
	}
	v, ok := s.data[key]
	return cloneBytes(v), ok, nil
}

// Revision returns the write counter of key.
func (s *MemoryStore) Revision(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrStoreClosed
	}
	return s.revs[key], nil
}

// PutAll stores every entry under one lock.
func (s *MemoryStore) PutAll(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	for _, e := range entries {
		s.data[e.Key] = cloneBytes(e.Value)
		s.revs[e.Key]++
	}
	return nil
}

// Clear removes every value. Revisions keep counting.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	for key := range s.data {
		s.revs[key]++
	}
	s.data = make(map[string][]byte)
	return nil
}

// Close marks the store closed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
