// Package repository provides an LRU read cache in front of a Store.
package repository

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

type cachedDoc struct {
	value    []byte
	revision int64
}

// CachedStore decorates a Store with an LRU read cache of raw documents.
//
// When the backend is Versioned every hit is checked against the backend
// revision, so writes from another process sharing the backend are never
// shadowed by a stale entry. Otherwise the backend is assumed to be private to
// this process and hits are served as is.
type CachedStore struct {
	inner    Store
	versions Versioned
	cache    *lru.Cache
}

// NewCachedStore wraps inner with a cache holding up to size documents.
func NewCachedStore(inner Store, size int) (*CachedStore, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	versions, _ := inner.(Versioned)
	return &CachedStore{inner: inner, versions: versions, cache: cache}, nil
}

// Get serves the document from cache while its revision is current, reading
// through otherwise.
func (s *CachedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rev int64
	if s.versions != nil {
		r, err := s.versions.Revision(ctx, key)
		if err != nil {
			return nil, false, err
		}
		rev = r
	}

	if v, ok := s.cache.Get(key); ok {
		doc := v.(cachedDoc)
		if s.versions == nil || doc.revision == rev {
			return cloneBytes(doc.value), true, nil
		}
	}

	// The value may be newer than rev. It is then cached under an older
	// revision and the next Get reads through again.
	value, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		s.cache.Remove(key)
		return value, ok, err
	}
	s.cache.Add(key, cachedDoc{value: cloneBytes(value), revision: rev})
	return value, true, nil
}

// PutAll writes through. Revisioned entries are dropped and reloaded on the
// next Get, others are refreshed in place.
func (s *CachedStore) PutAll(ctx context.Context, entries []Entry) error {
	err := s.inner.PutAll(ctx, entries)
	for _, e := range entries {
		if err != nil || s.versions != nil {
			s.cache.Remove(e.Key)
			continue
		}
		s.cache.Add(e.Key, cachedDoc{value: cloneBytes(e.Value)})
	}
	return err
}

// Clear clears the backend and the cache.
func (s *CachedStore) Clear(ctx context.Context) error {
	defer s.cache.Purge()
	return s.inner.Clear(ctx)
}

// Close closes the backend.
func (s *CachedStore) Close() error {
	s.cache.Purge()
	return s.inner.Close()
}
