// Package repository implements the file backend: one JSON document per
// collection plus a revision map, committed through a batch journal.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	journalFile   = "batch.journal"
	revisionsFile = "revisions.json"
)

// fileBatch is the journal record of one PutAll or Clear. Once the journal is
// renamed into place the batch is committed; applying it is idempotent.
type fileBatch struct {
	Entries   []fileEntry      `json:"entries"`
	Revisions map[string]int64 `json:"revisions"`
}

type fileEntry struct {
	Key     string `json:"key"`
	Value   []byte `json:"value"`
	Deleted bool   `json:"deleted,omitempty"`
}

// FileStore keeps each collection in its own JSON file inside a directory.
//
// A write first commits the whole batch to a journal file, then replaces
// each collection file and the revision map, then removes the journal. Reads
// prefer a pending journal, and a journal left behind by a crash is replayed
// on open and before the next write, so a batch is seen entirely or not at all.
type FileStore struct {
	mu  sync.RWMutex
	dir string
}

// NewFileStore creates the directory if needed, finishes any interrupted
// batch and returns a FileStore over it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	s := &FileStore{dir: dir}
	if err := s.replay(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get reads the collection file for key.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, err := s.readJournal()
	if err != nil {
		return nil, false, err
	}
	if pending != nil {
		for _, e := range pending.Entries {
			if e.Key == key {
				if e.Deleted {
					return nil, false, nil
				}
				return cloneBytes(e.Value), true, nil
			}
		}
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

// Revision returns the revision of key from the revision map.
func (s *FileStore) Revision(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending, err := s.readJournal()
	if err != nil {
		return 0, err
	}
	if pending != nil {
		return pending.Revisions[key], nil
	}
	revs, err := s.readRevisions()
	if err != nil {
		return 0, err
	}
	return revs[key], nil
}

// PutAll commits every entry as one batch.
func (s *FileStore) PutAll(_ context.Context, entries []Entry) error {
	batch := make([]fileEntry, 0, len(entries))
	for _, e := range entries {
		batch = append(batch, fileEntry{Key: e.Key, Value: e.Value})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(batch)
}

// Clear deletes every collection file in one batch. Revisions keep counting.
func (s *FileStore) Clear(_ context.Context) error {
	batch := make([]fileEntry, 0, len(Keys()))
	for _, key := range Keys() {
		batch = append(batch, fileEntry{Key: key, Deleted: true})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(batch)
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}

// commit journals entries with bumped revisions and applies them.
// The caller holds the write lock.
func (s *FileStore) commit(entries []fileEntry) error {
	if err := s.replay(); err != nil {
		return err
	}
	revs, err := s.readRevisions()
	if err != nil {
		return err
	}
	for _, e := range entries {
		revs[e.Key]++
	}

	b := &fileBatch{Entries: entries, Revisions: revs}
	if err := s.writeJournal(b); err != nil {
		return err
	}
	return s.apply(b)
}

// replay applies a journal left by an interrupted batch.
func (s *FileStore) replay() error {
	pending, err := s.readJournal()
	if err != nil || pending == nil {
		return err
	}
	return s.apply(pending)
}

func (s *FileStore) apply(b *fileBatch) error {
	for _, e := range b.Entries {
		if e.Deleted {
			if err := os.Remove(s.path(e.Key)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("failed to remove %s: %w", e.Key, err)
			}
			continue
		}
		if err := writeFileAtomic(s.dir, s.path(e.Key), e.Value); err != nil {
			return fmt.Errorf("failed to replace %s: %w", e.Key, err)
		}
	}

	revs, err := json.Marshal(b.Revisions)
	if err != nil {
		return fmt.Errorf("failed to encode revisions: %w", err)
	}
	if err := writeFileAtomic(s.dir, filepath.Join(s.dir, revisionsFile), revs); err != nil {
		return fmt.Errorf("failed to replace revisions: %w", err)
	}

	if err := os.Remove(filepath.Join(s.dir, journalFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove journal: %w", err)
	}
	return nil
}

func (s *FileStore) writeJournal(b *fileBatch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}
	if err := writeFileAtomic(s.dir, filepath.Join(s.dir, journalFile), data); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

func (s *FileStore) readJournal() (*fileBatch, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, journalFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	var b fileBatch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	if b.Revisions == nil {
		b.Revisions = make(map[string]int64)
	}
	return &b, nil
}

func (s *FileStore) readRevisions() (map[string]int64, error) {
	revs := make(map[string]int64)
	data, err := os.ReadFile(filepath.Join(s.dir, revisionsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return revs, nil
		}
		return nil, fmt.Errorf("failed to read revisions: %w", err)
	}
	if err := json.Unmarshal(data, &revs); err != nil {
		return nil, fmt.Errorf("failed to decode revisions: %w", err)
	}
	return revs, nil
}

// writeFileAtomic writes data to a synced temp file in dir and renames it to path.
func writeFileAtomic(dir, path string, data []byte) error {
	f, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
