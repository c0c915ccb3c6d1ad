// Package repository provides the persistence layer: key-value store backends and
// typed access to the stored collections.
package repository

import (
	"context"
	"errors"
)

// Collection keys.
const (
	KeyQuests     = "quests"
	KeyRewards    = "rewards"
	KeyDailyStats = "dailyStats"
	KeyUser       = "user"
)

// Keys returns every collection key.
func Keys() []string {
	return []string{KeyQuests, KeyRewards, KeyDailyStats, KeyUser}
}

// Common errors for repository operations.
var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrStoreClosed   = errors.New("store is closed")
)

// Entry is one whole-collection value to write.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a durable key-value store holding whole collections as JSON documents.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// PutAll writes every entry. All entries are applied or none are.
	PutAll(ctx context.Context, entries []Entry) error
	// Clear removes every stored collection.
	Clear(ctx context.Context) error
	// Close releases the backend.
	Close() error
}

// Versioned is implemented by stores that keep a per-key revision. The
// revision grows on every write or clear of the key, including writes made by
// other processes sharing the backend. A key never written has revision 0.
type Versioned interface {
	Revision(ctx context.Context, key string) (int64, error)
}

// Put writes a single entry.
func Put(ctx context.Context, s Store, key string, value []byte) error {
	return s.PutAll(ctx, []Entry{{Key: key, Value: value}})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var (
	_ Versioned = (*MemoryStore)(nil)
	_ Versioned = (*FileStore)(nil)
	_ Versioned = (*SQLiteStore)(nil)
	_ Versioned = (*PostgresStore)(nil)
)
