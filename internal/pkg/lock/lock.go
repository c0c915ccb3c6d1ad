// Package lock provides per-key locking so that each stored collection has a
// single writer at a time.
package lock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// KeyLock hands out one mutex per key. Keys are collection names such as
// "quests" or "user".
type KeyLock struct {
	locks   sync.Map // map[string]*sync.Mutex
	timeout time.Duration
}

// NewKeyLock creates a new KeyLock instance.
func NewKeyLock() *KeyLock {
	return &KeyLock{}
}

// NewKeyLockWithTimeout creates a KeyLock whose WithLocksContext gives up on a
// key after timeout. A zero timeout waits for ctx only.
func NewKeyLockWithTimeout(timeout time.Duration) *KeyLock {
	return &KeyLock{timeout: timeout}
}

// getLock retrieves or creates the mutex for key.
func (kl *KeyLock) getLock(key string) *sync.Mutex {
	if v, ok := kl.locks.Load(key); ok {
		return v.(*sync.Mutex)
	}
	actual, _ := kl.locks.LoadOrStore(key, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// Lock acquires the lock for key.
func (kl *KeyLock) Lock(key string) {
	kl.getLock(key).Lock()
}

// Unlock releases the lock for key.
func (kl *KeyLock) Unlock(key string) {
	if v, ok := kl.locks.Load(key); ok {
		v.(*sync.Mutex).Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
func (kl *KeyLock) TryLock(key string) bool {
	return kl.getLock(key).TryLock()
}

// LockWithTimeout attempts to acquire the lock until timeout or ctx expires.
// Returns true if the lock was acquired.
func (kl *KeyLock) LockWithTimeout(ctx context.Context, key string, timeout time.Duration) bool {
	mu := kl.getLock(key)
	done := make(chan struct{})

	go func() {
		mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still acquires eventually; release it on its behalf.
		go func() {
			<-done
			mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the lock for key.
func (kl *KeyLock) WithLock(key string, fn func() error) error {
	kl.Lock(key)
	defer kl.Unlock(key)
	return fn()
}

// WithLocks executes fn while holding the locks for every key.
// Keys are acquired in sorted order so overlapping callers cannot deadlock.
func (kl *KeyLock) WithLocks(keys []string, fn func() error) error {
	ordered := uniqueSorted(keys)
	for _, k := range ordered {
		kl.Lock(k)
	}
	defer func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			kl.Unlock(ordered[i])
		}
	}()
	return fn()
}

// WithLocksContext is WithLocks bounded by the lock timeout. Keys already
// taken are released when a later key times out.
func (kl *KeyLock) WithLocksContext(ctx context.Context, keys []string, fn func() error) error {
	ordered := uniqueSorted(keys)
	held := 0
	defer func() {
		for i := held - 1; i >= 0; i-- {
			kl.Unlock(ordered[i])
		}
	}()
	for _, k := range ordered {
		if kl.timeout <= 0 {
			kl.Lock(k)
		} else if !kl.LockWithTimeout(ctx, k, kl.timeout) {
			return ErrLockTimeout
		}
		held++
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn()
}

// WithLockContext executes fn while holding the lock for key, giving up with
// ErrLockTimeout when the lock cannot be acquired in time.
func (kl *KeyLock) WithLockContext(ctx context.Context, key string, timeout time.Duration, fn func() error) error {
	if !kl.LockWithTimeout(ctx, key, timeout) {
		return ErrLockTimeout
	}
	defer kl.Unlock(key)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked reports whether key is currently held.
// This is a point-in-time check.
func (kl *KeyLock) IsLocked(key string) bool {
	v, ok := kl.locks.Load(key)
	if !ok {
		return false
	}
	mu := v.(*sync.Mutex)
	if mu.TryLock() {
		mu.Unlock()
		return false
	}
	return true
}

func uniqueSorted(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
