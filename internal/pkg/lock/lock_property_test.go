// Package lock provides per-key locking so that each stored collection has a
// single writer at a time.
// Property-based tests for serialised collection writes.
package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestSerialisedWritesProperty checks that concurrent read-modify-write cycles
// under the same key behave like sequential execution.
func TestSerialisedWritesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(0, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		expected := initial
		amounts := make([]int64, numOps)
		for i := range amounts {
			amounts[i] = rapid.Int64Range(-500, 500).Draw(t, "amount")
			expected += amounts[i]
		}

		kl := NewKeyLock()
		coins := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, amount := range amounts {
			go func(amount int64) {
				defer wg.Done()
				kl.Lock("user")
				defer kl.Unlock("user")
				coins += amount
			}(amount)
		}
		wg.Wait()

		if coins != expected {
			t.Fatalf("coins mismatch: expected %d, got %d", expected, coins)
		}
	})
}

// TestWithLocksOverlappingKeysProperty checks that callers locking overlapping
// key sets in different orders neither deadlock nor lose updates.
func TestWithLocksOverlappingKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(5, 30).Draw(t, "numOps")
		keySets := [][]string{
			{"quests", "dailyStats", "user"},
			{"user", "dailyStats", "rewards"},
			{"rewards"},
			{"user", "user"},
		}

		kl := NewKeyLock()
		var userWrites int64
		expected := int64(0)

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			keys := keySets[rapid.IntRange(0, len(keySets)-1).Draw(t, "set")]
			touchesUser := false
			for _, k := range keys {
				if k == "user" {
					touchesUser = true
				}
			}
			if touchesUser {
				expected++
			}
			go func(keys []string, touchesUser bool) {
				defer wg.Done()
				_ = kl.WithLocks(keys, func() error {
					if touchesUser {
						userWrites++
					}
					return nil
				})
			}(keys, touchesUser)
		}

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("deadlock with %d operations", numOps)
		}

		if userWrites != expected {
			t.Fatalf("user writes mismatch: expected %d, got %d", expected, userWrites)
		}
	})
}

// TestIndependentKeysProperty checks that different keys never block each other.
func TestIndependentKeysProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numKeys := rapid.IntRange(2, 10).Draw(t, "numKeys")
		kl := NewKeyLock()

		for i := 0; i < numKeys; i++ {
			kl.Lock(fmt.Sprintf("k%d", i))
		}
		for i := 0; i < numKeys; i++ {
			if !kl.IsLocked(fmt.Sprintf("k%d", i)) {
				t.Fatalf("k%d should be locked", i)
			}
		}
		if kl.IsLocked("other") {
			t.Fatal("unrelated key should not be locked")
		}
		if !kl.TryLock("other") {
			t.Fatal("unrelated key should be free")
		}
		kl.Unlock("other")
		for i := 0; i < numKeys; i++ {
			kl.Unlock(fmt.Sprintf("k%d", i))
		}
	})
}

// TestTryLockSingleWinnerProperty checks that TryLock admits at most one holder.
func TestTryLockSingleWinnerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAttempts := rapid.IntRange(5, 20).Draw(t, "numAttempts")
		kl := NewKeyLock()

		var holders, maxHolders atomic.Int32
		var wg sync.WaitGroup
		wg.Add(numAttempts)
		start := make(chan struct{})

		for i := 0; i < numAttempts; i++ {
			go func() {
				defer wg.Done()
				<-start
				if kl.TryLock("rewards") {
					n := holders.Add(1)
					for {
						m := maxHolders.Load()
						if n <= m || maxHolders.CompareAndSwap(m, n) {
							break
						}
					}
					holders.Add(-1)
					kl.Unlock("rewards")
				}
			}()
		}
		close(start)
		wg.Wait()

		if maxHolders.Load() != 1 {
			t.Fatalf("expected exactly one concurrent holder, got %d", maxHolders.Load())
		}
		if !kl.TryLock("rewards") {
			t.Fatal("lock should be available after all attempts")
		}
		kl.Unlock("rewards")
	})
}

func TestLockWithTimeout(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock("quests")

	ok := kl.LockWithTimeout(context.Background(), "quests", 20*time.Millisecond)
	assert.False(t, ok)

	kl.Unlock("quests")
	require.Eventually(t, func() bool {
		return kl.LockWithTimeout(context.Background(), "quests", 20*time.Millisecond)
	}, time.Second, 10*time.Millisecond)
	kl.Unlock("quests")
}

func TestWithLockContext(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock("user")

	err := kl.WithLockContext(context.Background(), "user", 20*time.Millisecond, func() error {
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	kl.Unlock("user")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = kl.WithLockContext(ctx, "user", 20*time.Millisecond, func() error {
		return nil
	})
	assert.Error(t, err)
}

func TestWithLocksContextReleasesOnTimeout(t *testing.T) {
	kl := NewKeyLockWithTimeout(20 * time.Millisecond)
	kl.Lock("user")

	ran := false
	err := kl.WithLocksContext(context.Background(), []string{"user", "quests"}, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, ran)
	// "quests" sorts first and must have been released again.
	assert.False(t, kl.IsLocked("quests"))
	kl.Unlock("user")

	require.Eventually(t, func() bool {
		return kl.WithLocksContext(context.Background(), []string{"user", "quests"}, func() error {
			ran = true
			return nil
		}) == nil
	}, time.Second, 10*time.Millisecond)
	assert.True(t, ran)
}
