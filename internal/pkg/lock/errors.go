// Package lock provides per-key locking for the stored collections.
package lock

import "errors"

// Lock-related errors.
var (
	// ErrLockTimeout is returned when a collection lock cannot be acquired in time.
	ErrLockTimeout = errors.New("lock acquisition timeout")
)
