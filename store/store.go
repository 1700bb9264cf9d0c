package store

import (
	"errors"
	"strings"
	"time"
)

// Common errors.
var (
	ErrNotFound    = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
	ErrLockTimeout = errors.New("lock not acquired within deadline")
	ErrLockNotHeld = errors.New("lock not held")
	ErrInvalidKey  = errors.New("invalid key")
)

// Entry describes a stored value and its metadata.
type Entry struct {
	// Key is the entry key, a slash-separated relative path.
	Key string

	// Size is the stored value size in bytes.
	Size int64

	// Modified is when the value was last written.
	Modified time.Time
}

// Store provides durable key-value storage with atomic replacement and
// a per-key advisory mutual-exclusion primitive.
//
// Put is atomic with respect to concurrent readers: Get observes either
// the complete previous value or the complete new value, never a
// partial write. Locks are advisory; they only protect callers that
// also acquire them.
type Store interface {
	// Get retrieves a value by key.
	// Returns ErrNotFound if the key does not exist.
	Get(key string) ([]byte, error)

	// Put atomically stores a value, replacing any previous value.
	Put(key string, value []byte) error

	// Delete removes a key.
	// Returns nil if the key does not exist.
	Delete(key string) error

	// Keys returns all keys matching a pattern.
	// Pattern supports a * wildcard at the end (e.g., "tasks/task_*").
	Keys(pattern string) ([]string, error)

	// Stat returns metadata for a key.
	// Returns ErrNotFound if the key does not exist.
	Stat(key string) (*Entry, error)

	// Lock acquires the exclusive advisory lock for a key, blocking up
	// to wait. Returns ErrLockTimeout if the lock could not be acquired
	// within the deadline. The key need not have a stored value.
	Lock(key string, wait time.Duration) (Lock, error)

	// Close shuts down the store and releases resources.
	Close() error
}

// Lock represents a held advisory lock.
type Lock interface {
	// Unlock releases the lock.
	// Returns ErrLockNotHeld if already released.
	Unlock() error

	// Key returns the locked key.
	Key() string
}

// ValidateKey checks if a key is valid.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if strings.Contains(key, " ") {
		return ErrInvalidKey
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	if len(key) > 1024 {
		return ErrInvalidKey
	}
	return nil
}

// MatchPattern checks if a key matches a pattern.
// Supports a * wildcard at the end (e.g., "tasks/task_*" matches
// "tasks/task_123.json").
func MatchPattern(pattern, key string) bool {
	if pattern == "*" {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(key, prefix)
	}
	return pattern == key
}
