package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// MemoryStore implements Store using in-memory storage.
// Useful for testing and single-process scenarios.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]*memEntry
	locks  map[string]chan struct{}
	closed atomic.Bool
}

type memEntry struct {
	value    []byte
	modified time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:  make(map[string]*memEntry),
		locks: make(map[string]chan struct{}),
	}
}

// Get retrieves a value by key.
func (s *MemoryStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}

	// Return a copy to prevent mutation
	val := make([]byte, len(e.value))
	copy(val, e.value)
	return val, nil
}

// Put stores a value.
func (s *MemoryStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	val := make([]byte, len(value))
	copy(val, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = &memEntry{
		value:    val,
		modified: time.Now(),
	}
	return nil
}

// Delete removes a key.
func (s *MemoryStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// Keys returns all keys matching a pattern.
func (s *MemoryStore) Keys(pattern string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for key := range s.data {
		if MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Stat returns metadata for a key.
func (s *MemoryStore) Stat(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Entry{
		Key:      key,
		Size:     int64(len(e.value)),
		Modified: e.modified,
	}, nil
}

// SetModified backdates a key's modification time. Test helper for
// exercising age-based cleanup without waiting.
func (s *MemoryStore) SetModified(key string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[key]; ok {
		e.modified = t
	}
}

// Lock acquires the advisory lock for a key, blocking up to wait.
func (s *MemoryStore) Lock(key string, wait time.Duration) (Lock, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.mu.Lock()
	ch, ok := s.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		s.locks[key] = ch
	}
	s.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ch:
		return &memoryLock{key: key, ch: ch}, nil
	case <-timer.C:
		return nil, ErrLockTimeout
	}
}

// Close shuts down the store.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = nil
	return nil
}

// memoryLock implements Lock for MemoryStore.
type memoryLock struct {
	key      string
	ch       chan struct{}
	released atomic.Bool
}

// Unlock releases the lock.
func (l *memoryLock) Unlock() error {
	if l.released.Swap(true) {
		return ErrLockNotHeld
	}
	l.ch <- struct{}{}
	return nil
}

// Key returns the locked key.
func (l *memoryLock) Key() string {
	return l.key
}
