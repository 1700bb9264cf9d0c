package results

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dirqueue/dirqueue/store"
)

// DefaultPoll is the interval between result existence checks while
// waiting.
const DefaultPoll = 500 * time.Millisecond

// Store persists result records in a store.Store.
type Store struct {
	store store.Store
	poll  time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPoll sets the wait polling interval.
func WithPoll(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.poll = d
		}
	}
}

// NewStore creates a result store backed by the given store.
func NewStore(st store.Store, opts ...StoreOption) *Store {
	s := &Store{
		store: st,
		poll:  DefaultPoll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put writes the result record. An existing result for the same task
// is overwritten; the write itself is atomic, so readers only ever
// see one complete version.
func (s *Store) Put(result *Result) error {
	if result.TaskID == "" || result.Status == "" {
		return ErrInvalidResult
	}

	data, err := result.Marshal()
	if err != nil {
		return err
	}
	return s.store.Put(Key(result.TaskID), data)
}

// Get returns the result for a task, or ErrNotFound if none exists
// yet. An unparseable record also reads as absent: a torn write must
// look the same as no write.
func (s *Store) Get(taskID string) (*Result, error) {
	data, err := s.store.Get(Key(taskID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, ErrNotFound
	}
	return &result, nil
}

// Wait polls for a result until one appears, the timeout elapses, or
// the context is canceled. A zero timeout checks exactly once.
func (s *Store) Wait(ctx context.Context, taskID string, timeout time.Duration) (*Result, error) {
	deadline := time.Now().Add(timeout)
	for {
		result, err := s.Get(taskID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, ErrNotFound
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.poll):
		}
	}
}

// Cleanup deletes result records whose last modification is older
// than maxAge. Returns the deleted keys.
func (s *Store) Cleanup(maxAge time.Duration) ([]string, error) {
	keys, err := s.store.Keys("results/result_*")
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-maxAge)
	var deleted []string
	for _, key := range keys {
		entry, err := s.store.Stat(key)
		if err != nil {
			continue
		}
		if entry.Modified.Before(cutoff) {
			if err := s.store.Delete(key); err != nil {
				return deleted, err
			}
			deleted = append(deleted, key)
		}
	}
	return deleted, nil
}
