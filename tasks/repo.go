package tasks

import (
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/dirqueue/dirqueue/store"
)

// DefaultLockWait bounds how long a claim waits for the per-task lock.
const DefaultLockWait = 5 * time.Second

// Repository persists task records in a store.Store. Every operation
// re-reads from storage; nothing is cached in-process, since other
// workers mutate the same records through the shared backend.
type Repository struct {
	store    store.Store
	lockWait time.Duration
	now      func() time.Time
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithLockWait sets the per-task lock acquisition bound.
func WithLockWait(d time.Duration) RepositoryOption {
	return func(r *Repository) {
		if d > 0 {
			r.lockWait = d
		}
	}
}

// WithClock sets the time source. Test hook.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		r.now = now
	}
}

// NewRepository creates a task repository backed by the given store.
func NewRepository(st store.Store, opts ...RepositoryOption) *Repository {
	r := &Repository{
		store:    st,
		lockWait: DefaultLockWait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create writes a new pending task record. IDs are generated, not
// caller-supplied, so a collision is a hard error rather than an
// overwrite.
func (r *Repository) Create(task *Task) error {
	if task.ID == "" || task.Command == "" {
		return ErrInvalidTask
	}

	key := Key(task.ID)
	if _, err := r.store.Get(key); err == nil {
		return ErrAlreadyExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	data, err := task.Marshal()
	if err != nil {
		return err
	}
	return r.store.Put(key, data)
}

// Get returns the current task record.
// A missing or unparseable record yields ErrNotFound.
func (r *Repository) Get(id string) (*Task, error) {
	data, err := r.store.Get(Key(id))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, ErrNotFound
	}
	return &task, nil
}

// Pending scans the task directory and returns pending tasks for the
// given host filter, ordered by ascending submission time. An empty
// hostFilter matches everything; a task with no target host matches
// any filter. Records that fail to parse are skipped: a corrupt or
// half-written file must never hide the valid ones.
func (r *Repository) Pending(hostFilter string) ([]*Task, error) {
	keys, err := r.store.Keys("tasks/task_*")
	if err != nil {
		return nil, err
	}

	var pending []*Task
	for _, key := range keys {
		data, err := r.store.Get(key)
		if err != nil {
			continue
		}

		var task Task
		if err := json.Unmarshal(data, &task); err != nil {
			continue
		}

		if task.Status != StatusPending {
			continue
		}
		if hostFilter != "" && task.TargetHost != "" && task.TargetHost != hostFilter {
			continue
		}
		pending = append(pending, &task)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].SubmittedAt.Before(pending[j].SubmittedAt)
	})
	return pending, nil
}

// Claim attempts the pending -> in_progress transition for one worker.
// It acquires the per-task advisory lock, re-reads the record under
// the lock, and rewrites it only if still pending. Exactly one of any
// set of concurrent claimants observes true.
//
// Lock timeout, a vanished record, and an already-advanced status all
// report false: claiming fails closed. Only storage I/O failures
// surface as errors.
func (r *Repository) Claim(id, claimedBy string) (bool, error) {
	key := Key(id)

	lock, err := r.store.Lock(key, r.lockWait)
	if err != nil {
		if errors.Is(err, store.ErrLockTimeout) {
			return false, nil
		}
		return false, err
	}
	defer lock.Unlock()

	data, err := r.store.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return false, nil
	}
	if task.Status != StatusPending {
		return false, nil
	}

	now := r.now()
	task.Status = StatusInProgress
	task.ClaimedBy = claimedBy
	task.ClaimedAt = &now

	out, err := task.Marshal()
	if err != nil {
		return false, err
	}
	if err := r.store.Put(key, out); err != nil {
		return false, err
	}
	return true, nil
}

// MarkTerminal records the terminal status on the task record under
// the per-task lock. A vanished record or lock timeout is tolerated:
// result submission must not fail because the task bookkeeping file
// is gone.
func (r *Repository) MarkTerminal(id string, status Status) error {
	if !status.IsTerminal() {
		return ErrInvalidTask
	}

	key := Key(id)
	lock, err := r.store.Lock(key, r.lockWait)
	if err != nil {
		if errors.Is(err, store.ErrLockTimeout) {
			return nil
		}
		return err
	}
	defer lock.Unlock()

	data, err := r.store.Get(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil
	}

	now := r.now()
	task.Status = status
	task.CompletedAt = &now

	out, err := task.Marshal()
	if err != nil {
		return err
	}
	return r.store.Put(key, out)
}

// Status returns the current status of a task without locking.
func (r *Repository) Status(id string) (Status, error) {
	task, err := r.Get(id)
	if err != nil {
		return "", err
	}
	return task.Status, nil
}

// Cleanup deletes task records whose last modification is older than
// maxAge, regardless of status: a pending task past the cutoff is
// removed too. Returns the deleted keys.
func (r *Repository) Cleanup(maxAge time.Duration) ([]string, error) {
	keys, err := r.store.Keys("tasks/task_*")
	if err != nil {
		return nil, err
	}

	cutoff := r.now().Add(-maxAge)
	var deleted []string
	for _, key := range keys {
		entry, err := r.store.Stat(key)
		if err != nil {
			continue
		}
		if entry.Modified.Before(cutoff) {
			if err := r.store.Delete(key); err != nil {
				return deleted, err
			}
			deleted = append(deleted, key)
		}
	}
	return deleted, nil
}
