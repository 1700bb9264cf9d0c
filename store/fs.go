package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	qerrors "github.com/dirqueue/dirqueue/errors"
)

// DefaultLockPoll is the interval between lock acquisition attempts.
const DefaultLockPoll = 100 * time.Millisecond

// FileStore implements Store on a directory tree, usually a mount
// shared between hosts. Values are files; writes go to a uniquely
// named temporary file in the target directory followed by a rename,
// so readers never observe partial content. Locks are sidecar
// "<key>.lock" files held with flock; the kernel releases them if the
// holder dies.
type FileStore struct {
	root     string
	lockPoll time.Duration
	closed   atomic.Bool
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithLockPoll sets the interval between lock acquisition attempts.
func WithLockPoll(d time.Duration) FileStoreOption {
	return func(s *FileStore) {
		if d > 0 {
			s.lockPoll = d
		}
	}
}

// NewFileStore creates a file-backed store rooted at root, creating
// the directory if needed.
func NewFileStore(root string, opts ...FileStoreOption) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "creating store root")
	}
	s := &FileStore{
		root:     root,
		lockPoll: DefaultLockPoll,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the store's root directory.
func (s *FileStore) Root() string {
	return s.root
}

// path maps a key to its file path under the root.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Get retrieves a value by key.
func (s *FileStore) Get(key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "reading "+key)
	}
	return data, nil
}

// Put atomically stores a value via temp file + rename. A failed
// temporary write or rename leaves the target untouched.
func (s *FileStore) Put(key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	target := s.path(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "creating directory for "+key)
	}

	// Unique name so concurrent writers never collide on the temp file.
	tmp := fmt.Sprintf("%s.tmp.%s", target, uuid.NewString())
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		os.Remove(tmp)
		return qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "writing "+key)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "replacing "+key)
	}
	return nil
}

// Delete removes a key and its lock sidecar, if any.
func (s *FileStore) Delete(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "deleting "+key)
	}
	os.Remove(s.path(key) + ".lock")
	return nil
}

// Keys returns all keys matching a pattern. The pattern's directory
// part must be literal; only the final segment may end in *.
func (s *FileStore) Keys(pattern string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	dir := filepath.Dir(filepath.FromSlash(pattern))
	if strings.Contains(dir, "*") {
		return nil, ErrInvalidKey
	}

	entries, err := os.ReadDir(filepath.Join(s.root, dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "listing "+dir)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".lock") || strings.Contains(e.Name(), ".tmp.") {
			continue
		}
		key := e.Name()
		if dir != "." {
			key = dir + "/" + key
		}
		if MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Stat returns metadata for a key.
func (s *FileStore) Stat(key string) (*Entry, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	info, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "stat "+key)
	}
	return &Entry{
		Key:      key,
		Size:     info.Size(),
		Modified: info.ModTime(),
	}, nil
}

// Lock acquires the sidecar flock for a key, retrying at the
// configured poll interval until wait elapses.
func (s *FileStore) Lock(key string, wait time.Duration) (Lock, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	lockPath := s.path(key) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "creating directory for "+key)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "opening lock for "+key)
	}

	deadline := time.Now().Add(wait)
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			return &fileLock{key: key, file: f}, nil
		}
		if err != unix.EWOULDBLOCK && err != unix.EAGAIN {
			f.Close()
			return nil, qerrors.WrapWithCode(err, qerrors.ErrCodeStorageIO, "locking "+key)
		}
		if time.Now().After(deadline) {
			f.Close()
			return nil, ErrLockTimeout
		}
		time.Sleep(s.lockPoll)
	}
}

// Close marks the store closed. Held locks stay valid until unlocked.
func (s *FileStore) Close() error {
	s.closed.Store(true)
	return nil
}

// fileLock implements Lock over a held flock.
type fileLock struct {
	key      string
	file     *os.File
	released atomic.Bool
}

// Unlock releases the flock and closes the sidecar file.
func (l *fileLock) Unlock() error {
	if l.released.Swap(true) {
		return ErrLockNotHeld
	}
	unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return l.file.Close()
}

// Key returns the locked key.
func (l *fileLock) Key() string {
	return l.key
}
