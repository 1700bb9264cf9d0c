package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), WithLockPoll(5*time.Millisecond))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFileStorePutGet(t *testing.T) {
	s := newTestFileStore(t)

	if err := s.Put("tasks/task_1.json", []byte(`{"id":"1"}`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("tasks/task_1.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != `{"id":"1"}` {
		t.Errorf("Get = %s, want original value", got)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	s := newTestFileStore(t)

	_, err := s.Get("tasks/task_missing.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreOverwrite(t *testing.T) {
	s := newTestFileStore(t)

	s.Put("k", []byte("first"))
	if err := s.Put("k", []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, _ := s.Get("k")
	if string(got) != "second" {
		t.Errorf("Get = %s, want second", got)
	}
}

func TestFileStorePutLeavesNoTempFiles(t *testing.T) {
	s := newTestFileStore(t)

	for i := 0; i < 10; i++ {
		s.Put("tasks/task_1.json", []byte("value"))
	}

	entries, err := os.ReadDir(filepath.Join(s.Root(), "tasks"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the target file, got %v", names)
	}
}

func TestFileStoreKeys(t *testing.T) {
	s := newTestFileStore(t)

	s.Put("tasks/task_1.json", []byte("a"))
	s.Put("tasks/task_2.json", []byte("b"))
	s.Put("tasks/other.json", []byte("c"))
	s.Put("results/result_1.json", []byte("d"))

	// Lock sidecars and temp files must never show up as keys.
	lock, err := s.Lock("tasks/task_1.json", time.Second)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer lock.Unlock()

	keys, err := s.Keys("tasks/task_*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Keys = %v, want 2 task keys", keys)
	}
	for _, k := range keys {
		if k != "tasks/task_1.json" && k != "tasks/task_2.json" {
			t.Errorf("unexpected key %q", k)
		}
	}
}

func TestFileStoreKeysMissingDir(t *testing.T) {
	s := newTestFileStore(t)

	keys, err := s.Keys("tasks/task_*")
	if err != nil {
		t.Fatalf("Keys on missing dir should not fail: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys, got %v", keys)
	}
}

func TestFileStoreStat(t *testing.T) {
	s := newTestFileStore(t)

	before := time.Now().Add(-time.Second)
	s.Put("k", []byte("value"))

	e, err := s.Stat("k")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if e.Size != 5 {
		t.Errorf("Size = %d, want 5", e.Size)
	}
	if e.Modified.Before(before) {
		t.Errorf("Modified = %v, too old", e.Modified)
	}

	if _, err := s.Stat("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStoreDelete(t *testing.T) {
	s := newTestFileStore(t)

	s.Put("k", []byte("value"))
	lock, _ := s.Lock("k", time.Second)
	lock.Unlock()

	if err := s.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	// Sidecar must be gone too.
	if _, err := os.Stat(filepath.Join(s.Root(), "k.lock")); !os.IsNotExist(err) {
		t.Errorf("lock sidecar survived delete")
	}

	// Deleting a missing key is not an error.
	if err := s.Delete("k"); err != nil {
		t.Errorf("Delete of missing key = %v, want nil", err)
	}
}

func TestFileStoreLockTimeout(t *testing.T) {
	s := newTestFileStore(t)

	lock, err := s.Lock("k", time.Second)
	if err != nil {
		t.Fatalf("first Lock failed: %v", err)
	}
	defer lock.Unlock()

	start := time.Now()
	_, err = s.Lock("k", 50*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second Lock returned after %v, should have waited the deadline", elapsed)
	}
}

func TestFileStoreLockRelease(t *testing.T) {
	s := newTestFileStore(t)

	lock, err := s.Lock("k", time.Second)
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := lock.Unlock(); !errors.Is(err, ErrLockNotHeld) {
		t.Errorf("double Unlock = %v, want ErrLockNotHeld", err)
	}

	// Lock must be acquirable again.
	lock2, err := s.Lock("k", time.Second)
	if err != nil {
		t.Fatalf("re-Lock failed: %v", err)
	}
	lock2.Unlock()
}

func TestFileStoreLockExclusive(t *testing.T) {
	s := newTestFileStore(t)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holders int
		maxHold int
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := s.Lock("k", 5*time.Second)
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			mu.Lock()
			holders++
			if holders > maxHold {
				maxHold = holders
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
			lock.Unlock()
		}()
	}
	wg.Wait()

	if maxHold != 1 {
		t.Errorf("lock held by %d goroutines at once, want 1", maxHold)
	}
}

func TestFileStoreClosed(t *testing.T) {
	s := newTestFileStore(t)
	s.Close()

	if _, err := s.Get("k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
	if err := s.Put("k", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close = %v, want ErrClosed", err)
	}
}
