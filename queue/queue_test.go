package queue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dirqueue/dirqueue/bus"
	"github.com/dirqueue/dirqueue/results"
	"github.com/dirqueue/dirqueue/store"
	"github.com/dirqueue/dirqueue/tasks"
)

func newTestQueue(t *testing.T, opts ...Option) *Queue {
	t.Helper()
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	base := []Option{
		WithHost("test-host"),
		WithLockWait(time.Second),
		WithResultPoll(10 * time.Millisecond),
	}
	return New(s, append(base, opts...)...)
}

func TestQueueSubmitAndStatus(t *testing.T) {
	q := newTestQueue(t)

	id, err := q.Submit("echo hello", "", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id == "" {
		t.Fatal("Submit returned empty ID")
	}

	status, err := q.Status(id)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status != tasks.StatusPending {
		t.Errorf("Status = %s, want pending", status)
	}

	task, err := q.Task(id)
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if task.FromHost != "test-host" {
		t.Errorf("FromHost = %s, want test-host", task.FromHost)
	}
}

func TestQueuePendingFiltersByHost(t *testing.T) {
	q := newTestQueue(t)

	q.Submit("a", "", nil)
	q.Submit("b", "test-host", nil)
	q.Submit("c", "other-host", nil)

	pending, err := q.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("Pending returned %d tasks, want untargeted + own", len(pending))
	}

	all, _ := q.PendingFor("")
	if len(all) != 3 {
		t.Errorf("PendingFor(\"\") returned %d tasks, want 3", len(all))
	}
}

func TestQueueClaim(t *testing.T) {
	q := newTestQueue(t)

	id, _ := q.Submit("x", "", nil)

	ok, err := q.Claim(id)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !ok {
		t.Fatal("Claim = false")
	}

	task, _ := q.Task(id)
	if task.Status != tasks.StatusInProgress || task.ClaimedBy != "test-host" {
		t.Errorf("after claim: %+v", task)
	}

	// A second claim by anyone fails without error.
	if ok, err := q.Claim(id); err != nil || ok {
		t.Errorf("second Claim = %v, %v, want false, nil", ok, err)
	}
}

func TestQueueClaimExclusiveAcrossInstances(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	submitter := New(s, WithHost("submitter"), WithLockWait(time.Second))
	id, err := submitter.Submit("x", "", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	const n = 8
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := New(s, WithHost("worker"), WithLockWait(5*time.Second))
			ok, err := w.Claim(id)
			if err != nil {
				t.Errorf("Claim errored: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("%d queue instances claimed the task, want exactly 1", got)
	}
}

func TestQueueRoundTrip(t *testing.T) {
	q := newTestQueue(t)

	id, _ := q.Submit("echo hi", "", nil)
	if ok, _ := q.Claim(id); !ok {
		t.Fatal("Claim failed")
	}

	if err := q.SubmitResult(id, "hi\n", ""); err != nil {
		t.Fatalf("SubmitResult failed: %v", err)
	}

	result, err := q.GetResult(context.Background(), id, false, 0)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if result.Output != "hi\n" || result.Status != results.StatusCompleted {
		t.Errorf("result = %+v", result)
	}
	if result.CompletedBy != "test-host" {
		t.Errorf("CompletedBy = %s", result.CompletedBy)
	}

	status, _ := q.Status(id)
	if status != tasks.StatusCompleted {
		t.Errorf("task status = %s, want completed", status)
	}
}

func TestQueueSubmitResultFailure(t *testing.T) {
	q := newTestQueue(t)

	id, _ := q.Submit("x", "", nil)
	q.Claim(id)

	if err := q.SubmitResult(id, "partial", "exit status 1"); err != nil {
		t.Fatalf("SubmitResult failed: %v", err)
	}

	result, _ := q.GetResult(context.Background(), id, false, 0)
	if !result.Failed() || result.Error != "exit status 1" {
		t.Errorf("result = %+v", result)
	}

	status, _ := q.Status(id)
	if status != tasks.StatusFailed {
		t.Errorf("task status = %s, want failed", status)
	}
}

func TestQueueSubmitResultVanishedTask(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	q := New(s, WithHost("test-host"), WithLockWait(time.Second))

	id, _ := q.Submit("x", "", nil)
	q.Claim(id)
	s.Delete(tasks.Key(id))

	// The result must still land.
	if err := q.SubmitResult(id, "out", ""); err != nil {
		t.Fatalf("SubmitResult with vanished task = %v", err)
	}
	if _, err := q.GetResult(context.Background(), id, false, 0); err != nil {
		t.Errorf("GetResult = %v", err)
	}
}

func TestQueueGetResultWait(t *testing.T) {
	q := newTestQueue(t)

	id, _ := q.Submit("x", "", nil)

	go func() {
		time.Sleep(30 * time.Millisecond)
		q.Claim(id)
		q.SubmitResult(id, "late", "")
	}()

	result, err := q.GetResult(context.Background(), id, true, time.Second)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if result.Output != "late" {
		t.Errorf("result = %+v", result)
	}
}

func TestQueueGetResultWaitTimeout(t *testing.T) {
	q := newTestQueue(t)

	_, err := q.GetResult(context.Background(), "nope", true, 50*time.Millisecond)
	if !errors.Is(err, results.ErrNotFound) {
		t.Errorf("GetResult = %v, want ErrNotFound", err)
	}
}

func TestQueueCleanup(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()
	q := New(s, WithHost("test-host"), WithLockWait(time.Second))

	oldID, _ := q.Submit("old", "", nil)
	q.Submit("new", "", nil)
	q.Claim(oldID)
	q.SubmitResult(oldID, "done", "")

	old := time.Now().Add(-8 * 24 * time.Hour)
	s.SetModified(tasks.Key(oldID), old)
	s.SetModified(results.Key(oldID), old)

	removed, err := q.Cleanup(0)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Cleanup removed %d files, want task + result", removed)
	}
	if _, err := q.Task(oldID); !errors.Is(err, tasks.ErrNotFound) {
		t.Errorf("old task survived cleanup")
	}
}

func TestQueueNotifications(t *testing.T) {
	b := bus.NewMemoryBus(bus.DefaultConfig())
	defer b.Close()

	subSubmitted, _ := b.Subscribe(bus.SubjectFor(bus.EventSubmitted))
	subCompleted, _ := b.Subscribe(bus.SubjectFor(bus.EventCompleted))

	q := newTestQueue(t, WithNotifier(b))

	id, _ := q.Submit("x", "", nil)
	q.Claim(id)
	q.SubmitResult(id, "out", "")

	select {
	case msg := <-subSubmitted.Messages():
		e, err := bus.DecodeEvent(msg.Data)
		if err != nil || e.TaskID != id {
			t.Errorf("submitted event = %+v, %v", e, err)
		}
	case <-time.After(time.Second):
		t.Fatal("no submitted event")
	}

	select {
	case msg := <-subCompleted.Messages():
		e, _ := bus.DecodeEvent(msg.Data)
		if e.TaskID != id || e.Host != "test-host" {
			t.Errorf("completed event = %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("no completed event")
	}
}

func TestQueueFileStoreHostLog(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	defer s.Close()

	q := New(s, WithHost("alpha"), WithLockWait(time.Second))

	id, err := q.Submit("echo hello", "", nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	q.Claim(id)
	q.SubmitResult(id, "hello\n", "")

	// Everything lands under the store root in the expected layout.
	if _, err := s.Stat(tasks.Key(id)); err != nil {
		t.Errorf("task file missing: %v", err)
	}
	if _, err := s.Stat(results.Key(id)); err != nil {
		t.Errorf("result file missing: %v", err)
	}

	// The host log recorded the activity.
	logPath := filepath.Join(dir, "logs",
		"alpha_"+time.Now().Format("20060102")+".log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("host log missing: %v", err)
	}
	for _, want := range []string{
		"Task submitted: " + id,
		"Task claimed: " + id,
		"Result submitted: " + id + " - completed",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("host log missing line %q", want)
		}
	}
}
