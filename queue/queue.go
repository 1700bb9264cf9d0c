package queue

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/dirqueue/dirqueue/bus"
	"github.com/dirqueue/dirqueue/logging"
	"github.com/dirqueue/dirqueue/results"
	"github.com/dirqueue/dirqueue/store"
	"github.com/dirqueue/dirqueue/tasks"
)

// DefaultMaxAge is how long task and result files live before cleanup
// removes them.
const DefaultMaxAge = 7 * 24 * time.Hour

// Queue coordinates tasks and results through a shared store. It is
// the one type callers compose with: submitters, workers and the CLI
// all go through it. Multiple Queue instances over the same directory,
// in one process or across hosts, stay consistent through the store's
// atomic writes and per-key locks.
type Queue struct {
	host       string
	tasks      *tasks.Repository
	results    *results.Store
	notifier   bus.Notifier
	hostLog    *logging.HostLog
	log        *logging.Logger
	lockWait   time.Duration
	resultPoll time.Duration
}

// Option configures a Queue.
type Option func(*Queue)

// WithHost overrides the queue's host identity.
// Defaults to os.Hostname().
func WithHost(host string) Option {
	return func(q *Queue) {
		if host != "" {
			q.host = host
		}
	}
}

// WithNotifier attaches a change-notification bus. Notifications are
// advisory; the queue works identically without one.
func WithNotifier(n bus.Notifier) Option {
	return func(q *Queue) {
		q.notifier = n
	}
}

// WithLogger sets the console logger.
func WithLogger(l *logging.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.log = l
		}
	}
}

// WithLockWait sets the per-task lock acquisition bound used by claim
// and terminal-status updates.
func WithLockWait(d time.Duration) Option {
	return func(q *Queue) {
		q.lockWait = d
	}
}

// WithResultPoll sets the polling interval for GetResult waits.
func WithResultPoll(d time.Duration) Option {
	return func(q *Queue) {
		q.resultPoll = d
	}
}

// New creates a queue over the given store. When the store is
// file-backed, host activity is also appended to logs/ under the
// store root.
func New(st store.Store, opts ...Option) *Queue {
	q := &Queue{log: logging.NewNop()}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	q.host = hostname

	for _, opt := range opts {
		opt(q)
	}

	var repoOpts []tasks.RepositoryOption
	if q.lockWait > 0 {
		repoOpts = append(repoOpts, tasks.WithLockWait(q.lockWait))
	}
	q.tasks = tasks.NewRepository(st, repoOpts...)

	var resOpts []results.StoreOption
	if q.resultPoll > 0 {
		resOpts = append(resOpts, results.WithPoll(q.resultPoll))
	}
	q.results = results.NewStore(st, resOpts...)

	if fs, ok := st.(*store.FileStore); ok {
		q.hostLog = logging.NewHostLog(filepath.Join(fs.Root(), "logs"), q.host)
	}

	q.log = q.log.WithComponent("queue").WithHostID(q.host)
	return q
}

// Host returns the queue's host identity.
func (q *Queue) Host() string {
	return q.host
}

// Submit creates a pending task and returns its ID. targetHost
// restricts which host may claim it; empty means any host.
func (q *Queue) Submit(command, targetHost string, metadata map[string]string) (string, error) {
	task := &tasks.Task{
		ID:          tasks.NewID(),
		Command:     command,
		FromHost:    q.host,
		TargetHost:  targetHost,
		SubmittedAt: time.Now(),
		Status:      tasks.StatusPending,
		Metadata:    metadata,
	}

	if err := q.tasks.Create(task); err != nil {
		return "", err
	}

	q.hostLog.Appendf("Task submitted: %s", task.ID)
	q.log.Info("task submitted", map[string]interface{}{
		"task_id": task.ID,
		"target":  targetHost,
	})
	q.notify(bus.EventSubmitted, task.ID)

	return task.ID, nil
}

// Pending returns tasks this host could claim, oldest first.
func (q *Queue) Pending() ([]*tasks.Task, error) {
	return q.tasks.Pending(q.host)
}

// PendingFor returns pending tasks for an explicit host filter;
// empty matches every task.
func (q *Queue) PendingFor(hostFilter string) ([]*tasks.Task, error) {
	return q.tasks.Pending(hostFilter)
}

// Claim attempts to take a pending task for this host. Returns true
// only for the single claimant that wins; losing a race, a missing
// task and a lock timeout all report false without error.
func (q *Queue) Claim(taskID string) (bool, error) {
	ok, err := q.tasks.Claim(taskID, q.host)
	if err != nil || !ok {
		return ok, err
	}

	q.hostLog.Appendf("Task claimed: %s", taskID)
	q.log.Info("task claimed", map[string]interface{}{"task_id": taskID})
	q.notify(bus.EventClaimed, taskID)

	return true, nil
}

// SubmitResult publishes the execution outcome and moves the task to
// its terminal status. The result write comes first: a crash between
// the two leaves a readable result and a stale in_progress task, never
// the reverse. A task record already cleaned up does not block the
// result.
func (q *Queue) SubmitResult(taskID, output, errMsg string) error {
	status := results.StatusCompleted
	taskStatus := tasks.StatusCompleted
	if errMsg != "" {
		status = results.StatusFailed
		taskStatus = tasks.StatusFailed
	}

	result := &results.Result{
		TaskID:      taskID,
		Output:      output,
		Status:      status,
		Error:       errMsg,
		CompletedBy: q.host,
		CompletedAt: time.Now(),
	}
	if err := q.results.Put(result); err != nil {
		return err
	}

	if err := q.tasks.MarkTerminal(taskID, taskStatus); err != nil {
		return err
	}

	q.hostLog.Appendf("Result submitted: %s - %s", taskID, status)
	q.log.Info("result submitted", map[string]interface{}{
		"task_id": taskID,
		"status":  status,
	})
	if status == results.StatusFailed {
		q.notify(bus.EventFailed, taskID)
	} else {
		q.notify(bus.EventCompleted, taskID)
	}

	return nil
}

// GetResult returns the result for a task. With wait false it checks
// once; with wait true it polls until the result appears, the timeout
// elapses or ctx is canceled. No result yields results.ErrNotFound.
func (q *Queue) GetResult(ctx context.Context, taskID string, wait bool, timeout time.Duration) (*results.Result, error) {
	if !wait {
		return q.results.Get(taskID)
	}
	return q.results.Wait(ctx, taskID, timeout)
}

// Task returns the full task record.
func (q *Queue) Task(taskID string) (*tasks.Task, error) {
	return q.tasks.Get(taskID)
}

// Status returns the task's current status.
func (q *Queue) Status(taskID string) (tasks.Status, error) {
	return q.tasks.Status(taskID)
}

// Cleanup removes task and result files older than maxAge, regardless
// of status. A maxAge of 0 uses the 7-day default. Returns the number
// of files removed.
func (q *Queue) Cleanup(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}

	taskKeys, err := q.tasks.Cleanup(maxAge)
	if err != nil {
		return len(taskKeys), err
	}
	resultKeys, err := q.results.Cleanup(maxAge)
	if err != nil {
		return len(taskKeys) + len(resultKeys), err
	}

	for _, key := range taskKeys {
		q.hostLog.Appendf("Cleaned up old file: %s", key)
	}
	for _, key := range resultKeys {
		q.hostLog.Appendf("Cleaned up old file: %s", key)
	}

	removed := len(taskKeys) + len(resultKeys)
	if removed > 0 {
		q.log.Info("cleanup done", map[string]interface{}{"removed": removed})
	}
	return removed, nil
}

// notify publishes a lifecycle event when a bus is attached. Publish
// failures are logged and dropped; the directory stays authoritative.
func (q *Queue) notify(kind, taskID string) {
	if q.notifier == nil {
		return
	}
	e := &bus.Event{
		Kind:   kind,
		TaskID: taskID,
		Host:   q.host,
		Time:   time.Now(),
	}
	if err := bus.PublishEvent(q.notifier, e); err != nil {
		q.log.Warn("event publish failed", map[string]interface{}{
			"kind":  kind,
			"error": err,
		})
	}
}
