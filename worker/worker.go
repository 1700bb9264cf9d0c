package worker

import (
	"context"
	"fmt"
	"time"

	qerrors "github.com/dirqueue/dirqueue/errors"
	"github.com/dirqueue/dirqueue/executor"
	"github.com/dirqueue/dirqueue/logging"
	"github.com/dirqueue/dirqueue/queue"
)

// DefaultInterval is the sleep between empty polls.
const DefaultInterval = 5 * time.Second

// Worker polls the queue, claims pending tasks and runs them through
// an executor. One worker processes one task at a time; parallelism
// comes from running more workers, on the same host or others.
type Worker struct {
	queue    *queue.Queue
	executor executor.Executor
	interval time.Duration
	log      *logging.Logger
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval sets the sleep between empty polls.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithLogger sets the console logger.
func WithLogger(l *logging.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a worker over the given queue and executor.
func New(q *queue.Queue, exec executor.Executor, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		executor: exec,
		interval: DefaultInterval,
		log:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithComponent("worker").WithHostID(q.Host())
	return w
}

// Run polls until ctx is canceled. Storage errors are logged and the
// loop continues on the next tick; a broken iteration must not kill
// the worker.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started", map[string]interface{}{
		"executor": w.executor.Name(),
		"interval": w.interval,
	})

	for {
		processed, err := w.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.log.Error("poll iteration failed", map[string]interface{}{"error": err})

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(w.failureBackoff(err)):
			}
			continue
		}

		if processed {
			// More work may be waiting; poll again immediately.
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.interval):
		}
	}
}

// failureBackoff returns the pause after a failed iteration. Failures
// classified retryable (transient or contended) poll again at the
// normal interval; everything else backs off further so a broken
// backend is not hammered at full poll rate.
func (w *Worker) failureBackoff(err error) time.Duration {
	if qerrors.IsRetryable(err) {
		return w.interval
	}
	return 4 * w.interval
}

// RunOnce performs a single poll pass: scan pending tasks, claim the
// first available one, execute it and submit the result. Returns true
// if a task was processed. Losing every claim race counts as not
// processed, without error.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	pending, err := w.queue.Pending()
	if err != nil {
		return false, err
	}

	for _, task := range pending {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}

		ok, err := w.queue.Claim(task.ID)
		if err != nil {
			return false, err
		}
		if !ok {
			// Another worker got there first; try the next task.
			continue
		}

		w.log.Info("executing task", map[string]interface{}{
			"task_id": task.ID,
			"command": truncate(task.Command, 60),
		})

		output, execErr := w.execute(ctx, task.Command)

		errMsg := ""
		if execErr != nil {
			errMsg = execErr.Error()
			w.log.Warn("task failed", map[string]interface{}{
				"task_id": task.ID,
				"error":   execErr,
			})
		} else {
			w.log.Info("task completed", map[string]interface{}{"task_id": task.ID})
		}

		if err := w.queue.SubmitResult(task.ID, output, errMsg); err != nil {
			return true, err
		}
		return true, nil
	}

	return false, nil
}

// execute runs the command, converting an executor panic into a failed
// result rather than letting it unwind the poll loop.
func (w *Worker) execute(ctx context.Context, command string) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = qerrors.RecoverPanic(r)
		}
	}()
	return w.executor.Execute(ctx, command)
}

// truncate shortens a command for log lines.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
