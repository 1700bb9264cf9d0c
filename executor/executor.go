package executor

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	// ErrEmptyCommand indicates the task carried no command.
	ErrEmptyCommand = errors.New("empty command")

	// ErrTimeout indicates execution exceeded its time budget.
	ErrTimeout = errors.New("execution timed out")
)

// DefaultTimeout bounds a single execution.
const DefaultTimeout = 300 * time.Second

// Executor runs a task command and returns its output. The command
// is opaque to the queue; what it means is entirely up to the
// executor (a CLI invocation, an API prompt).
type Executor interface {
	// Execute runs the command and returns the captured output.
	// A non-nil error marks the task failed; partial output may
	// still accompany it.
	Execute(ctx context.Context, command string) (string, error)

	// Name identifies the executor in logs and results.
	Name() string
}
