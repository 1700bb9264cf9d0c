package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Default CLI invocation. The prompt flag makes the binary run one
// command non-interactively; the permissions flag is required for
// unattended execution.
const (
	DefaultBinary = "claude"
)

var defaultArgs = []string{"--dangerously-skip-permissions", "-p"}

// CLIExecutor runs commands through an AI CLI binary as a subprocess.
type CLIExecutor struct {
	binary  string
	args    []string
	timeout time.Duration
}

// CLIOption configures a CLIExecutor.
type CLIOption func(*CLIExecutor)

// WithBinary sets the CLI binary to invoke.
func WithBinary(binary string) CLIOption {
	return func(e *CLIExecutor) {
		if binary != "" {
			e.binary = binary
		}
	}
}

// WithArgs replaces the flags passed before the command.
func WithArgs(args ...string) CLIOption {
	return func(e *CLIExecutor) {
		e.args = args
	}
}

// WithTimeout sets the per-execution time budget.
func WithTimeout(d time.Duration) CLIOption {
	return func(e *CLIExecutor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewCLIExecutor creates a subprocess-based executor.
func NewCLIExecutor(opts ...CLIOption) *CLIExecutor {
	e := &CLIExecutor{
		binary:  DefaultBinary,
		args:    defaultArgs,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name identifies the executor.
func (e *CLIExecutor) Name() string {
	return "cli:" + e.binary
}

// Execute runs the command as `binary [args...] <command>` and returns
// combined stdout and stderr. The subprocess is killed when the
// timeout or the caller's context expires; on failure the partial
// output is returned alongside the error.
func (e *CLIExecutor) Execute(ctx context.Context, command string) (string, error) {
	if command == "" {
		return "", ErrEmptyCommand
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := make([]string, 0, len(e.args)+1)
	args = append(args, e.args...)
	args = append(args, command)

	cmd := exec.CommandContext(ctx, e.binary, args...)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	output := out.String()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return output, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
	if err != nil {
		return output, fmt.Errorf("%s: %w", e.binary, err)
	}
	return output, nil
}
