package results

import (
	"encoding/json"
	"errors"
	"time"
)

// Common errors.
var (
	// ErrNotFound indicates no result exists for the task.
	ErrNotFound = errors.New("result not found")

	// ErrInvalidResult indicates the result is missing required fields.
	ErrInvalidResult = errors.New("invalid result")
)

// Result is the output record a worker publishes after executing a
// task. Results are keyed by task ID; the last writer wins.
type Result struct {
	// TaskID identifies the task this result belongs to.
	TaskID string `json:"task_id"`

	// Output is the captured executor output.
	Output string `json:"result"`

	// Status is "completed" or "failed".
	Status string `json:"status"`

	// Error describes the failure when Status is "failed".
	Error string `json:"error,omitempty"`

	// CompletedBy is the worker host that produced the result.
	CompletedBy string `json:"completed_by,omitempty"`

	// CompletedAt is when the result was produced.
	CompletedAt time.Time `json:"completed_at"`
}

// Result statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Failed reports whether the result records a failure.
func (r *Result) Failed() bool {
	return r.Status == StatusFailed
}

// Marshal renders the result as indented JSON, the on-disk form.
func (r *Result) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Key returns the store key for a task's result.
func Key(taskID string) string {
	return "results/result_" + taskID + ".json"
}
