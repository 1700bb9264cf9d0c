package tasks

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors.
var (
	// ErrNotFound indicates the requested task does not exist.
	ErrNotFound = errors.New("task not found")

	// ErrAlreadyExists indicates a task record with the same ID exists.
	ErrAlreadyExists = errors.New("task already exists")

	// ErrInvalidTask indicates the task is missing required fields.
	ErrInvalidTask = errors.New("invalid task")
)

// Status represents the current state of a task.
//
// Transitions only move forward along
// pending -> in_progress -> {completed, failed}; at most one claimant
// ever observes the pending -> in_progress edge succeed.
type Status string

const (
	// StatusPending indicates the task is waiting to be claimed.
	StatusPending Status = "pending"

	// StatusInProgress indicates a worker has claimed the task.
	StatusInProgress Status = "in_progress"

	// StatusCompleted indicates the task finished successfully.
	StatusCompleted Status = "completed"

	// StatusFailed indicates the task finished with an error.
	StatusFailed Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task represents a unit of work exchanged through the shared directory.
// The command, like the metadata, is opaque: the queue never inspects it.
type Task struct {
	// ID is the unique identifier, "<unix seconds>_<8 hex chars>" so a
	// lexical sort approximates submission order.
	ID string `json:"id"`

	// Command is the payload handed to the executor verbatim.
	Command string `json:"command"`

	// FromHost is the submitting host.
	FromHost string `json:"from_host,omitempty"`

	// TargetHost restricts which host may claim the task.
	// Empty means any host.
	TargetHost string `json:"target_host,omitempty"`

	// SubmittedAt is when the task was submitted. Immutable.
	SubmittedAt time.Time `json:"timestamp"`

	// Status is the current state of the task.
	Status Status `json:"status"`

	// ClaimedBy is the worker that claimed the task.
	ClaimedBy string `json:"claimed_by,omitempty"`

	// ClaimedAt is when the task was claimed.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// CompletedAt is when the task reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Metadata is caller-defined and never interpreted by the queue.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Clone creates a deep copy of the task.
func (t *Task) Clone() *Task {
	clone := *t

	if t.ClaimedAt != nil {
		claimed := *t.ClaimedAt
		clone.ClaimedAt = &claimed
	}
	if t.CompletedAt != nil {
		completed := *t.CompletedAt
		clone.CompletedAt = &completed
	}
	if t.Metadata != nil {
		clone.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}

	return &clone
}

// Marshal renders the task record as indented JSON, the on-disk form.
func (t *Task) Marshal() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// NewID generates a task ID: submission unix time plus a random
// 8-hex-char suffix.
func NewID() string {
	u := uuid.New()
	return fmt.Sprintf("%d_%x", time.Now().Unix(), u[:4])
}

// Key returns the store key for a task ID.
func Key(id string) string {
	return "tasks/task_" + id + ".json"
}
