package tasks

import (
	"encoding/json"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("IsTerminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNewIDFormat(t *testing.T) {
	before := time.Now().Unix()
	id := NewID()
	after := time.Now().Unix()

	parts := strings.SplitN(id, "_", 2)
	if len(parts) != 2 {
		t.Fatalf("NewID() = %q, want <seconds>_<hex>", id)
	}

	secs, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		t.Fatalf("timestamp part %q not numeric: %v", parts[0], err)
	}
	if secs < before || secs > after {
		t.Errorf("timestamp %d outside [%d, %d]", secs, before, after)
	}

	if len(parts[1]) != 8 {
		t.Errorf("suffix %q has %d chars, want 8", parts[1], len(parts[1]))
	}
	if _, err := strconv.ParseUint(parts[1], 16, 64); err != nil {
		t.Errorf("suffix %q not hex: %v", parts[1], err)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate ID %q", id)
		}
		seen[id] = true
	}
}

func TestKey(t *testing.T) {
	if got := Key("1700000000_deadbeef"); got != "tasks/task_1700000000_deadbeef.json" {
		t.Errorf("Key = %q", got)
	}
}

func TestTaskRoundTrip(t *testing.T) {
	claimed := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	task := &Task{
		ID:          "1700000000_deadbeef",
		Command:     "echo hello",
		FromHost:    "laptop",
		TargetHost:  "server",
		SubmittedAt: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Status:      StatusInProgress,
		ClaimedBy:   "server",
		ClaimedAt:   &claimed,
		Metadata:    map[string]string{"priority": "high"},
	}

	data, err := task.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Task
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got.ID != task.ID || got.Command != task.Command {
		t.Errorf("identity fields lost: %+v", got)
	}
	if got.Status != StatusInProgress {
		t.Errorf("Status = %s, want in_progress", got.Status)
	}
	if got.ClaimedAt == nil || !got.ClaimedAt.Equal(claimed) {
		t.Errorf("ClaimedAt = %v, want %v", got.ClaimedAt, claimed)
	}
	if got.Metadata["priority"] != "high" {
		t.Errorf("Metadata = %v", got.Metadata)
	}
}

func TestTaskWireNames(t *testing.T) {
	task := &Task{
		ID:          "1_aa",
		Command:     "x",
		FromHost:    "a",
		TargetHost:  "b",
		SubmittedAt: time.Now(),
		Status:      StatusPending,
	}

	data, err := task.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	for _, field := range []string{"id", "command", "from_host", "target_host", "timestamp", "status"} {
		if _, ok := raw[field]; !ok {
			t.Errorf("field %q missing from wire form", field)
		}
	}
	// Unset optional fields stay off the wire.
	for _, field := range []string{"claimed_by", "claimed_at", "completed_at", "metadata"} {
		if _, ok := raw[field]; ok {
			t.Errorf("unset field %q present on wire", field)
		}
	}
}

func TestTaskClone(t *testing.T) {
	now := time.Now()
	task := &Task{
		ID:        "1_aa",
		Command:   "x",
		Status:    StatusInProgress,
		ClaimedAt: &now,
		Metadata:  map[string]string{"k": "v"},
	}

	clone := task.Clone()
	clone.Metadata["k"] = "changed"
	*clone.ClaimedAt = now.Add(time.Hour)

	if task.Metadata["k"] != "v" {
		t.Errorf("clone shares metadata map")
	}
	if !task.ClaimedAt.Equal(now) {
		t.Errorf("clone shares ClaimedAt pointer")
	}
}
