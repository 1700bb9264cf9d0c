// Package tasks defines the task record and its lifecycle over a
// shared store.
//
// A task moves forward only: pending -> in_progress -> completed or
// failed. The pending -> in_progress edge is the contended one; Claim
// serializes it with the store's per-key advisory lock and re-checks
// the status under the lock, so exactly one of any set of concurrent
// claimants wins.
//
// Records are indented JSON files under tasks/, one per task, named
// task_<id>.json. Corrupt or half-written records are skipped by scans
// rather than surfaced as errors.
package tasks
