// Package bus delivers queue lifecycle notifications between hosts.
//
// The Notifier interface provides pub/sub over NATS or in-memory
// channels. Notifications are strictly advisory: the shared directory
// is the source of truth, and a worker that misses an event still
// finds the task on its next poll. Subscribers with full buffers have
// messages dropped for the same reason.
package bus
