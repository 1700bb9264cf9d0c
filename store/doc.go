// Package store provides the durable key-value storage the task queue
// coordinates through: atomic value replacement plus a per-key
// advisory lock.
//
// Two implementations are provided:
//   - FileStore: a directory tree, typically a mount shared between
//     hosts. This is the production transport; the queue has no other.
//   - MemoryStore: in-process storage for tests and single-process use.
//
// # Atomicity
//
// FileStore writes go to a uniquely named temporary file in the target
// directory followed by an atomic rename, so a concurrent reader sees
// either the complete old value or the complete new value. Rename is
// atomic only within one filesystem, which holding the temp file next
// to the target guarantees.
//
// # Advisory locking
//
// Locks are sidecar "<key>.lock" files held via flock, acquired with a
// bounded poll-and-retry. They serialize only callers that use them;
// nothing stops an outside process from editing files directly.
//
//	lock, err := st.Lock("tasks/task_123.json", 5*time.Second)
//	if err != nil {
//	    // store.ErrLockTimeout: someone else holds it
//	}
//	defer lock.Unlock()
//	// ... read, check, rewrite ...
//
// FileStore requires a Unix-like OS for flock semantics.
package store
