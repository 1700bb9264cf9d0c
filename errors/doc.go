// Package errors provides a structured error taxonomy for the dirqueue
// task coordination system. It defines the error codes and categories
// the queue, store, executor and worker use to decide whether a failure
// is tolerated, surfaced as a soft "no", or propagated hard.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: Temporary failures where retry may succeed
//   - Permanent: Failures where retry will not help (invalid input, not found)
//   - Resource: Contention issues (advisory lock held by another claimant)
//   - Internal: Storage failures and bugs (disk full, corrupt records)
//
// # Error Codes
//
// Each error has a specific code that identifies the type of failure:
//
//   - LOCK_TIMEOUT: Advisory lock not acquired within the deadline
//   - CORRUPT_RECORD: A stored record failed to parse
//   - NOT_FOUND: Task or result does not exist
//   - EXECUTOR_FAILED: External executor error, non-zero exit, or timeout
//   - STORAGE_IO: Disk full, permission denied, or other I/O failure
//   - And more...
//
// # Usage
//
// Create a new error:
//
//	err := errors.LockTimeout("claim deadline exceeded")
//
// Wrap an existing error with context:
//
//	wrapped := errors.WrapWithCode(err, errors.ErrCodeStorageIO, "writing task record")
//
// Check how an error should be handled:
//
//	if errors.Is(err, errors.ErrCodeCorruptRecord) {
//	    // skip the record, keep going
//	}
//	if errors.IsRetryable(err) {
//	    // retry logic
//	}
package errors
