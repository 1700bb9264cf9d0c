package errors

// ErrorCategory classifies errors by their nature and retry semantics.
type ErrorCategory string

// Error categories define how errors should be handled.
const (
	// CategoryTransient indicates temporary failures where retry may succeed.
	// Examples: a result that has not appeared yet, backend briefly unreachable.
	CategoryTransient ErrorCategory = "transient"

	// CategoryPermanent indicates failures where retry will not help.
	// Examples: invalid input, record not found, executor rejected the command.
	CategoryPermanent ErrorCategory = "permanent"

	// CategoryResource indicates resource exhaustion or contention.
	// Examples: advisory lock held past the acquisition deadline.
	CategoryResource ErrorCategory = "resource"

	// CategoryInternal indicates unexpected errors or storage failures.
	// Examples: disk full, permission denied, corrupted records.
	CategoryInternal ErrorCategory = "internal"
)

// String returns the string representation of the category.
func (c ErrorCategory) String() string {
	return string(c)
}

// IsRetryable returns true if errors in this category may succeed on retry.
func (c ErrorCategory) IsRetryable() bool {
	switch c {
	case CategoryTransient, CategoryResource:
		return true
	default:
		return false
	}
}

// ErrorCode identifies specific error types within categories.
type ErrorCode string

// Error codes for the failure scenarios the queue distinguishes.
const (
	// Transient errors
	ErrCodeTimeout     ErrorCode = "TIMEOUT"     // Bounded wait elapsed
	ErrCodeUnavailable ErrorCode = "UNAVAILABLE" // Backend temporarily unreachable

	// Permanent errors
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"       // Task or result does not exist
	ErrCodeInvalidInput   ErrorCode = "INVALID_INPUT"   // Malformed or missing input
	ErrCodeAlreadyExists  ErrorCode = "ALREADY_EXISTS"  // Duplicate task ID
	ErrCodeCanceled       ErrorCode = "CANCELED"        // Operation was canceled
	ErrCodeExecutorFailed ErrorCode = "EXECUTOR_FAILED" // External executor error or non-zero exit

	// Resource errors
	ErrCodeLockTimeout  ErrorCode = "LOCK_TIMEOUT"  // Advisory lock not acquired in time
	ErrCodeResourceBusy ErrorCode = "RESOURCE_BUSY" // Lock held by another claimant

	// Internal errors
	ErrCodeStorageIO     ErrorCode = "STORAGE_IO"     // Disk full, permission denied, I/O failure
	ErrCodeCorruptRecord ErrorCode = "CORRUPT_RECORD" // Stored record failed to parse
	ErrCodeInternal      ErrorCode = "INTERNAL"       // Unexpected internal error
	ErrCodePanic         ErrorCode = "PANIC"          // Recovered from panic
)

// String returns the string representation of the error code.
func (c ErrorCode) String() string {
	return string(c)
}

// DefaultCategory returns the default category for an error code.
func (c ErrorCode) DefaultCategory() ErrorCategory {
	switch c {
	case ErrCodeTimeout, ErrCodeUnavailable:
		return CategoryTransient

	case ErrCodeNotFound, ErrCodeInvalidInput, ErrCodeAlreadyExists,
		ErrCodeCanceled, ErrCodeExecutorFailed:
		return CategoryPermanent

	case ErrCodeLockTimeout, ErrCodeResourceBusy:
		return CategoryResource

	case ErrCodeStorageIO, ErrCodeCorruptRecord, ErrCodeInternal, ErrCodePanic:
		return CategoryInternal

	default:
		return CategoryInternal
	}
}

// DefaultRetryable returns whether this error code is typically retryable.
func (c ErrorCode) DefaultRetryable() bool {
	return c.DefaultCategory().IsRetryable()
}

// codeDescriptions provides human-readable descriptions for error codes.
var codeDescriptions = map[ErrorCode]string{
	ErrCodeTimeout:        "operation timed out",
	ErrCodeUnavailable:    "storage temporarily unavailable",
	ErrCodeNotFound:       "record not found",
	ErrCodeInvalidInput:   "invalid input provided",
	ErrCodeAlreadyExists:  "record already exists",
	ErrCodeCanceled:       "operation canceled",
	ErrCodeExecutorFailed: "executor failed",
	ErrCodeLockTimeout:    "lock not acquired within deadline",
	ErrCodeResourceBusy:   "resource is locked",
	ErrCodeStorageIO:      "storage I/O failure",
	ErrCodeCorruptRecord:  "stored record is corrupt",
	ErrCodeInternal:       "internal error",
	ErrCodePanic:          "recovered from panic",
}

// Description returns a human-readable description for the error code.
func (c ErrorCode) Description() string {
	if desc, ok := codeDescriptions[c]; ok {
		return desc
	}
	return "unknown error"
}
