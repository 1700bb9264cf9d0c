package errors

import (
	"context"
	"errors"
	"fmt"
)

// Wrap wraps an error with additional context while preserving the error chain.
// If err is nil, Wrap returns nil.
// If err is already a QueueError, it wraps it with the new message.
// Otherwise, it creates a new Internal error wrapping the original.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}

	// If it's already a structured error, preserve its properties
	var qerr *Error
	if errors.As(err, &qerr) {
		wrapped := &Error{
			code:      qerr.code,
			category:  qerr.category,
			message:   message,
			cause:     err,
			retryable: qerr.retryable,
			hostID:    qerr.hostID,
			taskID:    qerr.taskID,
		}
		for _, opt := range opts {
			opt(wrapped)
		}
		return wrapped
	}

	// Check for context errors
	if errors.Is(err, context.DeadlineExceeded) {
		return New(ErrCodeTimeout, message, append(opts, WithCause(err))...)
	}
	if errors.Is(err, context.Canceled) {
		return New(ErrCodeCanceled, message, append(opts, WithCause(err))...)
	}

	// Default to internal error for unknown errors
	return New(ErrCodeInternal, message, append(opts, WithCause(err))...)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...interface{}) *Error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific error code.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	opts = append(opts, WithCause(err))
	return New(code, message, opts...)
}

// Is checks if any error in the chain has the given error code.
func Is(err error, code ErrorCode) bool {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.code == code
	}
	return false
}

// IsCategory checks if any error in the chain has the given category.
func IsCategory(err error, category ErrorCategory) bool {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.category == category
	}
	return false
}

// IsRetryable checks if the error is retryable.
func IsRetryable(err error) bool {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.Retryable()
	}
	// Default to not retryable for unstructured errors
	return false
}

// Code extracts the error code from an error, if available.
// Returns empty string if err is not a structured error.
func Code(err error) ErrorCode {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.code
	}
	return ""
}

// Category extracts the error category from an error, if available.
// Returns empty string if err is not a structured error.
func Category(err error) ErrorCategory {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.category
	}
	return ""
}

// RecoverPanic converts a recovered panic value into an Error.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	var message string
	switch v := recovered.(type) {
	case error:
		message = v.Error()
	case string:
		message = v
	default:
		message = fmt.Sprintf("%v", v)
	}
	return New(ErrCodePanic, message)
}
