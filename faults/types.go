package faults

import "errors"

type ErrorCategory string

const (
	// SchemaMismatch marks resources whose shapes cannot be diffed against
	// each other. A configuration-schema or programming error, fatal to the
	// operation that raised it.
	SchemaMismatch ErrorCategory = "SchemaMismatch"
	// TypeMismatch marks a field whose local and remote representations
	// cannot be coerced to the same comparable type.
	TypeMismatch ErrorCategory = "TypeMismatch"
	// RemoteUnavailable marks transient connection-level failures, eligible
	// for caller-level retry.
	RemoteUnavailable ErrorCategory = "RemoteUnavailable"
	// RemoteRejected marks structural validation failures returned by the
	// remote instance, surfaced verbatim and never retried.
	RemoteRejected ErrorCategory = "RemoteRejected"
	// ConvergenceFailure marks a residual diff found by post-apply
	// verification.
	ConvergenceFailure ErrorCategory = "ConvergenceFailure"

	ValidationError ErrorCategory = "ValidationError"
	NotFoundError   ErrorCategory = "NotFoundError"
	AuthError       ErrorCategory = "AuthError"
	InternalError   ErrorCategory = "InternalError"
)

type TypedError struct {
	Category ErrorCategory
	Message  string
	Cause    error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" && e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// Retryable reports whether an error is transient. Only connection-level
// remote failures qualify; remote validation errors must surface to the user.
func Retryable(err error) bool {
	return IsCategory(err, RemoteUnavailable)
}
