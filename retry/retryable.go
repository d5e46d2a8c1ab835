package retry

import (
	"errors"
	"strings"
)

// RetryableError marks an error as safe to retry.
type RetryableError interface {
	error
	IsRetryable() bool
}

// OverloadedError marks an error as an infrastructure overload condition.
type OverloadedError interface {
	error
	IsOverloaded() bool
}

// IsRetryable reports whether an error should be retried. An error is
// retryable only when it explicitly says so via RetryableError and it does
// not represent an overloaded dependency. Overload is never retryable, even
// when the error also carries a retryable marker.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsOverloaded(err) {
		return false
	}
	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}

// IsOverloaded reports whether an error indicates an overloaded dependency,
// either via an explicit OverloadedError marker or a recognizable message.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	var overloaded OverloadedError
	if errors.As(err, &overloaded) {
		return overloaded.IsOverloaded()
	}
	message := strings.ToLower(err.Error())
	overloadPatterns := []string{
		"overloaded",
		"capacity exceeded",
		"too many requests",
	}
	for _, pattern := range overloadPatterns {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) IsRetryable() bool {
	return true
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// NewRetryableError wraps an error with an explicit retryable marker.
func NewRetryableError(err error) *retryableError {
	return &retryableError{err: err}
}

// NonRetryableError represents an error that should not be retried.
type NonRetryableError struct {
	err error
}

func (e *NonRetryableError) Error() string {
	return e.err.Error()
}

func (e *NonRetryableError) IsRetryable() bool {
	return false
}

func (e *NonRetryableError) Unwrap() error {
	return e.err
}

// NewNonRetryableError wraps an error with an explicit do-not-retry marker.
func NewNonRetryableError(err error) *NonRetryableError {
	return &NonRetryableError{err: err}
}

type overloadedError struct {
	err error
}

func (e *overloadedError) Error() string {
	return e.err.Error()
}

func (e *overloadedError) IsOverloaded() bool {
	return true
}

func (e *overloadedError) Unwrap() error {
	return e.err
}

// NewOverloadedError wraps an error with an overload marker, making it
// non-retryable regardless of any retryable flag it carries.
func NewOverloadedError(err error) *overloadedError {
	return &overloadedError{err: err}
}
