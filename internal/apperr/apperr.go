package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for propagation and transport mapping.
type Kind string

const (
	KindValidation  Kind = "validation_error"
	KindConflict    Kind = "conflict"
	KindNotFound    Kind = "not_found"
	KindPolicyBlock Kind = "policy_block"
	KindPersistence Kind = "persistence_error"
)

// Error is a classified error. Sentinels declared by domain packages are *Error
// values, so errors.Is compares them by identity.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message, Retryable: true}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func PolicyBlock(code, message string) *Error {
	return &Error{Kind: KindPolicyBlock, Code: code, Message: message}
}

// Persistence wraps a storage failure. Retryable is derived from the cause.
func Persistence(op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:      KindPersistence,
		Code:      "persistence_failure",
		Message:   op,
		Retryable: isTransient(err),
		Err:       err,
	}
}

// Typer is implemented by richer error types (validation lists, policy blocks)
// that are not plain *Error values.
type Typer interface {
	ErrorKind() Kind
}

// KindOf returns the kind of err, or "" when it is unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var typed Typer
	if errors.As(err, &typed) {
		return typed.ErrorKind()
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// CodeOf returns the machine code of a classified error.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether the caller may retry after refreshing state.
func IsRetryable(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// EnsureClassified leaves classified errors untouched and wraps anything
// else as a persistence failure of op.
func EnsureClassified(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != "" {
		return err
	}
	return Persistence(op, err)
}
