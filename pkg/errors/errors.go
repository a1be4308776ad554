// Package errors provides structured error handling for seqweave.
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeNotFound represents a missing region or tag lookup
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeSyntax represents read-structure description parse errors
	ErrorTypeSyntax ErrorType = "syntax"
	// ErrorTypeUnresolvedLabel represents an invalid or duplicate capture name
	ErrorTypeUnresolvedLabel ErrorType = "unresolved_label"
	// ErrorTypeCycle represents a cycle detected while sealing a graph
	ErrorTypeCycle ErrorType = "cycle"
	// ErrorTypeUnresolvedDependency represents a consumed region nothing produces
	ErrorTypeUnresolvedDependency ErrorType = "unresolved_dependency"
	// ErrorTypeNoMatch represents a pattern that did not match a record
	ErrorTypeNoMatch ErrorType = "no_match"
	// ErrorTypeOverlap represents a region overlap contract violation
	ErrorTypeOverlap ErrorType = "overlap"
	// ErrorTypeFilterRejected represents a record rejected by a filter predicate
	ErrorTypeFilterRejected ErrorType = "filter_rejected"
	// ErrorTypeCustomOperator represents a failure inside user-supplied operator code
	ErrorTypeCustomOperator ErrorType = "custom_operator"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents malformed input data errors
	ErrorTypeData ErrorType = "data"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// IsBuildTime returns true if the error is fatal at graph or pattern build time.
// Build-time errors abort construction; the pipeline never starts.
func IsBuildTime(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeSyntax, ErrorTypeUnresolvedLabel, ErrorTypeCycle, ErrorTypeUnresolvedDependency, ErrorTypeConfig:
		return true
	default:
		return false
	}
}

// IsRecoverable returns true if the error is local to a single record.
// Recoverable errors route the record to a discarded or errored output and
// never halt sibling records or other batches.
func IsRecoverable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeNoMatch, ErrorTypeOverlap, ErrorTypeFilterRejected, ErrorTypeCustomOperator, ErrorTypeNotFound, ErrorTypeData:
		return true
	default:
		return false
	}
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
