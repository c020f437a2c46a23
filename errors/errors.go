package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a structured error carrying a code, the operation that failed and
// optional key/value context. It wraps an underlying cause for error chaining.
type Error struct {
	// Op is the operation that failed (e.g., "convert", "strip", "config.load")
	Op string

	// Code classifies the failure
	Code ErrorCode

	// Message is a human readable description
	Message string

	// Context holds additional details such as file names or offsets
	Context map[string]interface{}

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithOp sets the operation on the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithContext adds a single key/value pair of context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a code and message. It returns nil if err is nil.
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapWithContext wraps err with a code, message and context map.
// It returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Context: ctx,
		Cause:   err,
	}
}

// GetCode returns the code of the outermost *Error in the chain,
// or CodeUnknown when there is none.
func GetCode(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Is is a passthrough to the standard library so callers need only one errors import.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As is a passthrough to the standard library.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}
