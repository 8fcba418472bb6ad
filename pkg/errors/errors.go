// Package errors provides structured error handling for featurize.
//
// Errors carry a category (ErrorType), a message, an optional cause, key-value
// details and the call stack at the point of creation. Construction-time
// problems (bad vectorizer configuration, malformed summaries) are reported
// as ErrorTypeConfig and stop pipeline setup; per-record problems surfaced by
// checked encoding are ErrorTypeData.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
)

// ErrorType classifies an error for the dispatcher and the CLI: it decides
// whether a failure skips one record or ends the run.
type ErrorType string

const (
	// ErrorTypeInternal marks broken invariants inside featurize itself
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation marks a record that failed a per-record check
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors detected while building
	// a vectorizer or loading a job
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents per-record data errors
	ErrorTypeData ErrorType = "data"
	// ErrorTypeFile marks failures reading input or writing vectors
	ErrorTypeFile ErrorType = "file"
	// ErrorTypeCapability marks a format, codec or compression featurize
	// cannot produce
	ErrorTypeCapability ErrorType = "capability"
)

// Error is the error value returned across featurize packages. Details
// hold the offending column, path or record sequence; Stack is captured
// where the failure was first classified.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame is one caller recorded in Error.Stack.
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error renders "type: message", followed by ": cause" when wrapping and
// the details in key order, e.g.
//
//	config: transform override on a categorical column [column=2]
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Type))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" [")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteByte(']')
	}
	return b.String()
}

// Unwrap exposes Cause to errors.Is and errors.As, which is how callers reach
// a *vectorizer.ColumnCountError or a *csv.ParseError.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail records key=value on e and returns e for chaining.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New returns an error of errType with the caller's stack.
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf is New with a fmt-formatted message.
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap reclassifies err as errType under message and returns nil for a nil
// err. A wrapped *Error keeps its original stack; anything else gets the
// caller's.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	wrapped := &Error{Type: errType, Message: message, Cause: err}
	if inner := (*Error)(nil); errors.As(err, &inner) {
		wrapped.Stack = inner.Stack
	} else {
		wrapped.Stack = captureStack(2)
	}
	return wrapped
}

// IsFatal reports whether the error must stop pipeline setup. Data errors
// only affect the record they were raised for.
func IsFatal(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return true
	}

	switch e.Type {
	case ErrorTypeData, ErrorTypeValidation:
		return false
	default:
		return true
	}
}

// IsType reports whether the outermost *Error in err's chain has errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// Is and As re-export the standard library helpers so callers importing this
// package under the name "errors" keep access to them.
var (
	Is = errors.Is
	As = errors.As
)

// captureStack records up to 32 callers above skip.
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
