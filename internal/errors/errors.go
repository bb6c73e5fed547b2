// Package errors provides the error taxonomy shared by the variational
// optimizer packages.
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"strings"
)

// Kind classifies an error so callers can react to the failure category
// without parsing messages.
type Kind int

const (
	// KindUnknown is the zero value for errors that carry no classification.
	KindUnknown Kind = iota
	// KindContract is a caller violating an input contract, such as a
	// parameter vector of the wrong length or an out-of-range qubit index.
	KindContract
	// KindConfiguration is an invalid or unresolvable configuration, such as
	// an unknown optimizer name or backend.
	KindConfiguration
	// KindDataConsistency signals a backend or reduction bug, for example
	// probability mass that does not sum to one.
	KindDataConsistency
	// KindOrdering is an operation invoked before the state it depends on
	// has been produced.
	KindOrdering
	// KindBackend is a failure while executing a circuit.
	KindBackend
	// KindEvaluation is a failure inside an objective evaluation.
	KindEvaluation
)

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindContract:
		return "contract violation"
	case KindConfiguration:
		return "configuration error"
	case KindDataConsistency:
		return "data consistency fault"
	case KindOrdering:
		return "ordering violation"
	case KindBackend:
		return "backend error"
	case KindEvaluation:
		return "evaluation error"
	default:
		return "unknown error"
	}
}

// Sentinel values usable with errors.Is. Matching is by Kind only.
var (
	ErrContractViolation = &Error{Kind: KindContract}
	ErrConfiguration     = &Error{Kind: KindConfiguration}
	ErrDataConsistency   = &Error{Kind: KindDataConsistency}
	ErrOrdering          = &Error{Kind: KindOrdering}
	ErrBackend           = &Error{Kind: KindBackend}
	ErrEvaluation        = &Error{Kind: KindEvaluation}
)

// Error represents an error with context and stack trace.
type Error struct {
	// Kind classifies the failure.
	Kind Kind
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The component or package where the error occurred
	Component string
	// The stack trace
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	} else if e.Kind != KindUnknown {
		builder.WriteString(e.Kind.String())
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
	}

	if e.Component != "" {
		if builder.Len() > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString("component=")
		builder.WriteString(e.Component)
	}

	if e.Err != nil {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString(e.Err.Error())
	}

	return builder.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same, non-zero Kind. It lets
// the package sentinels match any error of their category.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind != KindUnknown && t.Kind == e.Kind
}

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithComponent adds a component to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// StackTrace returns the stack trace as a slice of strings.
func (e *Error) StackTrace() []string {
	return e.Stack
}

// New creates a new error of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{
		Kind:    kind,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Errorf creates a new error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// Wrap wraps err with a kind and message. If err is nil, Wrap returns nil.
func Wrap(err error, kind Kind, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: msg,
		Stack:   getStackTrace(),
	}
}

// Wrapf wraps err with a kind and formatted message. If err is nil, Wrapf
// returns nil.
func Wrapf(err error, kind Kind, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Err:     err,
		Message: fmt.Sprintf(format, args...),
		Stack:   getStackTrace(),
	}
}

// KindOf returns the Kind of the outermost *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// getStackTrace returns the current stack trace as a slice of strings.
func getStackTrace() []string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // Skip runtime.Callers, getStackTrace, and the constructor
	if n == 0 {
		return nil
	}

	frames := runtime.CallersFrames(pcs[:n])
	stack := make([]string, 0, n)

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") && !strings.Contains(frame.File, "internal/errors") {
			stack = append(stack, fmt.Sprintf("%s\n\t%s:%d", frame.Function, frame.File, frame.Line))
		}
		if !more {
			break
		}
	}

	return stack
}
