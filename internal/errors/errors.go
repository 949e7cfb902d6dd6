// Package errors maps failures of the boxmin server onto JSON-RPC 2.0 error
// objects and HTTP status codes.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"

	"github.com/copyleftdev/boxmin/internal/optimization"
)

// Code is a JSON-RPC 2.0 error code.
type Code int

const (
	ParseError     Code = -32700
	InvalidRequest Code = -32600
	MethodNotFound Code = -32601
	InvalidParams  Code = -32602
	Internal       Code = -32603
	// ServerError covers failures of an accepted request, e.g. an objective
	// that produced a non-finite value.
	ServerError Code = -32000
	// NotFound reports an unknown optimization id.
	NotFound Code = -32004
)

// HTTPStatus returns the status the REST endpoints use for c.
func (c Code) HTTPStatus() int {
	switch c {
	case ParseError, InvalidRequest, InvalidParams:
		return http.StatusBadRequest
	case MethodNotFound, NotFound:
		return http.StatusNotFound
	case ServerError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error represents an error with a JSON-RPC code, context and stack trace.
type Error struct {
	// The JSON-RPC code reported to the client
	Code Code
	// The underlying error that was returned
	Err error
	// A human-readable message describing the error
	Message string
	// The operation that was being performed when the error occurred
	Operation string
	// The stack trace, captured for internal errors only
	Stack []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var builder strings.Builder

	if e.Message != "" {
		builder.WriteString(e.Message)
	}

	if e.Operation != "" {
		if builder.Len() > 0 {
			builder.WriteString(": ")
		}
		builder.WriteString("operation=")
		builder.WriteString(e.Operation)
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

// WithOperation adds an operation to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// Object is the "error" member of a JSON-RPC response.
type Object struct {
	Code    Code        `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Object renders e for the wire. The cause of a numerical failure is
// attached as data so clients can see the offending point; numbers are
// formatted as text because JSON has no NaN.
func (e *Error) Object() Object {
	obj := Object{Code: e.Code, Message: e.Error()}
	var nf *optimization.NumericalFailure
	if stderrors.As(e, &nf) {
		obj.Data = map[string]interface{}{
			"operation": nf.Op,
			"input":     fmt.Sprint(nf.Input),
			"values":    fmt.Sprint(nf.Values),
		}
	}
	return obj
}

// New creates a new error with a code and message.
func New(code Code, msg string) *Error {
	e := &Error{Code: code, Message: msg}
	if code == Internal {
		e.Stack = getStackTrace()
	}
	return e
}

// Errorf creates a new error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap classifies err and wraps it with msg. An *Error keeps its code, a
// numerical failure becomes ServerError, any other optimization error is a
// rejected precondition (InvalidParams) and anything else is Internal.
func Wrap(err error, msg string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if stderrors.As(err, &e) {
		return &Error{Code: e.Code, Err: err, Message: msg}
	}

	code := Internal
	if _, ok := optimization.IsNumericalFailure(err); ok {
		code = ServerError
	} else if _, ok := optimization.IsOptimizationError(err); ok {
		code = InvalidParams
	}

	e = &Error{Code: code, Err: err, Message: msg}
	if code == Internal {
		e.Stack = getStackTrace()
	}
	return e
}

// CodeOf returns the code carried by err, or Internal.
func CodeOf(err error) Code {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return Internal
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
