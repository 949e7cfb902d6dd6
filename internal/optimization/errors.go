package optimization

import (
	"errors"
	"fmt"
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrNonFinite is the sentinel wrapped by every NumericalFailure.
var ErrNonFinite = errors.New("non-finite objective evaluation")

// NumericalFailure reports an objective evaluation that produced NaN or an
// infinity. It is fatal: the optimizers never retry or substitute a value.
type NumericalFailure struct {
	// Op names the evaluation site, e.g. "univariate.Newton".
	Op string
	// Input is a copy of the point that was evaluated.
	Input []float64
	// Values holds what the objective returned (value, and derivatives when
	// they were requested).
	Values []float64
}

func newNumericalFailure(op string, input []float64, values ...float64) *NumericalFailure {
	return &NumericalFailure{
		Op:     op,
		Input:  append([]float64(nil), input...),
		Values: values,
	}
}

// Error returns the string representation of the failure.
func (e *NumericalFailure) Error() string {
	return fmt.Sprintf("%s: %v at %v: %v", e.Op, ErrNonFinite, e.Input, e.Values)
}

// Unwrap returns ErrNonFinite.
func (e *NumericalFailure) Unwrap() error {
	return ErrNonFinite
}

// IsNumericalFailure reports whether err carries a NumericalFailure anywhere
// in its chain.
func IsNumericalFailure(err error) (*NumericalFailure, bool) {
	var nf *NumericalFailure
	if errors.As(err, &nf) {
		return nf, true
	}
	return nil, false
}
