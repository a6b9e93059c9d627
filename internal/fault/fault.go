// Package fault carries the error taxonomy shared by the verification
// pipeline and the adapters it calls out to.
//
// Validation faults are rejected before any external call is made. Input
// faults mean a remote service processed the request but could not extract
// the needed signal (no face found, unreadable image); they degrade a single
// signal without aborting the attempt. Transient faults (network, timeout,
// remote 5xx) abort the whole attempt, which the caller may retry.
package fault

import (
	"context"
	"errors"
	"fmt"
)

const (
	CodeValidation = "validation_error"
	CodeInput      = "input_error"
	CodeTransient  = "transient_error"
	CodeTimeout    = "timeout"
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %v", e.Fields)
}

func Validation(fields []string) *ValidationError {
	return &ValidationError{Fields: fields}
}

type InputError struct {
	Op  string
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

func Input(op string, err error) *InputError {
	return &InputError{Op: op, Err: err}
}

type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func Transient(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

func IsInput(err error) bool {
	var inputErr *InputError
	return errors.As(err, &inputErr)
}

func IsTransient(err error) bool {
	var transientErr *TransientError
	return errors.As(err, &transientErr)
}

func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsTimeout reports whether the error chain ends in a deadline expiry.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Classify wraps an error from a remote call that carries no service-specific
// error type. With nothing else to go on, an unknown failure is treated as
// transient so the caller gets a retry affordance rather than a terminal
// negative; timeouts keep their own code through IsTimeout.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	return Transient(op, err)
}

// Code maps an error to the machine-readable code the client uses for
// retry classification.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsTimeout(err):
		return CodeTimeout
	case IsValidation(err):
		return CodeValidation
	case IsInput(err):
		return CodeInput
	default:
		return CodeTransient
	}
}
