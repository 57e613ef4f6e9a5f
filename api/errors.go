// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-sort.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the module.
var (
	ErrClosed          = errors.New("resource is closed")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrBufferFull      = errors.New("receive buffer full")
	ErrNotSupported    = errors.New("operation not supported")
	ErrAlreadyExists   = errors.New("resource already exists")
)

// ErrorCode represents specific error conditions in the module.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeNotSupported
	ErrCodeSocket
	ErrCodeInternal
)

// Error represents a structured error with code and context.
// Err, when set, is exposed through Unwrap so errors.Is keeps working
// against the underlying syscall errno.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// CodeOf returns the ErrorCode carried by err, or ErrCodeInternal when err
// is not an *Error. A nil error yields ErrCodeOK.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}
