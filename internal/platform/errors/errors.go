// Package errors is the coded error shared by the stores, services and the HTTP envelope.
// Import it as perr.
package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failure for callers and clients
type ErrorCode uint16

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodePanic
	// ErrorCodeUnavailable marks failures where a later retry may succeed
	ErrorCodeUnavailable
	// ErrorCodeTimeout marks a dependency that missed its deadline
	ErrorCodeTimeout
	ErrorCodeValidation
	ErrorCodeJSON
	ErrorCodeDuplicateKey
	ErrorCodeDB
)

var statusOf = map[ErrorCode]int{
	ErrorCodeUnavailable:  http.StatusServiceUnavailable,
	ErrorCodeTimeout:      http.StatusGatewayTimeout,
	ErrorCodeValidation:   http.StatusBadRequest,
	ErrorCodeJSON:         http.StatusBadRequest,
	ErrorCodeDuplicateKey: http.StatusConflict,
}

// Error pairs a client-safe message and code with an optional cause
type Error struct {
	code  ErrorCode
	msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

// Code returns the classification
func (e *Error) Code() ErrorCode { return e.code }

// Message returns the text without the cause
func (e *Error) Message() string { return e.msg }

// New returns a coded error
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf is New with formatting
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap codes cause under msg
func Wrap(cause error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, cause: cause}
}

// Wrapf is Wrap with formatting
func Wrapf(cause error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), cause: cause}
}

// JSONErrf reports a malformed request body
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf reports a recovered panic
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unavailablef reports a retryable outage
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// FromContext codes a context failure: deadline is Timeout, cancellation is Unavailable.
// nil stays nil
func FromContext(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case stderrs.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrorCodeTimeout, msg)
	case stderrs.Is(err, context.Canceled):
		return Wrap(err, ErrorCodeUnavailable, msg)
	}
	return Wrap(err, ErrorCodeUnknown, msg)
}

// As returns the outermost *Error in err's chain
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns err's code, Unknown for foreign errors
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err carries code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus maps err to a response status; unmapped codes are 500
func HTTPStatus(err error) int {
	if s, ok := statusOf[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Message is what a client sees for err
func Message(err error) string {
	if e, ok := As(err); ok {
		return e.msg
	}
	return err.Error()
}
