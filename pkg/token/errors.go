package token

import (
	"errors"
	"fmt"
)

// Error is a coded token error. Codes have the form VT-<AREA>-<NNNN> and are
// stable; messages are for humans.
type Error struct {
	Code    string // e.g. "VT-TOKN-4011"
	Message string
	Details string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates an Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: details, Cause: e.Cause}
}

// WithCause returns a copy of the error wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Details: e.Details, Cause: cause}
}

// IsCode reports whether err is an *Error with the given code. An empty code
// matches any *Error.
func IsCode(err error, code string) bool {
	var te *Error
	if !errors.As(err, &te) {
		return false
	}
	return code == "" || te.Code == code
}

// CodeOf returns the code of err, or "" if err is not an *Error.
func CodeOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

var (
	// ErrInvalidInput is returned by Generate for unusable arguments.
	ErrInvalidInput = NewError("VT-ARG-4001", "invalid input")

	// ErrMalformedToken means the token text is not valid base64.
	ErrMalformedToken = NewError("VT-TOKN-4000", "malformed token")

	// ErrTokenRejected means the protector could not authenticate the token.
	ErrTokenRejected = NewError("VT-TOKN-4001", "token rejected")

	// ErrMalformedPayload means the decrypted bytes are not a payload.
	ErrMalformedPayload = NewError("VT-TOKN-4002", "malformed payload")

	// ErrTokenExpired means the token lifespan has elapsed.
	ErrTokenExpired = NewError("VT-TOKN-4011", "token expired")

	// ErrFieldMismatch means a bound field differs from the expected value.
	ErrFieldMismatch = NewError("VT-TOKN-4030", "token field mismatch")

	// ErrProtectFailed means the protector could not protect a payload.
	ErrProtectFailed = NewError("VT-SYS-5001", "protect failed")

	// ErrInternal covers recovered panics.
	ErrInternal = NewError("VT-SYS-5000", "internal error")
)
