package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Code identifies an authentication failure.
type Code string

const (
	CodeInvalidEmail      Code = "auth/invalid-email"
	CodeWeakPassword      Code = "auth/weak-password"
	CodeEmailInUse        Code = "auth/email-already-in-use"
	CodeInvalidCredential Code = "auth/invalid-credential"
	CodeUserNotFound      Code = "auth/user-not-found"
	CodeInvalidResetCode  Code = "auth/invalid-action-code"
	CodeSessionExpired    Code = "auth/user-token-expired"
	CodeNetwork           Code = "auth/network-request-failed"
	CodeInternal          Code = "auth/internal-error"
)

// Error is an authentication failure. Message is meant to be shown to the
// user as is.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var messages = map[Code]string{
	CodeInvalidEmail:      "The email address is badly formatted.",
	CodeWeakPassword:      "Password should be at least %d characters.",
	CodeEmailInUse:        "The email address is already in use by another account.",
	CodeInvalidCredential: "The email or password is incorrect.",
	CodeUserNotFound:      "There is no user record corresponding to this email.",
	CodeInvalidResetCode:  "The password reset code is invalid or has expired.",
	CodeSessionExpired:    "The session has expired. Please sign in again.",
	CodeNetwork:           "A network error has occurred. Please try again.",
	CodeInternal:          "An internal error has occurred.",
}

func newError(code Code, cause error, args ...any) *Error {
	msg := messages[code]
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &Error{Code: code, Message: msg, Err: cause}
}

// ErrCode returns an error matching any *Error with code, for errors.Is.
func ErrCode(code Code) error { return &Error{Code: code} }

// AsError maps err onto the taxonomy. Transport failures become
// CodeNetwork and anything else unknown becomes CodeInternal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var ne net.Error
	if errors.As(err, &ne) || errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeNetwork, err)
	}
	return newError(CodeInternal, err)
}
