package auth

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies authentication failures for the caller.
type Kind int

const (
	KindUnavailable Kind = iota
	KindInvalidInput
	KindInvalidCredentials
	KindAccountLocked
	KindInvalidCode
	KindCodeExpired
	KindInvalidToken
	KindTokenExpired
	KindConflict
)

// invalidCredentialsMessage is shared by unknown-account and wrong-password
// failures so responses never reveal whether an account exists.
const invalidCredentialsMessage = "Invalid email or password."

// Error is a typed authentication failure.
type Error struct {
	Kind    Kind
	Message string

	// LockedUntil carries the unlock instant for KindAccountLocked.
	LockedUntil time.Time
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// ErrKind returns the failure kind, mapping unknown errors to Unavailable.
func ErrKind(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnavailable
}

// IsKind reports whether the error carries the given kind.
func IsKind(err error, kind Kind) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Kind == kind
}

func errInvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func errInvalidCredentials() *Error {
	return &Error{Kind: KindInvalidCredentials, Message: invalidCredentialsMessage}
}

func errAccountLocked(until time.Time) *Error {
	return &Error{
		Kind:        KindAccountLocked,
		Message:     fmt.Sprintf("Account locked. Try again after %s.", until.UTC().Format(time.RFC1123)),
		LockedUntil: until,
	}
}

func errInvalidCode() *Error {
	return &Error{Kind: KindInvalidCode, Message: "Invalid code."}
}

func errCodeExpired() *Error {
	return &Error{Kind: KindCodeExpired, Message: "Code expired. A new code has been sent."}
}

func errInvalidToken() *Error {
	return &Error{Kind: KindInvalidToken, Message: "Invalid or already used token."}
}

func errTokenExpired() *Error {
	return &Error{Kind: KindTokenExpired, Message: "Token has expired."}
}

func errConflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

func errUnavailable() *Error {
	return &Error{Kind: KindUnavailable, Message: "Service temporarily unavailable."}
}
