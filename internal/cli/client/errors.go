package client

import "errors"

// Kind classifies a failed call the way the session layer reacts to it.
type Kind string

const (
	// KindAuthRejected means the token was explicitly refused (HTTP 401 on an authenticated call).
	// The session must be reset.
	KindAuthRejected Kind = "auth_rejected"
	// KindValidation means the input was malformed, caught locally or by the server (HTTP 400/422).
	KindValidation Kind = "validation_failed"
	// KindRequestFailed covers transport errors, server errors and anything else.
	KindRequestFailed Kind = "request_failed"
)

// Sentinels for errors.Is; matching is by kind only.
var (
	ErrAuthRejected  = &Error{Kind: KindAuthRejected}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrRequestFailed = &Error{Kind: KindRequestFailed}
)

// Error is a classified API failure. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status, 0 when no response was received
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// Unwrap implements error unwrapping for error chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is enables errors.Is() to match errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a classified error with a user-facing message.
func NewError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of err. Unclassified errors count as request failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindRequestFailed
}

// IsAuthRejected reports whether err ends the session.
func IsAuthRejected(err error) bool {
	return errors.Is(err, ErrAuthRejected)
}
