// Package apperr defines the error kinds returned by the marketplace
// services. Only the HTTP layer turns a kind into a status code.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindAuthorization
	KindState
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "internal"
	}
}

// Error is a classified error with a message meant for the caller.
type Error struct {
	Kind Kind
	Msg  string
	Op   string // set for internal errors
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrState)
// works without comparing messages.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Kind markers for errors.Is.
var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrAuthorization   = &Error{Kind: KindAuthorization}
	ErrState           = &Error{Kind: KindState}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrInternal        = &Error{Kind: KindInternal}
)

// Validation reports malformed or out-of-policy input.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// NotFound reports a missing entity or an id that cannot name one.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Msg: msg}
}

// Authorization reports an authenticated caller that may not do this.
func Authorization(msg string) error {
	return &Error{Kind: KindAuthorization, Msg: msg}
}

// State reports a valid request against an entity in the wrong state.
func State(msg string) error {
	return &Error{Kind: KindState, Msg: msg}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(msg string) error {
	return &Error{Kind: KindUnauthenticated, Msg: msg}
}

// Internal wraps an unexpected store or resource failure.
func Internal(op string, err error) error {
	return &Error{Kind: KindInternal, Msg: "Server Error", Op: op, Err: err}
}

// KindOf returns the kind of err. Unclassified errors are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Msg
	}
	return "Server Error"
}
