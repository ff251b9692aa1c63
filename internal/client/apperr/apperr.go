// Package apperr defines the client error taxonomy. Errors are matched with
// errors.Is against the exported sentinels.
package apperr

import (
	"errors"
	"strings"
)

var (
	// ErrAuth means bad credentials or an expired session.
	ErrAuth = errors.New("authentication failed")
	// ErrValidation means the input was rejected, locally or by the server.
	ErrValidation = errors.New("invalid request")
	// ErrNetwork means the request never produced a readable response.
	ErrNetwork = errors.New("network failure")
	// ErrClassification means a ledger entry has an unknown shape.
	ErrClassification = errors.New("unknown ledger entry shape")
	// ErrServer is any other failure reported by the server.
	ErrServer = errors.New("server error")
	// ErrBusy means the same action is still in flight.
	ErrBusy = errors.New("request already in progress")
	// ErrStale means the result belongs to an ended session or navigation.
	ErrStale = errors.New("result discarded")
	// ErrForbidden means the session lacks a required capability.
	ErrForbidden = &Error{Kind: ErrValidation, Message: "admin access required"}
)

// Error carries the failing operation and a message fit for the user.
type Error struct {
	// Kind is one of the package sentinels.
	Kind error
	// Op names the operation, e.g. "transfer".
	Op string
	// Status is the HTTP status, if any.
	Status int
	// Message is human-readable and shown to the user as is.
	Message string
	// Err is the underlying cause.
	Err error
}

// New builds an Error of the given kind.
func New(kind error, op, message string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: cause}
}

// Validation is shorthand for a locally detected input problem.
func Validation(op, message string) *Error {
	return New(ErrValidation, op, message, nil)
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Kind != nil:
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the error kind, so errors.Is(err, ErrAuth) works on wrapped errors.
func (e *Error) Is(target error) bool {
	if target == e {
		return true
	}
	return e.Kind != nil && errors.Is(e.Kind, target)
}

// Message returns a non-empty message for showing err to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch {
	case errors.Is(err, ErrNetwork):
		return "could not reach the bank, please try again"
	case errors.Is(err, ErrBusy):
		return "please wait for the previous request to finish"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "something went wrong"
}

// Global reports whether err is handled at session level rather than by the
// view that issued the request.
func Global(err error) bool {
	return errors.Is(err, ErrAuth) || errors.Is(err, ErrStale)
}
