package interfaces

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable category for programmatic error handling.
// Callers should branch on the kind rather than matching error strings.
type ErrorKind string

const (
	KindMissingArgument         ErrorKind = "MissingArgument"
	KindInvalidFormat           ErrorKind = "InvalidFormat"
	KindTickerMismatch          ErrorKind = "TickerMismatch"
	KindDiscoveryFailed         ErrorKind = "DiscoveryFailed"
	KindMissingResolverEndpoint ErrorKind = "MissingResolverEndpoint"
	KindMissingKey              ErrorKind = "MissingKey"
	KindKeyPinFailed            ErrorKind = "KeyPinFailed"
	KindKeyPinMismatch          ErrorKind = "KeyPinMismatch"
	KindResolutionFailed        ErrorKind = "ResolutionFailed"
	KindMalformedToken          ErrorKind = "MalformedToken"
	KindInvalidKey              ErrorKind = "InvalidKey"
	KindInvalidSignature        ErrorKind = "InvalidSignature"
	KindMalformedPayload        ErrorKind = "MalformedPayload"
	KindMissingExpiry           ErrorKind = "MissingExpiry"
	KindExpired                 ErrorKind = "Expired"
)

// AliasFormat is the expected shape of an alias, reported with format errors.
const AliasFormat = "[ticker:]alias[+tag]$domain"

// Error is the structured error returned by every resolution stage.
//
// Value carries the offending input and Expected the expected format or the
// counterpart value it was compared against. For KindTickerMismatch, Value is
// the ticker found in the alias or payload and Expected the caller's ticker.
//
// Message is intended for humans; do not match on it.
type Error struct {
	Kind     ErrorKind
	Message  string
	Value    string
	Expected string
	Cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Value != "" && e.Expected != "" {
		msg = fmt.Sprintf("%s (got %q, expected %q)", msg, e.Value, e.Expected)
	} else if e.Value != "" {
		msg = fmt.Sprintf("%s (got %q)", msg, e.Value)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is reports kind equality so that errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Value == "" && t.Expected == ""
}

// NewError creates a structured error of the given kind.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// WrapError creates a structured error of the given kind with an underlying cause.
func WrapError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// WithValue returns a copy of the error carrying the offending value.
func (e *Error) WithValue(value string) *Error {
	out := *e
	out.Value = value
	return &out
}

// WithExpected returns a copy of the error carrying the expected format or value.
func (e *Error) WithExpected(expected string) *Error {
	out := *e
	out.Expected = expected
	return &out
}

// IsKind reports whether err is (or wraps) an *Error with the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// KindOf returns the kind of a structured error, or "" for anything else.
func KindOf(err error) ErrorKind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}
