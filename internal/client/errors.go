package client

import (
	"errors"
	"fmt"
)

// Kind distinguishes the failure classes at the host boundary. The UI still
// flattens these to a display string, but callers can branch on them.
type Kind string

// Error kinds.
const (
	// KindTransport covers network-level failures: connection refused,
	// timeouts, context cancellation.
	KindTransport Kind = "transport"
	// KindBackend covers failures the host itself reported, either as a
	// non-2xx status or a success=false envelope.
	KindBackend Kind = "backend"
	// KindDecode covers malformed payloads in either direction.
	KindDecode Kind = "decode"
)

// Error is a failure talking to a host.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("host %s: %s: %s", e.Kind, e.Op, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is (or wraps) a client Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// backendError builds a backend-reported error for an operation.
func backendError(op, message string) *Error {
	if message == "" {
		message = "host reported failure without detail"
	}
	return &Error{Kind: KindBackend, Op: op, Message: message}
}
