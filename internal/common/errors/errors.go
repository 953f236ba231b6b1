// Package errors provides the closed error taxonomy shared by both flows.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies every failure the client can produce. The set is closed:
// callers switch on it, render one generic message, and never retry.
type Kind string

const (
	// KindNetwork covers transport failures and non-2xx responses that
	// carry no more specific meaning.
	KindNetwork Kind = "network"

	// KindValidation covers inputs rejected before any request is made
	// (empty fields, unreadable documents).
	KindValidation Kind = "validation"

	// KindAuth covers rejected credentials and expired bearer tokens.
	KindAuth Kind = "auth"

	// KindNotFound covers 404s on record fetches.
	KindNotFound Kind = "not_found"

	// KindPrecondition covers missing cached state (no session id, no
	// token) detected before any request is made.
	KindPrecondition Kind = "precondition"
)

// FlowError is the structured error every component returns.
type FlowError struct {
	Kind      Kind      `json:"kind"`
	Op        string    `json:"op"`
	Message   string    `json:"message"`
	Err       error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Kind, e.Message)
}

func (e *FlowError) Unwrap() error { return e.Err }

// New builds a FlowError for op with the given kind.
func New(kind Kind, op, message string) *FlowError {
	return &FlowError{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Wrap builds a FlowError around an underlying error.
func Wrap(kind Kind, op, message string, err error) *FlowError {
	return &FlowError{
		Kind:      kind,
		Op:        op,
		Message:   message,
		Err:       err,
		Timestamp: time.Now().UTC(),
	}
}

// NewNetworkError marks a transport or HTTP failure on op.
func NewNetworkError(op string, err error) *FlowError {
	return Wrap(KindNetwork, op, "request failed", err)
}

// NewValidationError marks input rejected before dispatch.
func NewValidationError(op, message string) *FlowError {
	return New(KindValidation, op, message)
}

// NewAuthError marks rejected or missing credentials.
func NewAuthError(op string, err error) *FlowError {
	return Wrap(KindAuth, op, "invalid credentials", err)
}

// NewNotFoundError marks a record the backend does not know.
func NewNotFoundError(op string, err error) *FlowError {
	return Wrap(KindNotFound, op, "record not found", err)
}

// NewPreconditionError marks missing cached state (session id, token).
func NewPreconditionError(op, message string) *FlowError {
	return New(KindPrecondition, op, message)
}

// KindOf extracts the Kind from err, defaulting to KindNetwork so any
// unclassified failure still collapses to the generic network message.
func KindOf(err error) Kind {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNetwork
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
