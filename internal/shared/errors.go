package shared

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers and the HTTP layer.
type Kind int

const (
	// KindValidation indicates malformed or incomplete input, rejected before any mutation.
	KindValidation Kind = iota + 1
	// KindNotFound indicates the entity is absent or belongs to another company.
	// The two cases are deliberately indistinguishable.
	KindNotFound
	// KindBusinessRule indicates a domain rule rejected the operation.
	KindBusinessRule
	// KindConflict indicates a lost update or duplicate detected by the store.
	KindConflict
	// KindInfrastructure indicates the store or a collaborator failed.
	KindInfrastructure
)

// Error carries a kind alongside a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidation builds a validation error.
func NewValidation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NewNotFound builds a not-found error.
func NewNotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// NewBusinessRule builds a business-rule violation.
func NewBusinessRule(msg string) *Error {
	return &Error{Kind: KindBusinessRule, Message: msg}
}

// NewConflict builds a concurrency conflict error.
func NewConflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

// NewInfrastructure wraps a store failure.
func NewInfrastructure(msg string, err error) *Error {
	return &Error{Kind: KindInfrastructure, Message: msg, Err: err}
}

// KindOf reports the kind of err, or KindInfrastructure when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInfrastructure
}
