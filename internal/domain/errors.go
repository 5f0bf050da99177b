package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition       = errors.New("invalid transition")
	ErrPreconditionNotMet      = errors.New("precondition not met")
	ErrDuplicateLodgement      = errors.New("duplicate lodgement")
	ErrImmutableFieldViolation = errors.New("immutable field violation")
	ErrNotFound                = errors.New("not found")
	ErrProtectedReference      = errors.New("protected reference")
)

// TransitionError describes a rejected status change. Kind is either
// ErrInvalidTransition or ErrPreconditionNotMet.
type TransitionError struct {
	Kind   error
	Record RecordKind
	Axis   string
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s %s %q -> %q", e.Kind, e.Record, e.Axis, e.From, e.To)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return e.Kind }

func invalidTransition(record RecordKind, axis, from, to, reason string) *TransitionError {
	return &TransitionError{Kind: ErrInvalidTransition, Record: record, Axis: axis, From: from, To: to, Reason: reason}
}

func preconditionNotMet(record RecordKind, axis, from, to, reason string) *TransitionError {
	return &TransitionError{Kind: ErrPreconditionNotMet, Record: record, Axis: axis, From: from, To: to, Reason: reason}
}

// ImmutableFieldError is returned when a set-once field would be rewritten.
type ImmutableFieldError struct {
	Field     string
	Current   string
	Attempted string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("%s: %s is %q, refusing %q", ErrImmutableFieldViolation, e.Field, e.Current, e.Attempted)
}

func (e *ImmutableFieldError) Unwrap() error { return ErrImmutableFieldViolation }
