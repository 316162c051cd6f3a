// Package apperr defines the error taxonomy shared by all engine components.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when input fails validation before any state change
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConcurrencyConflict is returned when an optimistic update loses a race
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrArithmeticInvariant is returned when a computed total fails to reconcile
	// with its parts. This indicates a bug and is never corrected in place.
	ErrArithmeticInvariant = errors.New("arithmetic invariant violated")
)

// ValidationError reports a missing or malformed field, rejected before any state change.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError reports an unknown entity id.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NewNotFound creates a NotFoundError for the given entity and id.
func NewNotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// InvalidTransitionError reports a status change outside the allowed table. It carries
// the attempted and current state so callers can explain the conflict to a human.
type InvalidTransitionError struct {
	Entity    string
	Current   string
	Attempted string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: cannot transition from %s to %s", e.Entity, e.Current, e.Attempted)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// NewInvalidTransition creates an InvalidTransitionError.
func NewInvalidTransition(entity, current, attempted string) error {
	return &InvalidTransitionError{Entity: entity, Current: current, Attempted: attempted}
}

// ArithmeticInvariantError reports a total that does not reconcile with its parts.
type ArithmeticInvariantError struct {
	Entity   string
	Expected int64
	Actual   int64
}

func (e *ArithmeticInvariantError) Error() string {
	return fmt.Sprintf("%s: total %d does not reconcile with computed %d", e.Entity, e.Actual, e.Expected)
}

func (e *ArithmeticInvariantError) Unwrap() error { return ErrArithmeticInvariant }
