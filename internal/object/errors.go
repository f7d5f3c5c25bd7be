package object

import (
	"errors"
	"fmt"
)

// Common object errors
var (
	// ErrObjectNotFound is returned when a stored object does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrValidationFailed is returned when creation parameters fail validation
	ErrValidationFailed = errors.New("validation failed")

	// ErrCascadeNotImplemented is returned by DeleteCascade, which is
	// registered but intentionally unimplemented until dependency tracking
	// lands.
	ErrCascadeNotImplemented = errors.New("cascade delete not implemented")

	// ErrUnknownProperty is returned when accessing a property the type
	// does not declare
	ErrUnknownProperty = errors.New("unknown property")

	// ErrUnknownCollection is returned when accessing a collection the type
	// does not declare
	ErrUnknownCollection = errors.New("unknown collection")

	// ErrReadOnlyProperty is returned when writing a read-only property
	ErrReadOnlyProperty = errors.New("property is read-only")
)

// ValidationError contains every parameter failure found during creation.
// All parameters are checked before any object state is touched, so a
// caller sees the full list in one round trip.
type ValidationError struct {
	Errors []FieldError
}

// Error implements the error interface
func (ve *ValidationError) Error() string {
	if len(ve.Errors) == 0 {
		return "validation failed"
	}
	if len(ve.Errors) == 1 {
		return fmt.Sprintf("validation failed: %s: %s", ve.Errors[0].Field, ve.Errors[0].Message)
	}
	return fmt.Sprintf("validation failed: %d errors", len(ve.Errors))
}

// Is lets errors.Is(err, ErrValidationFailed) match a ValidationError
func (ve *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// FieldError represents a validation error on a specific parameter
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// IsNotFound returns true if the error is ErrObjectNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsValidationFailed returns true if the error is a validation error
func IsValidationFailed(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
