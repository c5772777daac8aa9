package validate

import (
	"errors"
	"fmt"
)

// ErrValidationFailed is matched by every FieldValidationError.
var ErrValidationFailed = errors.New("validation failed")

// Bounds reported by FieldValidationError.
const (
	BoundType      = "type"
	BoundMin       = "min"
	BoundMax       = "max"
	BoundMaxLength = "max_length"
)

// FieldValidationError is returned when a value violates a field rule.
type FieldValidationError struct {
	Field string // field name
	Value any    // offending value as received
	Bound string // violated bound, one of the Bound constants
	Limit any    // bound value, or the expected type name for BoundType
	Err   error  // underlying conversion error, if any
}

// Error implements the error interface.
func (e *FieldValidationError) Error() string {
	field := e.Field
	if field == "" {
		field = "value"
	}
	switch e.Bound {
	case BoundType:
		return fmt.Sprintf("%s must be %v, got %T(%v)", field, e.Limit, e.Value, e.Value)
	case BoundMin:
		return fmt.Sprintf("%s must be >= %v, got %v", field, e.Limit, e.Value)
	case BoundMax:
		return fmt.Sprintf("%s must be <= %v, got %v", field, e.Limit, e.Value)
	case BoundMaxLength:
		return fmt.Sprintf("%s exceeds max length %v", field, e.Limit)
	default:
		return fmt.Sprintf("%s is invalid: %v", field, e.Value)
	}
}

// Unwrap returns the underlying error.
func (e *FieldValidationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrValidationFailed.
func (e *FieldValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// IsFieldValidationError reports whether err is or wraps a FieldValidationError.
func IsFieldValidationError(err error) bool {
	var e *FieldValidationError
	return errors.As(err, &e)
}
