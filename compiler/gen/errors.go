package gen

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure cases.
var (
	// ErrUnsupportedType indicates a storage type missing from a mapping table.
	ErrUnsupportedType = errors.New("metricgen: unsupported storage type")
	// ErrGenerationFailed indicates a target failed to produce its artifacts.
	ErrGenerationFailed = errors.New("metricgen: code generation failed")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("metricgen: missing configuration")
)

// UnsupportedTypeError is returned when a target has no mapping for the
// storage type of a field.
type UnsupportedTypeError struct {
	Target string // sql, model, clienttype...
	Entity string
	Field  string
	Type   string
}

// Error implements the error interface.
func (e *UnsupportedTypeError) Error() string {
	var b strings.Builder
	b.WriteString("metricgen: unsupported type")
	if e.Type != "" {
		fmt.Fprintf(&b, " %q", e.Type)
	}
	if e.Entity != "" {
		b.WriteString(" on ")
		b.WriteString(e.Entity)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
	}
	if e.Target != "" {
		b.WriteString(" for target ")
		b.WriteString(e.Target)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for UnsupportedTypeError.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// NewUnsupportedTypeError creates a new UnsupportedTypeError.
func NewUnsupportedTypeError(target, entity, field, typ string) *UnsupportedTypeError {
	return &UnsupportedTypeError{
		Target: target,
		Entity: entity,
		Field:  field,
		Type:   typ,
	}
}

// GenerationError represents a target-specific failure.
type GenerationError struct {
	Target  string
	Entity  string // empty for document-level artifacts
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("metricgen: generation error")
	if e.Target != "" {
		b.WriteString(" in target ")
		b.WriteString(e.Target)
	}
	if e.Entity != "" {
		b.WriteString(" for entity ")
		b.WriteString(e.Entity)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(target, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Target:  target,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("metricgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("metricgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// IsUnsupportedTypeError reports whether the error is an UnsupportedTypeError.
func IsUnsupportedTypeError(err error) bool {
	var typeErr *UnsupportedTypeError
	return errors.As(err, &typeErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
