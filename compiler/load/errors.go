package load

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSchema is matched by LoadError and ValidationError.
var ErrInvalidSchema = errors.New("metricgen: invalid schema")

// Rules reported in Violation.Rule.
const (
	RuleRequiredName   = "required-name"
	RuleFieldName      = "field-name"
	RuleStorageType    = "storage-type"
	RulePrimaryKey     = "primary-key"
	RuleIndexCollision = "index-collision"
	RuleSource         = "source"
	RuleBounds         = "bounds"
	RuleValidation     = "validation"
	RuleGroupRef       = "group-ref"
	RuleUniqueName     = "unique-name"
	RuleUniqueTable    = "unique-table"
	RuleUniqueGroup    = "unique-group"
	RuleUnknownKey     = "unknown-key"
	RuleDuplicateKey   = "duplicate-key"
	RuleVersion        = "version"
	RuleEntity         = "entity"
	RuleVisualization  = "visualization"
	RuleEndpoint       = "endpoint"
	RuleFrontend       = "frontend"
	RuleIdentifier     = "identifier"
)

// LoadError is returned when the schema source cannot be read or parsed.
type LoadError struct {
	Path string // source file, empty for in-memory sources
	Line int    // 1-based line, 0 when unknown
	Err  error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("metricgen: load schema")
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches ErrInvalidSchema.
func (e *LoadError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Violation is a single broken schema invariant.
type Violation struct {
	Path    string // e.g. "server_metrics.ram_used.source"
	Rule    string // one of the Rule constants
	Message string
	Hint    string // how to fix it
}

// String formats the violation on one line.
func (v *Violation) String() string {
	s := fmt.Sprintf("%s: %s [%s]", v.Path, v.Message, v.Rule)
	if v.Hint != "" {
		s += " (hint: " + v.Hint + ")"
	}
	return s
}

// ValidationError carries every violation found in a schema.
type ValidationError struct {
	Path       string
	Violations []*Violation
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("metricgen: schema validation failed")
	if e.Path != "" {
		b.WriteString(" for ")
		b.WriteString(e.Path)
	}
	fmt.Fprintf(&b, " with %d violation(s)", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  - ")
		b.WriteString(v.String())
	}
	return b.String()
}

// Is reports whether the target matches ErrInvalidSchema.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidSchema
}

// Rules returns the distinct violated rules in first-seen order.
func (e *ValidationError) Rules() []string {
	var rules []string
	seen := make(map[string]bool)
	for _, v := range e.Violations {
		if !seen[v.Rule] {
			seen[v.Rule] = true
			rules = append(rules, v.Rule)
		}
	}
	return rules
}

// IsLoadError reports whether the error is a LoadError.
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}

// IsValidationError reports whether the error is a ValidationError.
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// Violations returns the violations carried by err, if any.
func Violations(err error) []*Violation {
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Violations
	}
	return nil
}
