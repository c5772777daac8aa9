package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Kind is a storage type kind.
type Kind uint8

// Storage type kinds.
const (
	KindOther Kind = iota
	KindSerial
	KindInteger
	KindVarchar
	KindDecimal
	KindTimestamp
	KindText
	KindBoolean
)

var kindNames = [...]string{
	KindOther:     "other",
	KindSerial:    "serial",
	KindInteger:   "integer",
	KindVarchar:   "varchar",
	KindDecimal:   "decimal",
	KindTimestamp: "timestamp",
	KindText:      "text",
	KindBoolean:   "boolean",
}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Numeric reports whether values of the kind are numbers.
func (k Kind) Numeric() bool {
	return k == KindSerial || k == KindInteger || k == KindDecimal
}

// StorageType is a parsed field type such as VARCHAR(255) or DECIMAL(5,2).
type StorageType struct {
	Kind      Kind
	Size      int // varchar length
	Precision int // decimal precision
	Scale     int // decimal scale
	Raw       string
}

// String returns the type in lower-case schema notation.
func (t StorageType) String() string {
	switch t.Kind {
	case KindVarchar:
		return fmt.Sprintf("varchar(%d)", t.Size)
	case KindDecimal:
		return fmt.Sprintf("decimal(%d,%d)", t.Precision, t.Scale)
	case KindOther:
		return t.Raw
	default:
		return t.Kind.String()
	}
}

var typeRE = regexp.MustCompile(`^([a-z][a-z0-9_ ]*?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?$`)

// ParseStorageType parses a schema type. Names are case-insensitive.
// Unknown but well-formed names parse as KindOther.
func ParseStorageType(s string) (StorageType, error) {
	raw := strings.TrimSpace(s)
	m := typeRE.FindStringSubmatch(strings.ToLower(raw))
	if m == nil {
		return StorageType{}, fmt.Errorf("malformed type %q", s)
	}
	t := StorageType{Raw: raw}
	name, p1, p2 := m[1], m[2], m[3]
	params := 0
	if p1 != "" {
		params++
	}
	if p2 != "" {
		params++
	}
	n1, _ := strconv.Atoi(p1)
	n2, _ := strconv.Atoi(p2)
	switch name {
	case "serial", "integer", "timestamp", "text", "boolean":
		if params > 0 {
			return StorageType{}, fmt.Errorf("type %s takes no parameters", name)
		}
		t.Kind = map[string]Kind{
			"serial":    KindSerial,
			"integer":   KindInteger,
			"timestamp": KindTimestamp,
			"text":      KindText,
			"boolean":   KindBoolean,
		}[name]
	case "varchar":
		if params != 1 || n1 == 0 {
			return StorageType{}, errors.New("varchar requires a positive length, e.g. varchar(255)")
		}
		t.Kind, t.Size = KindVarchar, n1
	case "decimal":
		if params != 2 {
			return StorageType{}, errors.New("decimal requires precision and scale, e.g. decimal(5,2)")
		}
		if n1 == 0 || n2 > n1 {
			return StorageType{}, fmt.Errorf("decimal(%d,%d) needs 0 < precision and scale <= precision", n1, n2)
		}
		t.Kind, t.Precision, t.Scale = KindDecimal, n1, n2
	default:
		t.Kind = KindOther
	}
	return t, nil
}

// ValidationKind is the kind of runtime check applied to a field.
type ValidationKind uint8

// Validation kinds.
const (
	ValidatePercentage ValidationKind = iota + 1
	ValidateInteger
	ValidateFloat
	ValidateString
	ValidateDatetime
	ValidateMemorySize
)

var validationNames = map[ValidationKind]string{
	ValidatePercentage: "percentage",
	ValidateInteger:    "integer",
	ValidateFloat:      "float",
	ValidateString:     "string",
	ValidateDatetime:   "datetime",
	ValidateMemorySize: "memory_size",
}

// ValidationKinds lists every kind in declaration order.
var ValidationKinds = []ValidationKind{
	ValidatePercentage, ValidateInteger, ValidateFloat,
	ValidateString, ValidateDatetime, ValidateMemorySize,
}

// String returns the schema name of the kind.
func (k ValidationKind) String() string {
	if s, ok := validationNames[k]; ok {
		return s
	}
	return "ValidationKind(" + strconv.Itoa(int(k)) + ")"
}

// ParseValidationKind resolves a schema validation kind. The camel-case
// spelling memorySize is accepted.
func ParseValidationKind(s string) (ValidationKind, error) {
	if s == "memorySize" {
		return ValidateMemorySize, nil
	}
	for k, name := range validationNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown validation kind %q", s)
}

// Validation is the runtime check declared on a field.
type Validation struct {
	Kind      ValidationKind
	Min       *float64
	Max       *float64
	MaxLength *int
}

// VisualizationType is how a field is rendered on the dashboard.
type VisualizationType uint8

// Visualization types.
const (
	ProgressBar VisualizationType = iota + 1
	LineChart
	BarChart
	Badge
)

var visualizationNames = map[VisualizationType]string{
	ProgressBar: "progress_bar",
	LineChart:   "line_chart",
	BarChart:    "bar_chart",
	Badge:       "badge",
}

// String returns the schema name of the type.
func (v VisualizationType) String() string {
	if s, ok := visualizationNames[v]; ok {
		return s
	}
	return "VisualizationType(" + strconv.Itoa(int(v)) + ")"
}

// ParseVisualizationType resolves a schema visualization type.
func ParseVisualizationType(s string) (VisualizationType, error) {
	for v, name := range visualizationNames {
		if name == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown visualization type %q", s)
}

// Visualization is dashboard metadata for a field.
type Visualization struct {
	Type       VisualizationType
	Thresholds *Thresholds
}

// Thresholds are the warning and critical levels of a metric.
type Thresholds struct {
	Warning  float64
	Critical float64
}
