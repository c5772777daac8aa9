package gen

import (
	"errors"
	"fmt"

	"github.com/syssam/metricgen/schema"
)

// GoKind identifies the Go type a storage kind maps to.
type GoKind uint8

// Go type kinds.
const (
	GoInt64 GoKind = iota + 1
	GoFloat64
	GoString
	GoBool
	GoTime
)

var goKindNames = map[GoKind]string{
	GoInt64:   "int64",
	GoFloat64: "float64",
	GoString:  "string",
	GoBool:    "bool",
	GoTime:    "time.Time",
}

// String returns the Go type name.
func (k GoKind) String() string { return goKindNames[k] }

var coerceFuncs = map[GoKind]string{
	GoInt64:   "Int64",
	GoFloat64: "Float64",
	GoString:  "String",
	GoBool:    "Bool",
	GoTime:    "Time",
}

// CoerceFunc returns the name of the coerce package function converting
// an arbitrary value to k.
func (k GoKind) CoerceFunc() string { return coerceFuncs[k] }

// GoType is the mapping of a field to a Go type.
type GoType struct {
	Kind GoKind
	// Optional fields are rendered as pointers.
	Optional bool
}

// String returns the type as written in Go source, e.g. "*string".
func (t GoType) String() string {
	if t.Optional {
		return "*" + t.Kind.String()
	}
	return t.Kind.String()
}

var (
	sqlTypes = map[schema.Kind]func(schema.StorageType) string{
		schema.KindSerial:    func(schema.StorageType) string { return "SERIAL" },
		schema.KindInteger:   func(schema.StorageType) string { return "INTEGER" },
		schema.KindVarchar:   func(t schema.StorageType) string { return fmt.Sprintf("VARCHAR(%d)", t.Size) },
		schema.KindDecimal:   func(t schema.StorageType) string { return fmt.Sprintf("DECIMAL(%d,%d)", t.Precision, t.Scale) },
		schema.KindTimestamp: func(schema.StorageType) string { return "TIMESTAMP" },
		schema.KindText:      func(schema.StorageType) string { return "TEXT" },
		schema.KindBoolean:   func(schema.StorageType) string { return "BOOLEAN" },
	}
	goTypes = map[schema.Kind]GoKind{
		schema.KindSerial:    GoInt64,
		schema.KindInteger:   GoInt64,
		schema.KindVarchar:   GoString,
		schema.KindText:      GoString,
		schema.KindDecimal:   GoFloat64,
		schema.KindTimestamp: GoTime,
		schema.KindBoolean:   GoBool,
	}
	clientTypes = map[schema.Kind]string{
		schema.KindSerial:    "number",
		schema.KindInteger:   "number",
		schema.KindDecimal:   "number",
		schema.KindVarchar:   "string",
		schema.KindText:      "string",
		schema.KindTimestamp: "string", // ISO-8601
		schema.KindBoolean:   "boolean",
	}
)

// SQLType maps a field to its SQL column type.
func SQLType(e *schema.Entity, f *schema.Field) (string, error) {
	fn, ok := sqlTypes[f.Type.Kind]
	if !ok {
		return "", NewUnsupportedTypeError(TargetSQL, e.Key, f.Name, f.Type.String())
	}
	return fn(f.Type), nil
}

// GoTypeOf maps a field to its Go member type. target names the calling
// target in errors.
func GoTypeOf(target string, e *schema.Entity, f *schema.Field) (GoType, error) {
	k, ok := goTypes[f.Type.Kind]
	if !ok {
		return GoType{}, NewUnsupportedTypeError(target, e.Key, f.Name, f.Type.String())
	}
	return GoType{Kind: k, Optional: f.Optional()}, nil
}

// ClientType maps a field to its TypeScript type. The bool result reports
// whether the member is optional.
func ClientType(e *schema.Entity, f *schema.Field) (string, bool, error) {
	t, ok := clientTypes[f.Type.Kind]
	if !ok {
		return "", false, NewUnsupportedTypeError(TargetClientType, e.Key, f.Name, f.Type.String())
	}
	return t, f.Optional(), nil
}

// CheckEntity maps every field of e through lookup and joins the failures.
// Targets use it to skip entities they cannot render.
func CheckEntity(e *schema.Entity, lookup func(*schema.Field) error) error {
	var errs []error
	for _, f := range e.Fields {
		if err := lookup(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
