// Package validate holds the field validators called by generated
// validator code.
//
// Every validator converts the value to its kind, checks the configured
// bounds and returns a *FieldValidationError on violation. Values are never
// adjusted unless the caller passes Clamp:
//
//	v, err := validate.Integer("300", validate.Field("cpus"), validate.Max(256))
//	// err: cpus must be <= 256, got 300
//	v, _ = validate.Integer("300", validate.Max(256), validate.Clamp())
//	// v == 256
package validate

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"

	"github.com/syssam/metricgen/coerce"
)

// Option configures a single validation call.
type Option func(*options)

type options struct {
	field     string
	min, max  *float64
	maxLength *int
	clamp     bool
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Field sets the field name reported in errors.
func Field(name string) Option {
	return func(o *options) { o.field = name }
}

// Min sets the inclusive lower bound.
func Min(v float64) Option {
	return func(o *options) { o.min = &v }
}

// Max sets the inclusive upper bound.
func Max(v float64) Option {
	return func(o *options) { o.max = &v }
}

// MaxLength sets the maximum string length in runes.
func MaxLength(n int) Option {
	return func(o *options) { o.maxLength = &n }
}

// Clamp makes out-of-bound values snap to the violated bound (or truncate,
// for strings) instead of failing. Type errors still fail.
func Clamp() Option {
	return func(o *options) { o.clamp = true }
}

func (o *options) typeError(v any, want string, err error) error {
	return &FieldValidationError{Field: o.field, Value: v, Bound: BoundType, Limit: want, Err: err}
}

// bound checks f against min and max. It returns the possibly clamped value.
func (o *options) bound(f float64, orig any) (float64, error) {
	if o.min != nil && f < *o.min {
		if !o.clamp {
			return f, &FieldValidationError{Field: o.field, Value: orig, Bound: BoundMin, Limit: *o.min}
		}
		f = *o.min
	}
	if o.max != nil && f > *o.max {
		if !o.clamp {
			return f, &FieldValidationError{Field: o.field, Value: orig, Bound: BoundMax, Limit: *o.max}
		}
		f = *o.max
	}
	return f, nil
}

// Percentage validates a number in [0, 100]. Min and Max narrow the range.
func Percentage(value any, opts ...Option) (float64, error) {
	o := newOptions(append([]Option{Min(0), Max(100)}, opts...))
	f, err := coerce.Float64(value)
	if err != nil {
		return 0, o.typeError(value, "a number", err)
	}
	return o.bound(f, value)
}

// Float validates a number.
func Float(value any, opts ...Option) (float64, error) {
	o := newOptions(opts)
	f, err := coerce.Float64(value)
	if err != nil {
		return 0, o.typeError(value, "a number", err)
	}
	return o.bound(f, value)
}

// Integer validates a whole number.
func Integer(value any, opts ...Option) (int64, error) {
	o := newOptions(opts)
	n, err := coerce.Int64(value)
	if err != nil {
		return 0, o.typeError(value, "an integer", err)
	}
	f, err := o.bound(float64(n), value)
	if err != nil {
		return n, err
	}
	if o.clamp && f != float64(n) {
		// Snap into the integer range covered by fractional bounds.
		if f < float64(n) {
			return int64(math.Floor(f)), nil
		}
		return int64(math.Ceil(f)), nil
	}
	return n, nil
}

// String validates a string value. Only strings and byte slices are
// accepted; other types are reported as type errors.
func String(value any, opts ...Option) (string, error) {
	o := newOptions(opts)
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return "", o.typeError(value, "a string", nil)
		}
		s = *v
	case []byte:
		s = string(v)
	default:
		return "", o.typeError(value, "a string", nil)
	}
	if o.maxLength != nil && utf8.RuneCountInString(s) > *o.maxLength {
		if !o.clamp {
			return s, &FieldValidationError{Field: o.field, Value: value, Bound: BoundMaxLength, Limit: *o.maxLength}
		}
		s = string([]rune(s)[:*o.maxLength])
	}
	return s, nil
}

// Datetime validates a time value, a string in one of coerce.TimeLayouts,
// or unix seconds.
func Datetime(value any, opts ...Option) (time.Time, error) {
	o := newOptions(opts)
	t, err := coerce.Time(value)
	if err != nil {
		return time.Time{}, o.typeError(value, "a datetime", err)
	}
	return t, nil
}

// MemorySize validates a memory size such as "2.5G", "512Mi" or a plain
// number of bytes, and returns the size in bytes. Min and Max are in bytes.
func MemorySize(value any, opts ...Option) (int64, error) {
	o := newOptions(opts)
	var n int64
	switch v := value.(type) {
	case string:
		b, err := humanize.ParseBytes(v)
		if err != nil || b > math.MaxInt64 {
			return 0, o.typeError(value, "a memory size", err)
		}
		n = int64(b)
	default:
		i, err := coerce.Int64(v)
		if err != nil || i < 0 {
			return 0, o.typeError(value, "a memory size", err)
		}
		n = i
	}
	f, err := o.bound(float64(n), value)
	if err != nil {
		return n, err
	}
	return int64(f), nil
}
