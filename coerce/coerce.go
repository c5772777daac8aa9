// Package coerce converts loosely typed values, as produced by the generated
// parsers or decoded from JSON, into the Go types used by generated models.
package coerce

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// ErrConvert is matched by every conversion failure.
var ErrConvert = errors.New("coerce: cannot convert value")

// TimeLayouts are tried in order when parsing a string as a time.
var TimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"Mon Jan _2 15:04:05 2006",
	"Jan _2 15:04",
}

func convertError(v any, to string) error {
	return fmt.Errorf("%w %v (%T) to %s", ErrConvert, v, v, to)
}

// indirect dereferences non-nil pointers.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}

// Int64 converts integers, integral floats and numeric strings.
func Int64(v any) (int64, error) {
	switch x := indirect(v).(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, convertError(v, "int64")
		}
		return int64(x), nil
	case float32:
		return integral(float64(x), v)
	case float64:
		return integral(x, v)
	case json.Number:
		return parseInt(string(x), v)
	case string:
		return parseInt(x, v)
	default:
		return 0, convertError(v, "int64")
	}
}

// integral converts whole floats inside the int64 range. float64(MaxInt64)
// rounds up to 2^63, hence the >= on the upper bound.
func integral(f float64, v any) (int64, error) {
	if !finite(f) || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, convertError(v, "int64")
	}
	return int64(f), nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseInt(s string, v any) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, convertError(v, "int64")
	}
	return integral(f, v)
}

// Float64 converts numbers and numeric strings. NaN and infinities are
// rejected whatever the input type.
func Float64(v any) (float64, error) {
	switch x := indirect(v).(type) {
	case float64:
		if !finite(x) {
			return 0, convertError(v, "float64")
		}
		return x, nil
	case float32:
		if !finite(float64(x)) {
			return 0, convertError(v, "float64")
		}
		return float64(x), nil
	case json.Number:
		return parseFloat(string(x), v)
	case string:
		return parseFloat(x, v)
	case bool, nil:
		return 0, convertError(v, "float64")
	default:
		n, err := Int64(x)
		if err != nil {
			return 0, convertError(v, "float64")
		}
		return float64(n), nil
	}
}

func parseFloat(s string, v any) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(f) {
		return 0, convertError(v, "float64")
	}
	return f, nil
}

// String converts strings, byte slices, Stringers and numbers.
func String(v any) (string, error) {
	switch x := indirect(v).(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case fmt.Stringer:
		return x.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	default:
		return "", convertError(v, "string")
	}
}

// Bool converts booleans, 0/1 and the strings accepted by strconv.ParseBool
// plus "yes"/"no".
func Bool(v any) (bool, error) {
	switch x := indirect(v).(type) {
	case bool:
		return x, nil
	case string:
		switch s := strings.ToLower(strings.TrimSpace(x)); s {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		default:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return false, convertError(v, "bool")
			}
			return b, nil
		}
	default:
		n, err := Int64(x)
		if err != nil || (n != 0 && n != 1) {
			return false, convertError(v, "bool")
		}
		return n == 1, nil
	}
}

// Time converts time values, strings in one of TimeLayouts and unix seconds.
func Time(v any) (time.Time, error) {
	switch x := indirect(v).(type) {
	case time.Time:
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range TimeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, convertError(v, "time.Time")
	case nil, bool:
		return time.Time{}, convertError(v, "time.Time")
	default:
		n, err := Int64(x)
		if err != nil {
			return time.Time{}, convertError(v, "time.Time")
		}
		return time.Unix(n, 0).UTC(), nil
	}
}

// Ptr converts v with fn and returns a pointer to the result. A nil v
// yields a nil pointer.
func Ptr[T any](v any, fn func(any) (T, error)) (*T, error) {
	if indirect(v) == nil {
		return nil, nil
	}
	x, err := fn(v)
	if err != nil {
		return nil, err
	}
	return &x, nil
}

// Value returns the dereferenced value of p, or nil. Times are formatted as
// RFC 3339.
func Value[T any](p *T) any {
	if p == nil {
		return nil
	}
	return Plain(*p)
}

// Plain returns v with times formatted as RFC 3339 strings.
func Plain(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.RFC3339Nano)
	}
	return v
}
