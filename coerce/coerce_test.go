package coerce

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64(t *testing.T) {
	n := int64(7)
	for _, v := range []any{7, int32(7), uint8(7), 7.0, "7", " 7 ", "7.0", json.Number("7"), &n} {
		got, err := Int64(v)
		require.NoError(t, err, "%#v", v)
		assert.Equal(t, int64(7), got)
	}
	for _, v := range []any{7.5, "seven", nil, true, (*int64)(nil)} {
		_, err := Int64(v)
		assert.True(t, errors.Is(err, ErrConvert), "%#v", v)
	}

	t.Run("out of range", func(t *testing.T) {
		for _, v := range []any{1e19, -1e19, "1e19", float64(math.MaxInt64), math.Inf(1), math.NaN(), float32(math.Inf(-1))} {
			_, err := Int64(v)
			assert.True(t, errors.Is(err, ErrConvert), "%#v", v)
		}
		got, err := Int64(float64(math.MinInt64))
		require.NoError(t, err)
		assert.Equal(t, int64(math.MinInt64), got)
	})
}

func TestFloat64(t *testing.T) {
	for _, v := range []any{2.5, float32(2.5), "2.5", json.Number("2.5")} {
		got, err := Float64(v)
		require.NoError(t, err)
		assert.Equal(t, 2.5, got)
	}
	got, err := Float64(3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)

	for _, v := range []any{"NaN", "+Inf", math.NaN(), math.Inf(1), math.Inf(-1), float32(math.NaN())} {
		_, err = Float64(v)
		assert.True(t, errors.Is(err, ErrConvert), "%#v", v)
	}
	_, err = Float64(true)
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	got, err := String(12)
	require.NoError(t, err)
	assert.Equal(t, "12", got)

	got, err = String(0.25)
	require.NoError(t, err)
	assert.Equal(t, "0.25", got)

	_, err = String(map[string]int{})
	assert.Error(t, err)
}

func TestBool(t *testing.T) {
	for v, want := range map[any]bool{true: true, "true": true, "no": false, 1: true, 0: false, "Y": true} {
		got, err := Bool(v)
		require.NoError(t, err, "%#v", v)
		assert.Equal(t, want, got)
	}
	_, err := Bool(2)
	assert.Error(t, err)
}

func TestTime(t *testing.T) {
	want := time.Date(2025, 11, 5, 0, 11, 46, 0, time.UTC)
	for _, v := range []any{want, "2025-11-05T00:11:46Z", "2025-11-05 00:11:46", want.Unix()} {
		got, err := Time(v)
		require.NoError(t, err, "%#v", v)
		assert.True(t, want.Equal(got), "%#v", v)
	}
	_, err := Time("yesterday")
	assert.Error(t, err)
}

func TestPtrAndValue(t *testing.T) {
	p, err := Ptr(nil, Int64)
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = Ptr("42", Int64)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(42), *p)
	assert.Equal(t, int64(42), Value(p))

	_, err = Ptr("x", Int64)
	assert.Error(t, err)

	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "2025-01-02T03:04:05Z", Value(&ts))
	assert.Nil(t, Value[string](nil))
}
