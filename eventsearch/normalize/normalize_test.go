package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/eventsearch/eventsearch/catalog"
	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

var now = time.Date(2022, 10, 31, 0, 0, 0, 0, time.UTC)

func resolve(t *testing.T, name string) catalog.ResolvedField {
	t.Helper()
	return catalog.NewResolver(catalog.Spans()).Resolve(name)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"1s", 1000},
		{"1000ms", 1000},
		{"1000", 1000},
		{"1.5s", 1500},
		{"2m", 120000},
		{"2min", 120000},
		{"1h", 3600000},
		{"1hr", 3600000},
		{"1d", 86400000},
		{"1w", 604800000},
		{"1wk", 604800000},
		{"0.4ms", 0},
		{"0.6ms", 1},
		{"1S", 1000},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Duration("span.duration", tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDurationUnitsAreConsistent(t *testing.T) {
	pairs := [][2]string{{"1s", "1000ms"}, {"1m", "60s"}, {"1h", "60m"}, {"1d", "24h"}, {"1w", "7d"}}
	for _, p := range pairs {
		a, err := Duration("d", p[0])
		require.NoError(t, err)
		b, err := Duration("d", p[1])
		require.NoError(t, err)
		assert.Equal(t, a, b, "%s vs %s", p[0], p[1])
	}
}

func TestDurationInvalid(t *testing.T) {
	for _, raw := range []string{"abc", "s1", "", "1parsec", "."} {
		_, err := Duration("span.duration", raw)
		require.Error(t, err, raw)

		var iv *errors.InvalidValueError
		require.ErrorAs(t, err, &iv)
		assert.Equal(t, "span.duration", iv.Field)
		assert.Equal(t, raw, iv.RawValue)
	}
}

func TestDurationOutOfRange(t *testing.T) {
	for _, raw := range []string{"9223372036854775807", "9223372036854775808", "-10000000000000000000", "10000000000000000w"} {
		got, err := Duration("span.duration", raw)
		require.Error(t, err, raw)
		assert.Zero(t, got, raw)
		assert.Equal(t, errors.ErrInvalidValue, errors.Code(err), raw)
	}

	got, err := Duration("span.duration", "9223372036854774784")
	require.NoError(t, err)
	assert.Positive(t, got)
}

func TestTimestampOffsetOutOfRange(t *testing.T) {
	for _, raw := range []string{"-9223372036854775w", "+20000000000000ms", "+1000000000d", "-1000000000d"} {
		_, err := Timestamp("timestamp", raw, now)
		require.Error(t, err, raw)
		assert.Equal(t, errors.ErrInvalidValue, errors.Code(err), raw)
	}

	got, err := Timestamp("timestamp", "+100000d", now)
	require.NoError(t, err)
	assert.True(t, got.After(now))
}

func TestEnumRoundTrip(t *testing.T) {
	field := resolve(t, "span.status")
	for label, code := range field.EnumMap {
		got, err := Enum(field, label)
		require.NoError(t, err)
		assert.Equal(t, code, got)
	}

	_, err := Enum(field, "bogus")
	require.Error(t, err)
	var iv *errors.InvalidValueError
	require.ErrorAs(t, err, &iv)
	assert.Equal(t, "bogus", iv.RawValue)
	assert.Contains(t, iv.Reason, `"bogus" is not a valid label`)
	assert.Contains(t, iv.Reason, "invalid_argument")
}

func TestValueByType(t *testing.T) {
	tests := []struct {
		field string
		raw   string
		op    expr.Op
		want  any
	}{
		{"span.duration", "1s", expr.OpEq, int64(1000)},
		{"span.self_time", "250", expr.OpGt, int64(250)},
		{"span.status", "not_found", expr.OpEq, int64(5)},
		{"project.id", "42", expr.OpEq, int64(42)},
		{"is_transaction", "true", expr.OpEq, true},
		{"is_transaction", "0", expr.OpEq, false},
		{"timestamp", "2022-10-30", expr.OpGte, time.Date(2022, 10, 30, 0, 0, 0, 0, time.UTC)},
		{"timestamp", "2022-10-30T12:00:00+02:00", expr.OpLt, time.Date(2022, 10, 30, 10, 0, 0, 0, time.UTC)},
		{"timestamp", "-24h", expr.OpGt, time.Date(2022, 10, 30, 0, 0, 0, 0, time.UTC)},
		{"timestamp", "+1d", expr.OpLt, time.Date(2022, 11, 1, 0, 0, 0, 0, time.UTC)},
		{"span.op", `a\*b`, expr.OpEq, "a*b"},
	}

	for _, tt := range tests {
		t.Run(tt.field+":"+tt.raw, func(t *testing.T) {
			got, err := Value(resolve(t, tt.field), tt.raw, tt.op, Options{Now: now})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNumeric(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1.5", 1.5},
		{"2k", 2000},
		{"3M", 3e6},
		{"1b", 1e9},
		{"-4", -4},
	}
	for _, tt := range tests {
		got, err := Numeric("x", tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	_, err := Numeric("x", "2q")
	assert.Error(t, err)
}

func TestValueRejectsRelationalOnUnorderedTypes(t *testing.T) {
	for _, name := range []string{"span.op", "span.status", "is_transaction", "foo"} {
		_, err := Value(resolve(t, name), "x", expr.OpGt, Options{Now: now})
		require.Error(t, err, name)

		var uo *errors.UnknownOperatorError
		require.ErrorAs(t, err, &uo)
		assert.Equal(t, name, uo.Field)
		assert.Equal(t, ">", uo.Operator)
	}
}

func TestValueRejectsWildcardString(t *testing.T) {
	_, err := Value(resolve(t, "span.op"), "db*", expr.OpIn, Options{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrInvalidValue, errors.Code(err))
}

func TestList(t *testing.T) {
	ops, err := List(resolve(t, "span.op"), []string{"db", "http.client", "db"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"db", "http.client", "db"}, ops)

	codes, err := List(resolve(t, "span.status"), []string{"invalid_argument", "not_found"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 5}, codes)

	durations, err := List(resolve(t, "span.duration"), []string{"1s", "5ms"}, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1000, 5}, durations)

	_, err = List(resolve(t, "span.status"), []string{"ok", "nope"}, Options{})
	require.Error(t, err)

	_, err = List(resolve(t, "span.op"), []string{"db", "http*"}, Options{})
	require.Error(t, err)
}

func TestPatternShapes(t *testing.T) {
	tests := []struct {
		raw      string
		shape    Shape
		segments []string
	}{
		{"bar", ShapeExact, []string{"bar"}},
		{"*bar*", ShapeContains, []string{"", "bar", ""}},
		{"Bar*", ShapePrefix, []string{"Bar", ""}},
		{"*Bar", ShapeSuffix, []string{"", "Bar"}},
		{`*Bar\*`, ShapeSuffix, []string{"", "Bar*"}},
		{`Bar\*`, ShapeExact, []string{"Bar*"}},
		{"*b*a*r*", ShapeRegex, []string{"", "b", "a", "r", ""}},
		{"a**b", ShapeRegex, []string{"a", "b"}},
		{"*", ShapeAny, []string{"", ""}},
		{"**", ShapeAny, []string{"", ""}},
		{`a\\b`, ShapeExact, []string{`a\b`}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p := ParsePattern(tt.raw)
			assert.Equal(t, tt.shape, p.Shape())
			assert.Equal(t, tt.segments, p.Segments)
			// classification depends only on the pattern
			assert.Equal(t, tt.shape, ParsePattern(tt.raw).Shape())
		})
	}
}

func TestPatternWildcardPositions(t *testing.T) {
	p := ParsePattern(`*a\*b*`)
	assert.Equal(t, []int{0, 5}, p.Wildcards)
	assert.Equal(t, "a*b", p.Literal())
}

func TestPatternRegex(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"*b*a*r*", "(?i)^.*b.*a.*r.*$"},
		{"a*b", "(?i)^a.*b$"},
		{`*a.b*c\*`, `(?i)^.*a\.b.*c\*$`},
		{"x(y)*z", `(?i)^x\(y\).*z$`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParsePattern(tt.raw).Regex(), tt.raw)
	}
}

func TestPatternUnanchored(t *testing.T) {
	assert.Equal(t, ShapeContains, ParsePattern("testing").Unanchored().Shape())
	assert.Equal(t, ShapeContains, ParsePattern("*testing*").Unanchored().Shape())
	assert.Equal(t, ShapeContains, ParsePattern("test*").Unanchored().Shape())

	p := ParsePattern("*test*ing*").Unanchored()
	assert.Equal(t, ShapeRegex, p.Shape())
	assert.Equal(t, "(?i)^.*test.*ing.*$", p.Regex())

	assert.Equal(t, "(?i)^.*a.*b.*$", ParsePattern("a*b").Unanchored().Regex())
}
