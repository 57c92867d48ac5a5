package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nonibytes/eventsearch/eventsearch/catalog"
	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

// Options carries the per-pass context value parsing depends on
type Options struct {
	// Now anchors relative timestamps such as -24h.
	Now time.Time
}

var durationUnits = map[string]float64{
	"":        1,
	"ms":      1,
	"s":       1000,
	"sec":     1000,
	"secs":    1000,
	"second":  1000,
	"seconds": 1000,
	"m":       60 * 1000,
	"min":     60 * 1000,
	"mins":    60 * 1000,
	"minute":  60 * 1000,
	"minutes": 60 * 1000,
	"h":       3600 * 1000,
	"hr":      3600 * 1000,
	"hrs":     3600 * 1000,
	"hour":    3600 * 1000,
	"hours":   3600 * 1000,
	"d":       24 * 3600 * 1000,
	"day":     24 * 3600 * 1000,
	"days":    24 * 3600 * 1000,
	"w":       7 * 24 * 3600 * 1000,
	"wk":      7 * 24 * 3600 * 1000,
	"wks":     7 * 24 * 3600 * 1000,
	"week":    7 * 24 * 3600 * 1000,
	"weeks":   7 * 24 * 3600 * 1000,
}

var numericSuffixes = map[string]float64{
	"k": 1e3,
	"m": 1e6,
	"b": 1e9,
}

// Value converts a single raw literal into the backend-native value of
// field's type. Relational operators are accepted only by ordered types.
// String fields are returned unescaped and must not carry wildcards.
func Value(field catalog.ResolvedField, raw string, op expr.Op, opts Options) (any, error) {
	if op.IsRelational() && !Ordered(field.ValueType) {
		return nil, errors.UnknownOperator(field.Name, string(op))
	}

	switch field.ValueType {
	case catalog.TypeDuration:
		return Duration(field.Name, raw)
	case catalog.TypeEnum:
		return Enum(field, raw)
	case catalog.TypeNumeric:
		return Numeric(field.Name, raw)
	case catalog.TypeInteger:
		return Integer(field.Name, raw)
	case catalog.TypeBoolean:
		return Boolean(field.Name, raw)
	case catalog.TypeTimestamp:
		return Timestamp(field.Name, raw, opts.Now)
	case catalog.TypeString:
		p := ParsePattern(raw)
		if p.HasWildcard() {
			return nil, errors.InvalidValue(field.Name, raw, "wildcards are not allowed here")
		}
		return p.Literal(), nil
	}
	return nil, errors.Catalog("", field.Name, fmt.Sprintf("unknown value type %q", field.ValueType))
}

// List normalizes every element of an IN list, preserving order and
// duplicates. The result is a typed slice matching the field's type.
func List(field catalog.ResolvedField, raws []string, opts Options) (any, error) {
	values := make([]any, len(raws))
	for i, raw := range raws {
		v, err := Value(field, raw, expr.OpIn, opts)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	switch field.ValueType {
	case catalog.TypeDuration, catalog.TypeEnum, catalog.TypeInteger:
		return typed[int64](values), nil
	case catalog.TypeNumeric:
		return typed[float64](values), nil
	case catalog.TypeBoolean:
		return typed[bool](values), nil
	case catalog.TypeTimestamp:
		return typed[time.Time](values), nil
	default:
		return typed[string](values), nil
	}
}

func typed[T any](values []any) []T {
	out := make([]T, len(values))
	for i, v := range values {
		out[i] = v.(T)
	}
	return out
}

// Ordered reports whether values of t can be compared with >, >=, < and <=
func Ordered(t catalog.ValueType) bool {
	switch t {
	case catalog.TypeDuration, catalog.TypeNumeric, catalog.TypeInteger, catalog.TypeTimestamp:
		return true
	}
	return false
}

// Duration parses a number with an optional unit suffix into whole
// milliseconds. A bare number is taken as milliseconds; fractions are
// rounded to the nearest millisecond.
func Duration(field, raw string) (int64, error) {
	num, unit := splitNumber(raw)
	if num == "" {
		return 0, errors.InvalidValue(field, raw, "duration must start with a number")
	}
	mult, ok := durationUnits[strings.ToLower(unit)]
	if !ok {
		return 0, errors.InvalidValue(field, raw, fmt.Sprintf("unknown duration unit %q", unit))
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, errors.InvalidValue(field, raw, "duration must start with a number")
	}
	ms := math.Round(f * mult)
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if ms >= math.MaxInt64 || ms < math.MinInt64 {
		return 0, errors.InvalidValue(field, raw, "duration out of range")
	}
	return int64(ms), nil
}

// Enum maps a label to its numeric code
func Enum(field catalog.ResolvedField, label string) (int64, error) {
	if code, ok := field.EnumMap[label]; ok {
		return code, nil
	}
	return 0, errors.InvalidEnumLabel(field.Name, label, field.EnumLabels())
}

// Numeric parses a float with an optional k, m or b multiplier
func Numeric(field, raw string) (float64, error) {
	num, suffix := splitNumber(raw)
	if num == "" {
		return 0, errors.InvalidValue(field, raw, "not a number")
	}
	mult := 1.0
	if suffix != "" {
		m, ok := numericSuffixes[strings.ToLower(suffix)]
		if !ok {
			return 0, errors.InvalidValue(field, raw, fmt.Sprintf("unknown numeric suffix %q", suffix))
		}
		mult = m
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, errors.InvalidValue(field, raw, "not a number")
	}
	v := f * mult
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.InvalidValue(field, raw, "number out of range")
	}
	return v, nil
}

func Integer(field, raw string) (int64, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.InvalidValue(field, raw, "not an integer")
	}
	return n, nil
}

func Boolean(field, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, errors.InvalidValue(field, raw, "expected true or false")
}

// maxOffsetMillis is the largest offset a time.Duration can carry.
const maxOffsetMillis = int64(math.MaxInt64 / time.Millisecond)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp parses an absolute time or a signed offset from now such as
// -24h or +7d. Results are in UTC.
func Timestamp(field, raw string, now time.Time) (time.Time, error) {
	if len(raw) > 1 && (raw[0] == '-' || raw[0] == '+') {
		num, unit := splitNumber(raw[1:])
		if num != "" && unit != "" {
			ms, err := Duration(field, raw[1:])
			if err != nil {
				return time.Time{}, err
			}
			if ms > maxOffsetMillis || ms < -maxOffsetMillis {
				return time.Time{}, errors.InvalidValue(field, raw, "relative offset out of range")
			}
			offset := time.Duration(ms) * time.Millisecond
			if raw[0] == '-' {
				offset = -offset
			}
			return now.Add(offset).UTC(), nil
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.InvalidValue(field, raw, "expected an RFC3339 time, a date or a relative offset like -24h")
}

// splitNumber splits raw into its leading decimal number and the rest.
func splitNumber(raw string) (string, string) {
	i := 0
	if i < len(raw) && raw[i] == '-' {
		i++
	}
	digits := 0
	for i < len(raw) && (raw[i] >= '0' && raw[i] <= '9' || raw[i] == '.') {
		if raw[i] != '.' {
			digits++
		}
		i++
	}
	if digits == 0 {
		return "", raw
	}
	return raw[:i], raw[i:]
}
