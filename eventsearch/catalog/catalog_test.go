package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

func TestSpansFieldAliases(t *testing.T) {
	r := NewResolver(Spans())

	tests := []struct {
		field string
		want  expr.Selected
	}{
		{
			field: "span.duration",
			want: expr.Selected{
				Alias: "span.duration",
				Expr: expr.Fn("if",
					expr.Fn("greater", expr.Col("exclusive_time"), expr.Col("duration")),
					expr.Col("exclusive_time"),
					expr.Col("duration"),
				),
			},
		},
		{
			field: "profile.id",
			want:  expr.Selected{Alias: "profile.id", Expr: expr.Col("profile_id")},
		},
		{
			field: "count",
			want:  expr.Selected{Alias: "count", Expr: expr.Fn("count")},
		},
		{
			field: "browser",
			want: expr.Selected{
				Alias: "browser",
				Expr:  expr.Fn("ifNull", expr.Col("tags[browser]"), expr.Lit("")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			selected, err := r.Select([]string{tt.field})
			require.NoError(t, err)
			require.Len(t, selected, 1)
			assert.Equal(t, tt.want, selected[0])
		})
	}
}

func TestResolveLookupOrder(t *testing.T) {
	r := NewResolver(Spans())

	status := r.Resolve("span.status")
	assert.Equal(t, KindColumn, status.Kind)
	assert.Equal(t, TypeEnum, status.ValueType)
	assert.Equal(t, int64(3), status.EnumMap["invalid_argument"])

	message := r.Resolve("message")
	assert.Equal(t, expr.Col("description"), message.Expression)

	explicit := r.Resolve("tags[span.op]")
	assert.True(t, explicit.IsTag())
	assert.Equal(t, "span.op", explicit.TagKey)
	assert.Equal(t, expr.Fn("ifNull", expr.Col("tags[span.op]"), expr.Lit("")), explicit.Expression)

	fallback := r.Resolve("foo")
	assert.True(t, fallback.IsTag())
	assert.Equal(t, "foo", fallback.TagKey)
	assert.Equal(t, TypeString, fallback.ValueType)

	project := r.Resolve("project")
	assert.Equal(t, LookupProject, project.Lookup)
	assert.Equal(t, expr.Col("project_id"), project.Expression)
}

func TestResolveIsMemoized(t *testing.T) {
	r := NewResolver(Spans())
	first := r.Resolve("span.duration")
	second := r.Resolve("span.duration")
	assert.Equal(t, first, second)
	assert.Len(t, r.cache, 1)

	r.Resolve("foo")
	assert.Len(t, r.cache, 2)
}

func TestSelectRejectsEmptyName(t *testing.T) {
	_, err := NewResolver(Spans()).Select([]string{"span.op", " "})
	require.Error(t, err)
	assert.True(t, errors.IsUserError(err))
}

func TestEnumLabelsSorted(t *testing.T) {
	e, ok := Spans().Get("span.status")
	require.True(t, ok)
	labels := e.EnumLabels()
	assert.Len(t, labels, 17)
	assert.Equal(t, "aborted", labels[0])
	assert.Equal(t, "unknown", labels[len(labels)-1])
}

func TestNewValidation(t *testing.T) {
	text := Entry{Name: "message", Kind: KindColumn, Column: "body", ValueType: TypeString}

	tests := []struct {
		name   string
		def    Definition
		field  string
		reason string
	}{
		{
			name:   "missing dataset",
			def:    Definition{Fields: []Entry{text}},
			reason: "dataset name is required",
		},
		{
			name: "enum without map",
			def: Definition{Dataset: "d", Fields: []Entry{text,
				{Name: "level", Kind: KindColumn, Column: "level", ValueType: TypeEnum},
			}},
			field:  "level",
			reason: "enum field requires an enum map",
		},
		{
			name: "map on non enum",
			def: Definition{Dataset: "d", Fields: []Entry{text,
				{Name: "level", Kind: KindColumn, Column: "level", ValueType: TypeString, EnumMap: map[string]int64{"a": 1}},
			}},
			field:  "level",
			reason: "enum map is only valid for enum fields",
		},
		{
			name: "derived without expression",
			def: Definition{Dataset: "d", Fields: []Entry{text,
				{Name: "x", Kind: KindDerived, ValueType: TypeDuration},
			}},
			field:  "x",
			reason: "derived field requires an expression",
		},
		{
			name: "unknown type",
			def: Definition{Dataset: "d", Fields: []Entry{text,
				{Name: "x", Kind: KindColumn, Column: "x", ValueType: "money"},
			}},
			field:  "x",
			reason: `unknown value type "money"`,
		},
		{
			name: "duplicate",
			def: Definition{Dataset: "d", Fields: []Entry{text,
				{Name: "message", Kind: KindColumn, Column: "other", ValueType: TypeString},
			}},
			field:  "message",
			reason: "duplicate field name",
		},
		{
			name:   "missing text field",
			def:    Definition{Dataset: "d", TextField: "body", Fields: []Entry{text}},
			field:  "body",
			reason: "text field is not defined",
		},
		{
			name: "project lookup on string",
			def: Definition{Dataset: "d", Fields: []Entry{text,
				{Name: "p", Kind: KindColumn, Column: "p", ValueType: TypeString, Lookup: LookupProject},
			}},
			field:  "p",
			reason: "project lookup requires an integer field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.def)
			require.Error(t, err)

			var ce *errors.CatalogError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
			assert.Equal(t, tt.reason, ce.Reason)
			assert.False(t, errors.IsUserError(err))
			assert.True(t, errors.IsCatalogError(err))
		})
	}
}

func TestEnumMapIsCopied(t *testing.T) {
	m := map[string]int64{"debug": 0, "info": 1}
	c, err := New(Definition{Dataset: "logs", Fields: []Entry{
		{Name: "message", Kind: KindColumn, Column: "body", ValueType: TypeString},
		{Name: "level", Kind: KindColumn, Column: "severity", ValueType: TypeEnum, EnumMap: m},
	}})
	require.NoError(t, err)

	m["error"] = 2
	e, _ := c.Get("level")
	assert.Len(t, e.EnumMap, 2)
}

const logsYAML = `
dataset: logs
text_field: body
tag_column: attrs
fields:
  - name: body
    kind: column
    column: message
    type: string
  - name: latency
    kind: derived
    expression: "if(greater(self_ms, total_ms), self_ms, total_ms)"
    type: duration
  - name: level
    kind: column
    column: severity
    type: enum
    enum: {debug: 0, info: 1, error: 2}
  - name: host
    kind: tag
    tag_key: host.name
    type: string
`

func TestLoadYAML(t *testing.T) {
	c, err := LoadYAML(strings.NewReader(logsYAML))
	require.NoError(t, err)

	assert.Equal(t, "logs", c.Dataset())
	assert.Equal(t, "body", c.TextField())
	assert.Len(t, c.Entries(), 4)

	r := NewResolver(c)
	latency := r.Resolve("latency")
	assert.Equal(t, expr.Fn("if",
		expr.Fn("greater", expr.Col("self_ms"), expr.Col("total_ms")),
		expr.Col("self_ms"),
		expr.Col("total_ms"),
	), latency.Expression)

	host := r.Resolve("host")
	assert.True(t, host.IsTag())
	assert.Equal(t, expr.Fn("ifNull", expr.Col("attrs[host.name]"), expr.Lit("")), host.Expression)

	assert.Equal(t, "region", r.Resolve("attrs[region]").TagKey)
}

func TestLoadYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "dataset: x\nbogus: 1\n"},
		{"bad expression", "dataset: x\nfields:\n  - name: a\n    kind: derived\n    expression: \"f(a,\"\n    type: numeric\n"},
		{"enum without map", "dataset: x\nfields:\n  - name: message\n    kind: column\n    column: m\n    type: enum\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadYAML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.True(t, errors.IsCatalogError(err))
		})
	}
}

func TestParseExpression(t *testing.T) {
	tests := []struct {
		input string
		want  expr.Expression
	}{
		{"duration", expr.Col("duration")},
		{"count()", expr.Fn("count")},
		{"tags[a.b]", expr.Col("tags[a.b]")},
		{"ifNull(tags[x], '')", expr.Fn("ifNull", expr.Col("tags[x]"), expr.Lit(""))},
		{"multiply(a, 1000)", expr.Fn("multiply", expr.Col("a"), expr.Lit(int64(1000)))},
		{"divide(a, 2.5)", expr.Fn("divide", expr.Col("a"), expr.Lit(2.5))},
		{"concat('it''s', b)", expr.Fn("concat", expr.Lit("it's"), expr.Col("b"))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExpression(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "f(a", "f(a b)", "'open", "a)", "tags[x"} {
		_, err := ParseExpression(bad)
		assert.Error(t, err, bad)
	}
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(logsYAML), 0o644))

	reg, err := LoadRegistry([]string{path})
	require.NoError(t, err)
	assert.Equal(t, []string{"logs", "spans"}, reg.Datasets())

	spans, err := reg.Get("spans")
	require.NoError(t, err)
	assert.Equal(t, "message", spans.TextField())

	_, err = reg.Get("metrics")
	require.Error(t, err)
	assert.True(t, errors.IsCatalogError(err))

	_, err = LoadRegistry([]string{path, path})
	assert.Error(t, err)
}
