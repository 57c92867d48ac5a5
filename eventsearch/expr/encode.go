package expr

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Dialect selects the SQL flavour produced by Encoder.
type Dialect string

const (
	DialectClickHouse Dialect = "clickhouse"
	DialectDuckDB     Dialect = "duckdb"
)

// ParseDialect maps a user-supplied name to a Dialect, defaulting to ClickHouse.
func ParseDialect(s string) Dialect {
	switch Dialect(strings.ToLower(s)) {
	case DialectDuckDB:
		return DialectDuckDB
	default:
		return DialectClickHouse
	}
}

// ArgBinder allocates a placeholder for a bound value. It is satisfied by
// sqlbuilder.Builder.
type ArgBinder interface {
	Arg(v any) string
}

// EncoderOptions configures encoding behavior.
type EncoderOptions struct {
	Dialect Dialect

	// Args, when set, receives every value and literal; the SQL carries
	// placeholders instead of inline constants.
	Args ArgBinder

	// ColumnMapping maps column names to different storage names.
	ColumnMapping map[string]string
}

// Encoder renders expression trees to SQL text.
type Encoder struct {
	opts EncoderOptions
}

// NewEncoder creates an encoder. A nil opts yields inline ClickHouse SQL.
func NewEncoder(opts *EncoderOptions) *Encoder {
	if opts == nil {
		opts = &EncoderOptions{}
	}
	o := *opts
	if o.Dialect == "" {
		o.Dialect = DialectClickHouse
	}
	return &Encoder{opts: o}
}

// Encode renders a boolean node. An empty And renders as "1 = 1".
func (e *Encoder) Encode(n Node) string {
	switch x := n.(type) {
	case Condition:
		return e.encodeCondition(x)
	case And:
		return e.encodeJunction(x.Children, " AND ", "1 = 1")
	case Or:
		return e.encodeJunction(x.Children, " OR ", "1 = 0")
	default:
		return ""
	}
}

// EncodeExpression renders a value expression.
func (e *Encoder) EncodeExpression(x Expression) string {
	switch v := x.(type) {
	case Column:
		return e.encodeColumn(v)
	case Function:
		return e.encodeFunction(v)
	case Literal:
		return e.encodeValue(v.Value)
	default:
		return ""
	}
}

// EncodeSelect renders a complete SELECT statement. Every node in where is
// ANDed; nodes that render empty are skipped.
func (e *Encoder) EncodeSelect(table string, selected []Selected, where ...Node) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(selected) == 0 {
		b.WriteString("*")
	}
	for i, s := range selected {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.EncodeExpression(s.Expr))
		if s.Alias != "" {
			b.WriteString(" AS ")
			b.WriteString(e.quoteIdentifier(s.Alias))
		}
	}
	b.WriteString(" FROM ")
	b.WriteString(e.quoteIdentifier(table))

	var parts []string
	for _, n := range where {
		if a, ok := n.(And); ok && len(a.Children) == 0 {
			continue
		}
		if s := e.Encode(n); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(parts, " AND "))
	}
	return b.String()
}

func (e *Encoder) encodeJunction(children []Node, sep, empty string) string {
	var parts []string
	for _, c := range children {
		if s := e.Encode(c); s != "" {
			parts = append(parts, s)
		}
	}
	switch len(parts) {
	case 0:
		return empty
	case 1:
		return parts[0]
	default:
		return "(" + strings.Join(parts, sep) + ")"
	}
}

func (e *Encoder) encodeCondition(c Condition) string {
	left := e.EncodeExpression(c.LHS)
	if left == "" {
		return ""
	}
	if c.Op.IsList() {
		values := listValues(c.RHS)
		if len(values) == 0 {
			if c.Op == OpIn {
				return "1 = 0"
			}
			return "1 = 1"
		}
		encoded := make([]string, len(values))
		for i, v := range values {
			encoded[i] = e.encodeValue(v)
		}
		return left + " " + string(c.Op) + " (" + strings.Join(encoded, ", ") + ")"
	}
	return left + " " + string(c.Op) + " " + e.encodeValue(c.RHS)
}

var tagSubscriptRe = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\[(.+)\]$`)

func (e *Encoder) encodeColumn(c Column) string {
	name := c.Name
	if mapped, ok := e.opts.ColumnMapping[name]; ok {
		name = mapped
	}
	// tags[key] addresses the value paired with key in the nested tags column.
	if m := tagSubscriptRe.FindStringSubmatch(name); m != nil {
		key := e.encodeValue(m[2])
		if e.opts.Dialect == DialectDuckDB {
			return m[1] + "[" + key + "]"
		}
		return m[1] + ".value[indexOf(" + m[1] + ".key, " + key + ")]"
	}
	if e.opts.Dialect == DialectDuckDB && strings.HasSuffix(name, ".key") {
		return "map_keys(" + e.quoteIdentifier(strings.TrimSuffix(name, ".key")) + ")"
	}
	return e.quoteIdentifier(name)
}

func (e *Encoder) encodeFunction(f Function) string {
	args := make([]string, 0, len(f.Args))
	for _, a := range f.Args {
		s := e.EncodeExpression(a)
		if s == "" {
			return ""
		}
		args = append(args, s)
	}
	if e.opts.Dialect == DialectDuckDB {
		if tmpl, ok := duckdbFunctions[f.Name]; ok && tmpl.arity == len(args) {
			return tmpl.render(args)
		}
	}
	if f.Name == "count" && len(args) == 0 {
		return "count()"
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

type functionTemplate struct {
	arity  int
	render func(args []string) string
}

// duckdbFunctions rewrites ClickHouse function calls into DuckDB equivalents.
// Boolean-returning functions are cast to INTEGER so that "= 1" / "!= 0"
// comparisons keep their meaning.
var duckdbFunctions = map[string]functionTemplate{
	"greater": {2, func(a []string) string { return "(" + a[0] + " > " + a[1] + ")" }},
	"if": {3, func(a []string) string {
		return "CASE WHEN " + a[0] + " THEN " + a[1] + " ELSE " + a[2] + " END"
	}},
	"ifNull": {2, func(a []string) string { return "ifnull(" + a[0] + ", " + a[1] + ")" }},
	"positionCaseInsensitive": {2, func(a []string) string {
		return "instr(lower(" + a[0] + "), lower(" + a[1] + "))"
	}},
	"startsWith": {2, func(a []string) string { return "CAST(starts_with(" + a[0] + ", " + a[1] + ") AS INTEGER)" }},
	"endsWith":   {2, func(a []string) string { return "CAST(suffix(" + a[0] + ", " + a[1] + ") AS INTEGER)" }},
	"match":      {2, func(a []string) string { return "CAST(regexp_matches(" + a[0] + ", " + a[1] + ") AS INTEGER)" }},
	"has":        {2, func(a []string) string { return "CAST(list_contains(" + a[0] + ", " + a[1] + ") AS INTEGER)" }},
	"isNotNull":  {1, func(a []string) string { return "CAST((" + a[0] + " IS NOT NULL) AS INTEGER)" }},
	"count":      {0, func(a []string) string { return "count(*)" }},
}

func (e *Encoder) encodeValue(v any) string {
	if e.opts.Args != nil {
		return e.opts.Args.Arg(v)
	}
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return e.quoteLiteral(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return e.encodeTime(x.UTC())
	default:
		return e.quoteLiteral(fmt.Sprint(x))
	}
}

const secondLayout = "2006-01-02 15:04:05"

// encodeTime keeps sub-second precision only when the value has any.
func (e *Encoder) encodeTime(t time.Time) string {
	ns := t.Nanosecond()
	if e.opts.Dialect == DialectDuckDB {
		switch {
		case ns == 0:
			return "TIMESTAMP '" + t.Format(secondLayout) + "'"
		case ns%1000 == 0:
			return "TIMESTAMP '" + t.Format(secondLayout+".000000") + "'"
		}
		return "TIMESTAMP_NS '" + t.Format(secondLayout+".000000000") + "'"
	}
	if ns == 0 {
		return "toDateTime('" + t.Format(secondLayout) + "', 'UTC')"
	}
	return "toDateTime64('" + t.Format(secondLayout+".000000000") + "', 9, 'UTC')"
}

// quoteLiteral returns a string literal. ClickHouse treats backslash as an
// escape character inside literals; DuckDB only doubles quotes.
func (e *Encoder) quoteLiteral(s string) string {
	if e.opts.Dialect == DialectDuckDB {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func (e *Encoder) quoteIdentifier(name string) string {
	if !needsQuoting(name) {
		return name
	}
	if e.opts.Dialect == DialectDuckDB {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// needsQuoting returns true unless name is a plain (optionally dotted)
// identifier.
func needsQuoting(name string) bool {
	if name == "" {
		return true
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case (c >= '0' && c <= '9') || c == '.':
			if i == 0 {
				return true
			}
		default:
			return true
		}
	}
	switch strings.ToUpper(name) {
	case "SELECT", "FROM", "WHERE", "AND", "OR", "NOT", "NULL", "GROUP", "ORDER", "BY", "AS", "IN", "IS", "LIKE":
		return true
	}
	return false
}

func listValues(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case []string:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	case []int64:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	case []float64:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	case []bool:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	case []time.Time:
		out := make([]any, len(x))
		for i := range x {
			out[i] = x[i]
		}
		return out
	default:
		return nil
	}
}
