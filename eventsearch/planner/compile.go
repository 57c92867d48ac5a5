package planner

import (
	"fmt"
	"strings"
	"time"

	"github.com/nonibytes/eventsearch/eventsearch/catalog"
	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
	"github.com/nonibytes/eventsearch/eventsearch/normalize"
	"github.com/nonibytes/eventsearch/eventsearch/query"
)

// hasField is the pseudo-field of existence filters: has:foo, !has:foo.
const hasField = "has"

// FreeTextMode selects how several bare search terms combine
type FreeTextMode string

const (
	// FreeTextAll ANDs every free-text term.
	FreeTextAll FreeTextMode = "all"
	// FreeTextLast keeps only the last free-text term of the query.
	FreeTextLast FreeTextMode = "last"
)

// ParseFreeTextMode parses a mode name; "" selects FreeTextAll.
func ParseFreeTextMode(s string) (FreeTextMode, error) {
	switch FreeTextMode(strings.ToLower(s)) {
	case "", FreeTextAll:
		return FreeTextAll, nil
	case FreeTextLast:
		return FreeTextLast, nil
	}
	return "", fmt.Errorf("unknown free text mode %q (expected all or last)", s)
}

// Options configures a compile pass
type Options struct {
	Now          time.Time
	FreeTextMode FreeTextMode
	// Projects maps the slugs of the projects in scope to their ids.
	Projects map[string]int64
}

// Compiler turns single filter tokens into where-tree nodes
type Compiler struct {
	resolver *catalog.Resolver
	opts     Options
	values   normalize.Options
}

// NewCompiler creates a compiler for one pass over resolver's catalog
func NewCompiler(resolver *catalog.Resolver, opts Options) *Compiler {
	return &Compiler{
		resolver: resolver,
		opts:     opts,
		values:   normalize.Options{Now: opts.Now},
	}
}

// Compile compiles a field condition or free-text token. A nil node with a
// nil error means the token matches everything.
func (c *Compiler) Compile(tok query.Token) (expr.Node, error) {
	switch tok.Kind {
	case query.TokFieldCondition:
		return c.compileFilter(tok)
	case query.TokFreeText:
		return c.compileFreeText(tok)
	}
	return nil, errors.Malformed(tok.Pos, tok.String(), fmt.Sprintf("unexpected %s token", tok.Kind))
}

func (c *Compiler) compileFilter(tok query.Token) (expr.Node, error) {
	if tok.Field == hasField {
		return c.compileHas(tok)
	}

	f := c.resolver.Resolve(tok.Field)
	if f.Kind == catalog.KindAggregate {
		return nil, errors.InvalidValue(tok.Field, tok.Value, "aggregate fields cannot be used in a filter")
	}
	if f.Lookup == catalog.LookupProject {
		return c.compileProject(tok, f)
	}

	if tok.IsList() {
		values, err := normalize.List(f, tok.Values, c.values)
		if err != nil {
			return nil, err
		}
		return expr.Cond(f.Expression, negate(expr.OpIn, tok.Negated), values), nil
	}

	if f.ValueType == catalog.TypeString && tok.Operator == expr.OpEq {
		return c.compileString(f, tok), nil
	}

	v, err := normalize.Value(f, tok.Value, tok.Operator, c.values)
	if err != nil {
		return nil, err
	}
	return expr.Cond(f.Expression, negate(tok.Operator, tok.Negated), v), nil
}

func (c *Compiler) compileString(f catalog.ResolvedField, tok query.Token) expr.Node {
	p := normalize.ParsePattern(tok.Value)
	switch p.Shape() {
	case normalize.ShapeExact:
		return expr.Cond(f.Expression, negate(expr.OpEq, tok.Negated), p.Literal())
	case normalize.ShapeAny:
		return c.exists(f, tok.Negated)
	}
	return c.match(f, p, tok.Negated)
}

// match compiles a wildcard pattern. Tag-backed fields pair the test with a
// tag existence check that negation leaves untouched.
func (c *Compiler) match(f catalog.ResolvedField, p normalize.Pattern, negated bool) expr.Node {
	cond := wildcardCondition(f.Expression, p, negated)
	if !f.IsTag() {
		return cond
	}
	return expr.NewAnd(cond, c.hasTag(f.TagKey, false))
}

func wildcardCondition(e expr.Expression, p normalize.Pattern, negated bool) expr.Condition {
	switch p.Shape() {
	case normalize.ShapeContains:
		return expr.Cond(expr.Fn("positionCaseInsensitive", e, expr.Lit(p.Literal())), negate(expr.OpNeq, negated), int64(0))
	case normalize.ShapePrefix:
		return expr.Cond(expr.Fn("startsWith", expr.Fn("lower", e), expr.Lit(strings.ToLower(p.Literal()))), negate(expr.OpEq, negated), int64(1))
	case normalize.ShapeSuffix:
		return expr.Cond(expr.Fn("endsWith", expr.Fn("lower", e), expr.Lit(strings.ToLower(p.Literal()))), negate(expr.OpEq, negated), int64(1))
	default:
		return expr.Cond(expr.Fn("match", e, expr.Lit(p.Regex())), negate(expr.OpEq, negated), int64(1))
	}
}

func (c *Compiler) compileFreeText(tok query.Token) (expr.Node, error) {
	f := c.resolver.Resolve(c.resolver.Catalog().TextField())
	p := normalize.ParsePattern(tok.Value).Unanchored()
	if p.Shape() == normalize.ShapeAny {
		if tok.Negated {
			return nil, errors.InvalidValue(f.Name, tok.Value, "a negated search term must contain text")
		}
		return nil, nil
	}
	return c.match(f, p, tok.Negated), nil
}

func (c *Compiler) compileHas(tok query.Token) (expr.Node, error) {
	if tok.IsList() {
		return nil, errors.InvalidValue(hasField, strings.Join(tok.Values, ","), "has takes a single field name")
	}
	if tok.Operator != expr.OpEq {
		return nil, errors.UnknownOperator(hasField, string(tok.Operator))
	}
	f := c.resolver.Resolve(tok.Value)
	if f.Kind == catalog.KindAggregate {
		return nil, errors.InvalidValue(hasField, tok.Value, "aggregate fields cannot be used in a filter")
	}
	return c.exists(f, tok.Negated), nil
}

// exists tests that a field carries a value: tags must be present, string
// columns non-empty and other columns non-null.
func (c *Compiler) exists(f catalog.ResolvedField, negated bool) expr.Node {
	switch {
	case f.IsTag():
		return c.hasTag(f.TagKey, negated)
	case f.ValueType == catalog.TypeString:
		return expr.Cond(f.Expression, negate(expr.OpNeq, negated), "")
	default:
		return expr.Cond(expr.Fn("isNotNull", f.Expression), negate(expr.OpEq, negated), int64(1))
	}
}

func (c *Compiler) hasTag(key string, negated bool) expr.Condition {
	keys := expr.Col(c.resolver.Catalog().TagColumn() + ".key")
	code := int64(1)
	if negated {
		code = 0
	}
	return expr.Cond(expr.Fn("has", keys, expr.Lit(key)), expr.OpEq, code)
}

func (c *Compiler) compileProject(tok query.Token, f catalog.ResolvedField) (expr.Node, error) {
	if tok.Operator.IsRelational() {
		return nil, errors.UnknownOperator(tok.Field, string(tok.Operator))
	}

	if tok.IsList() {
		ids := make([]int64, len(tok.Values))
		for i, slug := range tok.Values {
			id, err := c.projectID(tok.Field, slug)
			if err != nil {
				return nil, err
			}
			ids[i] = id
		}
		return expr.Cond(f.Expression, negate(expr.OpIn, tok.Negated), ids), nil
	}

	id, err := c.projectID(tok.Field, tok.Value)
	if err != nil {
		return nil, err
	}
	return expr.Cond(f.Expression, negate(expr.OpEq, tok.Negated), id), nil
}

func (c *Compiler) projectID(field, slug string) (int64, error) {
	id, ok := c.opts.Projects[slug]
	if !ok {
		return 0, errors.InvalidValue(field, slug, "unknown project or project not in scope")
	}
	return id, nil
}

func negate(op expr.Op, negated bool) expr.Op {
	if negated {
		return op.Negate()
	}
	return op
}
