package catalog

import (
	"strings"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

// ResolvedField is a public field name bound to its backend expression.
type ResolvedField struct {
	Name       string
	Expression expr.Expression
	ValueType  ValueType
	Kind       Kind
	TagKey     string
	EnumMap    map[string]int64
	Lookup     string
}

// IsTag reports whether the field lives in the tag map.
func (f ResolvedField) IsTag() bool { return f.Kind == KindTag }

// EnumLabels returns the sorted valid labels of an enum field
func (f ResolvedField) EnumLabels() []string {
	return Entry{EnumMap: f.EnumMap}.EnumLabels()
}

// Resolver maps public field names to backend expressions for one compile
// pass. Results are memoized, so a Resolver must not be shared between
// goroutines; create one per pass.
type Resolver struct {
	catalog *Catalog
	cache   map[string]ResolvedField
}

// NewResolver creates a resolver over c
func NewResolver(c *Catalog) *Resolver {
	return &Resolver{
		catalog: c,
		cache:   make(map[string]ResolvedField),
	}
}

// Catalog returns the catalog the resolver reads from
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// Resolve never fails: names that are neither catalog entries nor explicit
// tag references fall through to a tag lookup keyed by the name itself.
func (r *Resolver) Resolve(name string) ResolvedField {
	if f, ok := r.cache[name]; ok {
		return f
	}

	var f ResolvedField
	if e, ok := r.catalog.Get(name); ok {
		f = r.fromEntry(e)
	} else if key, ok := r.explicitTag(name); ok {
		f = r.tag(name, key)
	} else {
		f = r.tag(name, name)
	}

	r.cache[name] = f
	return f
}

// Select resolves the requested output columns, aliased by public name.
func (r *Resolver) Select(fields []string) ([]expr.Selected, error) {
	selected := make([]expr.Selected, 0, len(fields))
	for _, name := range fields {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, errors.InvalidValue("field", name, "selected field name is empty")
		}
		f := r.Resolve(name)
		selected = append(selected, expr.Selected{Alias: name, Expr: f.Expression})
	}
	return selected, nil
}

func (r *Resolver) fromEntry(e Entry) ResolvedField {
	f := ResolvedField{
		Name:      e.Name,
		ValueType: e.ValueType,
		Kind:      e.Kind,
		EnumMap:   e.EnumMap,
		Lookup:    e.Lookup,
		TagKey:    e.TagKey,
	}
	switch e.Kind {
	case KindColumn:
		f.Expression = expr.Col(e.Column)
	case KindTag:
		f.Expression = r.tagExpression(e.TagKey)
	default:
		f.Expression = e.Expression
	}
	return f
}

// explicitTag matches `tags[key]` against the catalog's tag column.
func (r *Resolver) explicitTag(name string) (string, bool) {
	prefix := r.catalog.TagColumn() + "["
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, "]") {
		return "", false
	}
	key := name[len(prefix) : len(name)-1]
	if key == "" {
		return "", false
	}
	return key, true
}

func (r *Resolver) tag(name, key string) ResolvedField {
	return ResolvedField{
		Name:       name,
		Expression: r.tagExpression(key),
		ValueType:  TypeString,
		Kind:       KindTag,
		TagKey:     key,
	}
}

func (r *Resolver) tagExpression(key string) expr.Expression {
	return expr.Fn("ifNull", expr.Col(r.catalog.TagColumn()+"["+key+"]"), expr.Lit(""))
}
