package catalog

import (
	"fmt"
	"sort"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

// Kind specifies how a field is backed in storage
type Kind string

const (
	KindColumn    Kind = "column"
	KindDerived   Kind = "derived"
	KindTag       Kind = "tag"
	KindAggregate Kind = "aggregate"
)

// ValueType specifies the type of a field's values
type ValueType string

const (
	TypeDuration  ValueType = "duration"
	TypeEnum      ValueType = "enum"
	TypeString    ValueType = "string"
	TypeTimestamp ValueType = "timestamp"
	TypeNumeric   ValueType = "numeric"
	TypeInteger   ValueType = "integer"
	TypeBoolean   ValueType = "boolean"
)

// LookupProject marks a field whose values are project slugs resolved
// against the query's project scope.
const LookupProject = "project"

const (
	defaultTextField = "message"
	defaultTagColumn = "tags"
)

// Entry defines one public field of a dataset.
type Entry struct {
	Name       string
	Kind       Kind
	Column     string          // KindColumn
	Expression expr.Expression // KindDerived, KindAggregate
	ValueType  ValueType
	EnumMap    map[string]int64
	Lookup     string
	TagKey     string // KindTag
}

// Definition is the input to New.
type Definition struct {
	Dataset string
	// TextField is the public field free-text terms are matched against.
	// Defaults to "message".
	TextField string
	// TagColumn is the map-like column holding tags. Defaults to "tags".
	TagColumn string
	Fields    []Entry
}

// Catalog is the immutable field table of one dataset. It is safe for
// concurrent use.
type Catalog struct {
	dataset   string
	textField string
	tagColumn string
	entries   map[string]Entry
	order     []string
}

// New validates def and builds a catalog. Configuration faults are reported
// as *errors.CatalogError.
func New(def Definition) (*Catalog, error) {
	if def.Dataset == "" {
		return nil, errors.Catalog("", "", "dataset name is required")
	}

	c := &Catalog{
		dataset:   def.Dataset,
		textField: def.TextField,
		tagColumn: def.TagColumn,
		entries:   make(map[string]Entry, len(def.Fields)),
	}
	if c.textField == "" {
		c.textField = defaultTextField
	}
	if c.tagColumn == "" {
		c.tagColumn = defaultTagColumn
	}

	for _, e := range def.Fields {
		if err := validateEntry(def.Dataset, e); err != nil {
			return nil, err
		}
		if _, dup := c.entries[e.Name]; dup {
			return nil, errors.Catalog(def.Dataset, e.Name, "duplicate field name")
		}
		if e.EnumMap != nil {
			e.EnumMap = copyEnum(e.EnumMap)
		}
		c.entries[e.Name] = e
		c.order = append(c.order, e.Name)
	}

	text, ok := c.entries[c.textField]
	if !ok {
		return nil, errors.Catalog(def.Dataset, c.textField, "text field is not defined")
	}
	if text.ValueType != TypeString {
		return nil, errors.Catalog(def.Dataset, c.textField, "text field must be a string field")
	}

	return c, nil
}

// MustNew is New for static catalogs; it panics on a configuration fault.
func MustNew(def Definition) *Catalog {
	c, err := New(def)
	if err != nil {
		panic(err)
	}
	return c
}

func validateEntry(dataset string, e Entry) error {
	if e.Name == "" {
		return errors.Catalog(dataset, "", "field name is required")
	}

	switch e.Kind {
	case KindColumn:
		if e.Column == "" {
			return errors.Catalog(dataset, e.Name, "column field requires a column")
		}
	case KindDerived:
		if e.Expression == nil {
			return errors.Catalog(dataset, e.Name, "derived field requires an expression")
		}
	case KindAggregate:
		if e.Expression == nil {
			return errors.Catalog(dataset, e.Name, "aggregate field requires an expression")
		}
	case KindTag:
		if e.TagKey == "" {
			return errors.Catalog(dataset, e.Name, "tag field requires a tag key")
		}
	default:
		return errors.Catalog(dataset, e.Name, fmt.Sprintf("unknown field kind %q", e.Kind))
	}

	switch e.ValueType {
	case TypeDuration, TypeString, TypeTimestamp, TypeNumeric, TypeInteger, TypeBoolean:
		if len(e.EnumMap) > 0 {
			return errors.Catalog(dataset, e.Name, "enum map is only valid for enum fields")
		}
	case TypeEnum:
		if len(e.EnumMap) == 0 {
			return errors.Catalog(dataset, e.Name, "enum field requires an enum map")
		}
	default:
		return errors.Catalog(dataset, e.Name, fmt.Sprintf("unknown value type %q", e.ValueType))
	}

	switch e.Lookup {
	case "":
	case LookupProject:
		if e.ValueType != TypeInteger {
			return errors.Catalog(dataset, e.Name, "project lookup requires an integer field")
		}
	default:
		return errors.Catalog(dataset, e.Name, fmt.Sprintf("unknown lookup %q", e.Lookup))
	}

	return nil
}

func copyEnum(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Dataset returns the dataset identifier
func (c *Catalog) Dataset() string { return c.dataset }

// TextField returns the public field free text is matched against
func (c *Catalog) TextField() string { return c.textField }

// TagColumn returns the tag map column name
func (c *Catalog) TagColumn() string { return c.tagColumn }

// Get retrieves an entry by public name
func (c *Catalog) Get(name string) (Entry, bool) {
	e, ok := c.entries[name]
	return e, ok
}

// Entries returns the entries in definition order
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.entries[name])
	}
	return out
}

// EnumLabels returns the sorted labels of an enum entry
func (e Entry) EnumLabels() []string {
	labels := make([]string, 0, len(e.EnumMap))
	for label := range e.EnumMap {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
