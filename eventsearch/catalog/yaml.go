package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/nonibytes/eventsearch/eventsearch/errors"
	"github.com/nonibytes/eventsearch/eventsearch/expr"
)

type definitionYAML struct {
	Dataset   string      `yaml:"dataset"`
	TextField string      `yaml:"text_field"`
	TagColumn string      `yaml:"tag_column"`
	Fields    []entryYAML `yaml:"fields"`
}

type entryYAML struct {
	Name       string           `yaml:"name"`
	Kind       Kind             `yaml:"kind"`
	Column     string           `yaml:"column"`
	Expression string           `yaml:"expression"`
	Type       ValueType        `yaml:"type"`
	Enum       map[string]int64 `yaml:"enum"`
	Lookup     string           `yaml:"lookup"`
	TagKey     string           `yaml:"tag_key"`
}

// LoadYAML decodes and validates a catalog definition:
//
//	dataset: logs
//	text_field: message
//	fields:
//	  - name: latency
//	    kind: derived
//	    expression: "if(greater(self_ms, total_ms), self_ms, total_ms)"
//	    type: duration
//	  - name: level
//	    kind: column
//	    column: severity
//	    type: enum
//	    enum: {debug: 0, info: 1, error: 2}
func LoadYAML(r io.Reader) (*Catalog, error) {
	var doc definitionYAML
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Catalog(doc.Dataset, "", fmt.Sprintf("invalid catalog YAML: %v", err))
	}

	def := Definition{
		Dataset:   doc.Dataset,
		TextField: doc.TextField,
		TagColumn: doc.TagColumn,
		Fields:    make([]Entry, 0, len(doc.Fields)),
	}
	for _, f := range doc.Fields {
		e := Entry{
			Name:      f.Name,
			Kind:      f.Kind,
			Column:    f.Column,
			ValueType: f.Type,
			EnumMap:   f.Enum,
			Lookup:    f.Lookup,
			TagKey:    f.TagKey,
		}
		if f.Expression != "" {
			x, err := ParseExpression(f.Expression)
			if err != nil {
				return nil, errors.Catalog(doc.Dataset, f.Name, err.Error())
			}
			e.Expression = x
		}
		def.Fields = append(def.Fields, e)
	}

	return New(def)
}

// LoadFile reads a YAML catalog from path
func LoadFile(path string) (*Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return LoadYAML(bytes.NewReader(b))
}

// ParseExpression parses the compact expression syntax used by derived
// fields: identifiers are columns, `name(args...)` are function calls,
// single-quoted strings and numbers are literals.
func ParseExpression(s string) (expr.Expression, error) {
	p := &exprParser{input: []rune(s)}
	x, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	if p.pos < len(p.input) {
		return nil, fmt.Errorf("unexpected %q at position %d in expression", p.input[p.pos], p.pos)
	}
	return x, nil
}

type exprParser struct {
	input []rune
	pos   int
}

func (p *exprParser) parse() (expr.Expression, error) {
	p.skipWhitespace()
	if p.pos >= len(p.input) {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	ch := p.input[p.pos]
	switch {
	case ch == '\'':
		return p.parseString()
	case unicode.IsDigit(ch) || ch == '-':
		return p.parseNumber()
	case isIdentRune(ch):
		return p.parseIdent()
	}
	return nil, fmt.Errorf("unexpected %q at position %d in expression", ch, p.pos)
}

func (p *exprParser) parseIdent() (expr.Expression, error) {
	start := p.pos
	for p.pos < len(p.input) && isIdentRune(p.input[p.pos]) {
		if p.input[p.pos] == '[' {
			end := p.pos
			for end < len(p.input) && p.input[end] != ']' {
				end++
			}
			if end == len(p.input) {
				return nil, fmt.Errorf("unbalanced '[' at position %d in expression", p.pos)
			}
			p.pos = end + 1
			continue
		}
		p.pos++
	}
	name := string(p.input[start:p.pos])

	p.skipWhitespace()
	if p.pos >= len(p.input) || p.input[p.pos] != '(' {
		return expr.Col(name), nil
	}
	p.pos++ // consume '('

	var args []expr.Expression
	p.skipWhitespace()
	if p.pos < len(p.input) && p.input[p.pos] == ')' {
		p.pos++
		return expr.Fn(name, args...), nil
	}
	for {
		arg, err := p.parse()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		p.skipWhitespace()
		if p.pos >= len(p.input) {
			return nil, fmt.Errorf("unterminated call to %s", name)
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return expr.Fn(name, args...), nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' at position %d in expression", p.pos)
		}
	}
}

func (p *exprParser) parseString() (expr.Expression, error) {
	p.pos++ // consume opening quote
	var sb strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch == '\'' {
			if p.pos+1 < len(p.input) && p.input[p.pos+1] == '\'' {
				sb.WriteRune('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return expr.Lit(sb.String()), nil
		}
		sb.WriteRune(ch)
		p.pos++
	}
	return nil, fmt.Errorf("unterminated string in expression")
}

func (p *exprParser) parseNumber() (expr.Expression, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	text := string(p.input[start:p.pos])
	if n, err := strconv.ParseInt(text, 10, 64); err == nil {
		return expr.Lit(n), nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q in expression", text)
	}
	return expr.Lit(f), nil
}

func (p *exprParser) skipWhitespace() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func isIdentRune(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '.' || ch == '['
}
