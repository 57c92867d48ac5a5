package normalize

import (
	"regexp"
	"strings"
)

// Shape is the match strategy a wildcard pattern compiles to
type Shape int

const (
	ShapeExact    Shape = iota // no wildcard
	ShapeContains              // *text*
	ShapePrefix                // text*
	ShapeSuffix                // *text
	ShapeRegex                 // wildcards between literal runs
	ShapeAny                   // only wildcards
)

func (s Shape) String() string {
	switch s {
	case ShapeExact:
		return "exact"
	case ShapeContains:
		return "contains"
	case ShapePrefix:
		return "prefix"
	case ShapeSuffix:
		return "suffix"
	case ShapeRegex:
		return "regex"
	case ShapeAny:
		return "any"
	default:
		return "unknown"
	}
}

// Pattern is a raw value split at its unescaped wildcards.
//
// Segments holds the unescaped literal text between wildcards, so a pattern
// with n wildcards has n+1 segments; `\*` contributes a literal '*' to its
// segment and `\\` a literal backslash. Adjacent wildcards collapse into one.
type Pattern struct {
	Raw       string
	Segments  []string
	Wildcards []int // rune offsets of unescaped '*' in Raw
}

// ParsePattern analyses raw for unescaped '*' wildcards
func ParsePattern(raw string) Pattern {
	p := Pattern{Raw: raw}
	runes := []rune(raw)
	var sb strings.Builder
	lastWildcard := false

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '\\' && i+1 < len(runes):
			i++
			sb.WriteRune(runes[i])
			lastWildcard = false
		case ch == '*':
			p.Wildcards = append(p.Wildcards, i)
			if lastWildcard {
				continue
			}
			p.Segments = append(p.Segments, sb.String())
			sb.Reset()
			lastWildcard = true
		default:
			sb.WriteRune(ch)
			lastWildcard = false
		}
	}
	p.Segments = append(p.Segments, sb.String())
	return p
}

// HasWildcard reports whether the pattern holds any unescaped '*'
func (p Pattern) HasWildcard() bool { return len(p.Segments) > 1 }

// Literal returns the unescaped text with wildcards removed
func (p Pattern) Literal() string { return strings.Join(p.Segments, "") }

// Leading reports whether the pattern starts with a wildcard
func (p Pattern) Leading() bool { return p.HasWildcard() && p.Segments[0] == "" }

// Trailing reports whether the pattern ends with a wildcard
func (p Pattern) Trailing() bool { return p.HasWildcard() && p.Segments[len(p.Segments)-1] == "" }

// Shape classifies the pattern. The result depends only on the pattern.
func (p Pattern) Shape() Shape {
	if !p.HasWildcard() {
		return ShapeExact
	}

	literal := 0
	for _, s := range p.Segments {
		if s != "" {
			literal++
		}
	}

	switch {
	case literal == 0:
		return ShapeAny
	case literal > 1:
		return ShapeRegex
	case p.Leading() && p.Trailing():
		return ShapeContains
	case p.Trailing():
		return ShapePrefix
	default:
		return ShapeSuffix
	}
}

// Unanchored returns the pattern with wildcards added at both ends, the
// form free-text terms are matched with.
func (p Pattern) Unanchored() Pattern {
	out := Pattern{Raw: p.Raw, Wildcards: p.Wildcards}
	if !p.Leading() {
		out.Segments = append(out.Segments, "")
	}
	out.Segments = append(out.Segments, p.Segments...)
	if !p.Trailing() {
		out.Segments = append(out.Segments, "")
	}
	return out
}

// Regex renders the pattern as a case-insensitive RE2 expression anchored
// at both ends, each wildcard matching any run of characters.
func (p Pattern) Regex() string {
	quoted := make([]string, len(p.Segments))
	for i, s := range p.Segments {
		quoted[i] = regexp.QuoteMeta(s)
	}
	return "(?i)^" + strings.Join(quoted, ".*") + "$"
}
